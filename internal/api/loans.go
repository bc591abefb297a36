package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// LoansService covers /loans and /loan-applications.
type LoansService struct {
	caller Caller
}

// LoanDetail is a loan with its repayment schedule.
type LoanDetail struct {
	Loan         *models.Loan         `json:"loan"`
	EMISchedules []models.EMISchedule `json:"emiSchedules"`
}

// ApplicationDetail is an application with its approval steps.
type ApplicationDetail struct {
	Application *models.LoanApplication `json:"application"`
	Approvals   []models.LoanApproval   `json:"approvals"`
}

// ReviewResult is returned by Review. Loan is set when an approval
// created one.
type ReviewResult struct {
	Application *models.LoanApplication `json:"application"`
	Loan        *models.Loan            `json:"loan,omitempty"`
}

func (s *LoansService) List(ctx context.Context) ([]models.Loan, error) {
	var resp struct {
		Loans []models.Loan `json:"loans"`
	}
	if err := get(ctx, s.caller, "/loans", &resp); err != nil {
		return nil, err
	}
	return resp.Loans, nil
}

func (s *LoansService) Get(ctx context.Context, id string) (*LoanDetail, error) {
	var resp LoanDetail
	if err := get(ctx, s.caller, "/loans/"+escape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Applications returns the caller's own loan applications.
func (s *LoansService) Applications(ctx context.Context) ([]models.LoanApplication, error) {
	return s.applications(ctx, "/loan-applications")
}

// PendingApplications returns applications awaiting review. Banker or admin only.
func (s *LoansService) PendingApplications(ctx context.Context) ([]models.LoanApplication, error) {
	return s.applications(ctx, "/loan-applications/pending")
}

func (s *LoansService) applications(ctx context.Context, path string) ([]models.LoanApplication, error) {
	var resp struct {
		Applications []models.LoanApplication `json:"applications"`
	}
	if err := get(ctx, s.caller, path, &resp); err != nil {
		return nil, err
	}
	return resp.Applications, nil
}

func (s *LoansService) Application(ctx context.Context, id string) (*ApplicationDetail, error) {
	var resp ApplicationDetail
	if err := get(ctx, s.caller, "/loan-applications/"+escape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit files a new loan application.
func (s *LoansService) Submit(ctx context.Context, req models.SubmitLoanRequest) (*models.LoanApplication, error) {
	if req.LoanType == "" || req.RequestedAmount == "" {
		return nil, fmt.Errorf("loan type and requested amount are required")
	}

	var resp struct {
		Application *models.LoanApplication `json:"application"`
	}
	if err := send(ctx, s.caller, http.MethodPost, "/loan-applications", req, &resp); err != nil {
		return nil, err
	}
	return resp.Application, nil
}

// Review approves or rejects an application.
func (s *LoansService) Review(ctx context.Context, id string, req models.ReviewLoanRequest) (*ReviewResult, error) {
	if req.Action != models.ReviewApprove && req.Action != models.ReviewReject {
		return nil, fmt.Errorf("review action must be %q or %q", models.ReviewApprove, models.ReviewReject)
	}

	var resp ReviewResult
	if err := send(ctx, s.caller, http.MethodPost, "/loan-applications/"+escape(id)+"/review", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PayEMI pays one instalment from accountID and returns the server message.
func (s *LoansService) PayEMI(ctx context.Context, loanID, emiID, accountID string) (string, error) {
	body := map[string]string{"accountId": accountID}

	var resp models.MessageResponse
	path := "/loans/" + escape(loanID) + "/emi/" + escape(emiID) + "/pay"
	if err := send(ctx, s.caller, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
