package devserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := s.repo.listAccounts(currentUser(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.repo.getAccount(currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": a})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	a, err := s.repo.createAccount(currentUser(r.Context()), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"account": a})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	s.listTransactions(w, r, "")
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	s.listTransactions(w, r, chi.URLParam(r, "id"))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, accountID string) {
	q := r.URL.Query()
	limit := parseIntParam(q.Get("limit"), 100)
	offset := parseIntParam(q.Get("offset"), 0)

	txns, err := s.repo.listTransactions(currentUser(r.Context()), accountID, limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	t, err := s.repo.createTransaction(currentUser(r.Context()), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": t})
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"loans": s.repo.listLoans(currentUser(r.Context()))})
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	l, schedule, err := s.repo.getLoan(currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loan": l, "emiSchedules": schedule})
}

func (s *Server) handlePayEMI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "Account is required")
		return
	}

	err := s.repo.payEMI(currentUser(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "emiId"), req.AccountID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "EMI paid successfully"})
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps := s.repo.listApplications(currentUser(r.Context()), false)
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (s *Server) handlePendingApplications(w http.ResponseWriter, r *http.Request) {
	apps := s.repo.listApplications(currentUser(r.Context()), true)
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, approvals, err := s.repo.getApplication(currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"application": app, "approvals": approvals})
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	app, err := s.repo.submitApplication(currentUser(r.Context()), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"application": app})
}

func (s *Server) handleReviewApplication(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	app, loan, err := s.repo.reviewApplication(currentUser(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := map[string]any{"application": app}
	if loan != nil {
		resp["loan"] = loan
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseIntParam(q.Get("limit"), 50)
	offset := parseIntParam(q.Get("offset"), 0)
	unreadOnly := q.Get("unreadOnly") == "true"

	items := s.repo.listNotifications(currentUser(r.Context()), limit, offset, unreadOnly)
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.markRead(currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notification": n})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.repo.markAllRead(currentUser(r.Context()))
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "All notifications marked as read"})
}

func (s *Server) handleCustomerAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.repo.customerAnalytics(currentUser(r.Context())))
}

func (s *Server) handleBankerAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.repo.bankerAnalytics())
}

func (s *Server) handleAdminAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.repo.adminAnalytics(s.uptime()))
}
