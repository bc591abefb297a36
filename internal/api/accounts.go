package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// AccountsService covers /accounts.
type AccountsService struct {
	caller Caller
}

// List returns the caller's accounts.
func (s *AccountsService) List(ctx context.Context) ([]models.Account, error) {
	var resp struct {
		Accounts []models.Account `json:"accounts"`
	}
	if err := get(ctx, s.caller, "/accounts", &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// Get returns one account.
func (s *AccountsService) Get(ctx context.Context, id string) (*models.Account, error) {
	var resp struct {
		Account *models.Account `json:"account"`
	}
	if err := get(ctx, s.caller, "/accounts/"+escape(id), &resp); err != nil {
		return nil, err
	}
	return resp.Account, nil
}

// Create opens a new account.
func (s *AccountsService) Create(ctx context.Context, req models.CreateAccountRequest) (*models.Account, error) {
	if strings.TrimSpace(req.AccountType) == "" || strings.TrimSpace(req.AccountName) == "" {
		return nil, fmt.Errorf("account type and name are required")
	}

	var resp struct {
		Account *models.Account `json:"account"`
	}
	if err := send(ctx, s.caller, http.MethodPost, "/accounts", req, &resp); err != nil {
		return nil, err
	}
	return resp.Account, nil
}
