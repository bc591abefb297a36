package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// Default page sizes.
const (
	DefaultTransactionLimit  = 100
	DefaultNotificationLimit = 50
)

// TransactionsService covers /transactions.
type TransactionsService struct {
	caller Caller
}

// List returns the caller's transactions. Non-positive limit and negative
// offset select the defaults of 100 and 0.
func (s *TransactionsService) List(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	return s.list(ctx, "/transactions", limit, offset)
}

// ListForAccount returns transactions for one account.
func (s *TransactionsService) ListForAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	return s.list(ctx, "/accounts/"+escape(accountID)+"/transactions", limit, offset)
}

func (s *TransactionsService) list(ctx context.Context, path string, limit, offset int) ([]models.Transaction, error) {
	q := pageQuery(limit, offset, DefaultTransactionLimit)

	var resp struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	if err := get(ctx, s.caller, withQuery(path, q), &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// Create posts a transaction.
func (s *TransactionsService) Create(ctx context.Context, req models.CreateTransactionRequest) (*models.Transaction, error) {
	if req.AccountID == "" || req.TransactionType == "" || req.Amount == "" {
		return nil, fmt.Errorf("account, type and amount are required")
	}

	var resp struct {
		Transaction *models.Transaction `json:"transaction"`
	}
	if err := send(ctx, s.caller, http.MethodPost, "/transactions", req, &resp); err != nil {
		return nil, err
	}
	return resp.Transaction, nil
}

func pageQuery(limit, offset, defaultLimit int) url.Values {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return q
}
