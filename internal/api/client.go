// Package api provides typed wrappers for the FinEdge banking endpoints.
// Every call goes through the session gateway and so carries the current
// bearer token and recovers from an expired one.
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/gateway"
)

// Caller performs authenticated calls.
type Caller interface {
	Call(ctx context.Context, req gateway.Request, out any) error
}

// Client groups the per-resource services.
type Client struct {
	Accounts      *AccountsService
	Transactions  *TransactionsService
	Loans         *LoansService
	Notifications *NotificationsService
	Analytics     *AnalyticsService
}

// New creates a Client over caller.
func New(caller Caller) *Client {
	return &Client{
		Accounts:      &AccountsService{caller: caller},
		Transactions:  &TransactionsService{caller: caller},
		Loans:         &LoansService{caller: caller},
		Notifications: &NotificationsService{caller: caller},
		Analytics:     &AnalyticsService{caller: caller},
	}
}

func get(ctx context.Context, c Caller, path string, out any) error {
	return c.Call(ctx, gateway.Request{Method: http.MethodGet, Path: path}, out)
}

func send(ctx context.Context, c Caller, method, path string, body, out any) error {
	return c.Call(ctx, gateway.Request{Method: method, Path: path, Body: body}, out)
}

// withQuery appends q to path when q is non-empty.
func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func escape(id string) string {
	return url.PathEscape(id)
}
