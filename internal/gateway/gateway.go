package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// Tokens is the view of the token store the gateway needs.
type Tokens interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Refresher obtains a new token pair. stale is the access token that was
// rejected, so concurrent callers can detect an already-completed refresh.
type Refresher interface {
	Refresh(ctx context.Context, stale string) (*models.Session, error)
}

// TerminateFunc is called after the gateway clears the session.
type TerminateFunc func(ctx context.Context, cause error)

// Gateway performs authenticated calls on top of a Transport.
type Gateway struct {
	transport *Transport
	tokens    Tokens
	refresher Refresher
	logger    *logging.Logger

	mu          sync.RWMutex
	onTerminate []TerminateFunc
}

// New creates a Gateway. refresher may be nil, in which case a 401 is
// never recovered.
func New(transport *Transport, tokens Tokens, refresher Refresher) *Gateway {
	return &Gateway{
		transport: transport,
		tokens:    tokens,
		refresher: refresher,
		logger:    transport.logger,
	}
}

// Transport returns the underlying unauthenticated transport.
func (g *Gateway) Transport() *Transport {
	return g.transport
}

// OnTerminate registers fn to run whenever an authenticated call ends the
// session.
func (g *Gateway) OnTerminate(fn TerminateFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onTerminate = append(g.onTerminate, fn)
}

// Call performs req and decodes a 2xx JSON body into out. A nil out
// discards the body.
//
// An authenticated request that gets 401 is retried at most once, after a
// successful refresh. If the refresh fails the session is cleared and the
// error wraps ErrSessionExpired. When ctx ends while waiting on the refresh
// the session is left alone and ctx's error is returned.
func (g *Gateway) Call(ctx context.Context, req Request, out any) error {
	if req.Public {
		return g.transport.Call(ctx, req, out)
	}

	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}

	resp, err := g.transport.send(ctx, req, token, 1)
	if err != nil {
		return err
	}

	if req.NoRefresh {
		return resp.decode(out)
	}

	retried := false
	if resp.status == http.StatusUnauthorized && g.canRefresh(ctx) {
		if _, err := g.refresher.Refresh(ctx, token); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("refresh session: %w", err)
			}
			g.terminate(ctx, err)
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}

		token, err = g.tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("load access token: %w", err)
		}

		retried = true
		resp, err = g.transport.send(ctx, req, token, 2)
		if err != nil {
			return err
		}
	}

	if resp.status == http.StatusUnauthorized && token != "" {
		httpErr := newHTTPError(resp.status, resp.body)
		g.logger.WarnContext(ctx, "authorization rejected",
			logging.Method(req.Method),
			logging.Path(req.Path),
			"retried", retried,
		)
		g.terminate(ctx, httpErr)
		return httpErr
	}

	return resp.decode(out)
}

func (g *Gateway) canRefresh(ctx context.Context) bool {
	if g.refresher == nil {
		return false
	}
	refresh, err := g.tokens.RefreshToken(ctx)
	return err == nil && refresh != ""
}

func (g *Gateway) terminate(ctx context.Context, cause error) {
	if err := g.tokens.Clear(ctx); err != nil {
		g.logger.ErrorContext(ctx, "failed to clear session", logging.Error(err))
	}
	g.transport.metrics.ObserveTermination()

	g.mu.RLock()
	hooks := make([]TerminateFunc, len(g.onTerminate))
	copy(hooks, g.onTerminate)
	g.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, cause)
	}
}
