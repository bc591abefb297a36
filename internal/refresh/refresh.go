// Package refresh rotates the token pair against /auth/refresh, collapsing
// concurrent attempts into a single network call.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/gateway"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/metrics"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// Path is the refresh endpoint relative to the API root.
const Path = "/auth/refresh"

const (
	flightKey      = "refresh"
	defaultTimeout = 15 * time.Second
)

var (
	// ErrNoRefreshToken means there is nothing to refresh with.
	ErrNoRefreshToken = errors.New("no refresh token available")

	errIncompleteResponse = errors.New("refresh response is missing tokens")
)

// Caller sends unauthenticated requests.
type Caller interface {
	Call(ctx context.Context, req gateway.Request, out any) error
}

// Store is the token store view used by the protocol.
type Store interface {
	Snapshot() *models.Session
	RefreshToken(ctx context.Context) (string, error)
	Write(ctx context.Context, sess models.Session) error
	Clear(ctx context.Context) error
}

// Observer is told about every completed refresh attempt.
type Observer interface {
	Refreshed(ctx context.Context, sess models.Session)
	Terminated(ctx context.Context, cause error)
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Protocol) {
		p.logger = l
	}
}

// WithMetrics records refresh outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Protocol) {
		p.metrics = m
	}
}

// WithTimeout bounds one refresh round trip. The bound applies even when
// the caller that started the flight goes away.
func WithTimeout(d time.Duration) Option {
	return func(p *Protocol) {
		p.timeout = d
	}
}

// Protocol performs token refreshes.
type Protocol struct {
	caller  Caller
	store   Store
	logger  *logging.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	group singleflight.Group

	mu        sync.RWMutex
	observers []Observer
}

// New creates a Protocol that posts through caller and persists into store.
func New(caller Caller, store Store, opts ...Option) *Protocol {
	p := &Protocol{
		caller:  caller,
		store:   store,
		logger:  logging.Discard(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe adds an observer.
func (p *Protocol) Subscribe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// Refresh exchanges the stored refresh token for a new pair.
//
// stale is the access token the caller saw rejected. If the store already
// holds a different access token, a concurrent refresh has completed and its
// session is returned without a network call. Pass "" to always refresh.
func (p *Protocol) Refresh(ctx context.Context, stale string) (*models.Session, error) {
	if current := p.replaced(stale); current != nil {
		return current, nil
	}

	ch := p.group.DoChan(flightKey, func() (any, error) {
		// A flight that finished between the check above and DoChan has
		// already rotated the pair.
		if current := p.replaced(stale); current != nil {
			return current, nil
		}
		return p.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		sess := *res.Val.(*models.Session)
		return &sess, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// replaced returns the stored session when its access token is no longer
// stale, or nil.
func (p *Protocol) replaced(stale string) *models.Session {
	if stale == "" {
		return nil
	}
	current := p.store.Snapshot()
	if current == nil || current.AccessToken == stale {
		return nil
	}
	p.metrics.ObserveRefresh(metrics.RefreshReused)
	return current
}

func (p *Protocol) refresh(ctx context.Context) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.store.RefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if token == "" {
		p.metrics.ObserveRefresh(metrics.RefreshFailed)
		return nil, ErrNoRefreshToken
	}

	var previous models.Identity
	if snap := p.store.Snapshot(); snap != nil {
		previous = snap.User
	}

	var resp models.AuthResponse
	err = p.caller.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   Path,
		Body:   models.RefreshRequest{RefreshToken: token},
		Public: true,
	}, &resp)
	if err != nil {
		return nil, p.fail(ctx, err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, p.fail(ctx, errIncompleteResponse)
	}

	sess := models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         previous,
	}
	if resp.User != nil {
		sess.User = *resp.User
	}

	if err := p.store.Write(ctx, sess); err != nil {
		return nil, p.fail(ctx, err)
	}

	p.metrics.ObserveRefresh(metrics.RefreshSucceeded)
	p.logger.InfoContext(ctx, "session refreshed", logging.Username(sess.User.Username))

	for _, o := range p.snapshotObservers() {
		o.Refreshed(ctx, sess)
	}
	return &sess, nil
}

// fail clears the store and notifies observers. The returned error wraps cause.
func (p *Protocol) fail(ctx context.Context, cause error) error {
	if err := p.store.Clear(ctx); err != nil {
		p.logger.ErrorContext(ctx, "failed to clear session after refresh failure", logging.Error(err))
	}

	p.metrics.ObserveRefresh(metrics.RefreshFailed)
	p.logger.WarnContext(ctx, "session refresh failed", logging.Error(cause))

	for _, o := range p.snapshotObservers() {
		o.Terminated(ctx, cause)
	}
	return fmt.Errorf("refresh session: %w", cause)
}

func (p *Protocol) snapshotObservers() []Observer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Observer, len(p.observers))
	copy(out, p.observers)
	return out
}
