// Package session owns the process-wide authentication state: it bootstraps
// from persisted credentials, performs login, registration and logout, and
// tells subscribers whenever the state changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"sync"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/gateway"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/refresh"
)

// Auth endpoints relative to the API root.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathMe       = "/auth/me"
	PathLogout   = "/auth/logout"
)

var (
	// ErrValidation is returned before any network call when input is
	// missing or malformed.
	ErrValidation = errors.New("validation failed")

	errIncompleteAuth = errors.New("auth response is missing tokens or user")
)

// Store is the token store view used by the manager.
type Store interface {
	Read(ctx context.Context) (*models.Session, error)
	Write(ctx context.Context, sess models.Session) error
	Clear(ctx context.Context) error
	Snapshot() *models.Session
	AccessToken(ctx context.Context) (string, error)
}

// Gateway sends API calls and reports sessions it had to end.
type Gateway interface {
	Call(ctx context.Context, req gateway.Request, out any) error
	OnTerminate(fn gateway.TerminateFunc)
}

// Refresher rotates tokens and reports the outcome to observers.
type Refresher interface {
	Refresh(ctx context.Context, stale string) (*models.Session, error)
	Subscribe(o refresh.Observer)
}

// Manager is the single owner of session state. Construct one per process.
type Manager struct {
	store     Store
	gateway   Gateway
	refresher Refresher
	logger    *logging.Logger

	mu    sync.RWMutex
	state State
	user  *models.Identity

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// NewManager wires a Manager to its collaborators and registers for refresh
// and termination events. The manager starts in StateBootstrapping.
func NewManager(store Store, gw Gateway, refresher Refresher, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}

	m := &Manager{
		store:     store,
		gateway:   gw,
		refresher: refresher,
		logger:    logger,
		state:     StateBootstrapping,
		subs:      make(map[int]func(Snapshot)),
	}

	refresher.Subscribe(observer{m})
	gw.OnTerminate(func(ctx context.Context, cause error) {
		m.terminated(ctx, cause)
	})

	return m
}

// Bootstrap restores the persisted session. With nothing persisted it moves
// to StateUnauthenticated without touching the network. Otherwise the
// session is verified against /auth/me, falling back to one refresh.
// Only store failures and ctx cancellation are returned. A cancelled
// bootstrap keeps the persisted session and leaves the state untouched.
func (m *Manager) Bootstrap(ctx context.Context) error {
	sess, err := m.store.Read(ctx)
	if err != nil {
		m.transition(ctx, StateUnauthenticated, nil)
		return fmt.Errorf("bootstrap session: %w", err)
	}
	if sess == nil {
		m.transition(ctx, StateUnauthenticated, nil)
		return nil
	}

	var me models.MeResponse
	err = m.gateway.Call(ctx, gateway.Request{
		Method:    http.MethodGet,
		Path:      PathMe,
		NoRefresh: true,
	}, &me)
	if err == nil {
		user := sess.User
		if me.User != nil && *me.User != user {
			user = *me.User
			sess.User = user
			if err := m.store.Write(ctx, *sess); err != nil {
				m.logger.WarnContext(ctx, "failed to persist verified identity", logging.Error(err))
			}
		}
		m.transition(ctx, StateAuthenticated, &user)
		return nil
	}

	if ctx.Err() != nil {
		return fmt.Errorf("bootstrap session: %w", ctx.Err())
	}
	m.logger.InfoContext(ctx, "stored session rejected, trying refresh", logging.Error(err))

	refreshed, err := m.refresher.Refresh(ctx, sess.AccessToken)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("bootstrap session: %w", ctx.Err())
		}
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.ErrorContext(ctx, "failed to clear session", logging.Error(clearErr))
		}
		m.transition(ctx, StateUnauthenticated, nil)
		return nil
	}

	user := refreshed.User
	m.transition(ctx, StateAuthenticated, &user)
	return nil
}

// Login authenticates with username and password.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	var resp models.AuthResponse
	err := m.gateway.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body:   models.LoginRequest{Username: username, Password: password},
		Public: true,
	}, &resp)
	if err != nil {
		m.logger.InfoContext(ctx, "login failed", logging.Username(username), logging.Error(err))
		return nil, err
	}

	return m.establish(ctx, resp)
}

// Register creates an account and signs in as it.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (*models.Identity, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))

	switch {
	case req.Username == "":
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	case req.Password == "":
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	case req.Email == "":
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrValidation, req.Email)
	}

	var resp models.AuthResponse
	err := m.gateway.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   PathRegister,
		Body:   req,
		Public: true,
	}, &resp)
	if err != nil {
		m.logger.InfoContext(ctx, "registration failed", logging.Username(req.Username), logging.Error(err))
		return nil, err
	}

	return m.establish(ctx, resp)
}

func (m *Manager) establish(ctx context.Context, resp models.AuthResponse) (*models.Identity, error) {
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.User == nil {
		return nil, errIncompleteAuth
	}

	user := *resp.User
	sess := models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         user,
	}
	if err := m.store.Write(ctx, sess); err != nil {
		return nil, err
	}

	m.transition(ctx, StateAuthenticated, &user)
	out := user
	return &out, nil
}

// Logout notifies the server when a token is held, then clears local state
// regardless of the outcome. Calling it repeatedly is safe.
func (m *Manager) Logout(ctx context.Context) error {
	token, err := m.store.AccessToken(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to load access token", logging.Error(err))
	}
	if token != "" {
		callErr := m.gateway.Call(ctx, gateway.Request{
			Method:    http.MethodPost,
			Path:      PathLogout,
			NoRefresh: true,
		}, nil)
		if callErr != nil {
			m.logger.DebugContext(ctx, "server logout failed", logging.Error(callErr))
		}
	}

	err = m.store.Clear(ctx)
	m.transition(ctx, StateUnauthenticated, nil)
	return err
}

// RefreshAccessToken forces a token rotation.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	_, err := m.refresher.Refresh(ctx, "")
	return err
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// User returns the authenticated identity, or nil.
func (m *Manager) User() *models.Identity {
	return m.Snapshot().User
}

// IsAuthenticated reports whether both an identity and an access token are
// held.
func (m *Manager) IsAuthenticated() bool {
	if !m.Snapshot().Authenticated() {
		return false
	}
	sess := m.store.Snapshot()
	return sess != nil && sess.AccessToken != ""
}

// Subscribe registers fn for state changes and returns a function that
// removes it. fn runs synchronously on the goroutine that caused the change.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state}
	if m.state == StateAuthenticated && m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// transition moves to state and notifies subscribers if anything changed.
func (m *Manager) transition(ctx context.Context, state State, user *models.Identity) {
	m.mu.Lock()
	before := m.snapshotLocked()
	m.state = state
	if state == StateAuthenticated && user != nil {
		u := *user
		m.user = &u
	} else {
		m.user = nil
	}
	after := m.snapshotLocked()
	m.mu.Unlock()

	if before.equal(after) {
		return
	}

	attrs := []any{logging.State(state.String())}
	if after.User != nil {
		attrs = append(attrs, logging.Username(after.User.Username), logging.Role(after.User.Role))
	}
	m.logger.InfoContext(ctx, "session state changed", attrs...)

	m.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(after)
	}
}

func (m *Manager) terminated(ctx context.Context, cause error) {
	m.logger.WarnContext(ctx, "session terminated", logging.Error(cause))
	m.transition(ctx, StateUnauthenticated, nil)
}

// observer adapts Manager to refresh.Observer.
type observer struct {
	m *Manager
}

func (o observer) Refreshed(ctx context.Context, sess models.Session) {
	user := sess.User
	o.m.transition(ctx, StateAuthenticated, &user)
}

func (o observer) Terminated(ctx context.Context, cause error) {
	o.m.terminated(ctx, cause)
}
