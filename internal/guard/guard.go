// Package guard decides whether a role-restricted surface may be shown for
// the current session.
package guard

import (
	"context"
	"strings"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/session"
)

// Navigation targets.
const (
	LoginPath          = "/login"
	DefaultLandingPath = "/dashboard"
	BankerLandingPath  = "/banker/dashboard"
	AdminLandingPath   = "/admin/dashboard"
)

// Outcome is what the caller should do with a protected surface.
type Outcome int

const (
	// Wait means the session is still bootstrapping. Show nothing yet.
	Wait Outcome = iota
	Redirect
	Render
)

func (o Outcome) String() string {
	switch o {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a snapshot. Location is set only for
// Redirect.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Source provides session snapshots and change notifications.
type Source interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Option configures a Guard.
type Option func(*Guard)

// WithLoginPath overrides where unauthenticated users are sent.
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		g.loginPath = path
	}
}

// WithLandingPath overrides where users lacking a role are sent.
func WithLandingPath(path string) Option {
	return func(g *Guard) {
		g.landingPath = path
	}
}

// Guard protects one surface. An empty role set admits any authenticated user.
type Guard struct {
	roles       []string
	loginPath   string
	landingPath string
}

// New creates a Guard admitting the given roles.
func New(roles []string, opts ...Option) *Guard {
	g := &Guard{
		loginPath:   LoginPath,
		landingPath: DefaultLandingPath,
	}
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			g.roles = append(g.roles, r)
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Roles returns the admitted roles.
func (g *Guard) Roles() []string {
	out := make([]string, len(g.roles))
	copy(out, g.roles)
	return out
}

// Evaluate maps a snapshot to a Decision.
func (g *Guard) Evaluate(snap session.Snapshot) Decision {
	switch {
	case snap.State == session.StateBootstrapping:
		return Decision{Outcome: Wait}
	case !snap.Authenticated():
		return Decision{Outcome: Redirect, Location: g.loginPath}
	case len(g.roles) > 0 && !snap.User.HasRole(g.roles...):
		return Decision{Outcome: Redirect, Location: g.landingPath}
	default:
		return Decision{Outcome: Render}
	}
}

// Watch calls fn with the current decision and again after every session
// change, until the returned stop function is called.
func (g *Guard) Watch(src Source, fn func(Decision)) (stop func()) {
	unsubscribe := src.Subscribe(func(snap session.Snapshot) {
		fn(g.Evaluate(snap))
	})
	fn(g.Evaluate(src.Snapshot()))
	return unsubscribe
}

// Await blocks until the decision is no longer Wait or ctx is done.
func (g *Guard) Await(ctx context.Context, src Source) (Decision, error) {
	decided := make(chan Decision, 1)
	stop := g.Watch(src, func(d Decision) {
		if d.Outcome == Wait {
			return
		}
		select {
		case decided <- d:
		default:
		}
	})
	defer stop()

	select {
	case d := <-decided:
		return d, nil
	case <-ctx.Done():
		return Decision{Outcome: Wait}, ctx.Err()
	}
}

// LandingPath returns the home surface for a role.
func LandingPath(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case models.RoleAdmin:
		return AdminLandingPath
	case models.RoleBanker:
		return BankerLandingPath
	default:
		return DefaultLandingPath
	}
}
