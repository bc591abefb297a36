package session

import "github.com/Najib-Murshed-UWO/FinEdge/internal/models"

// State is the lifecycle position of the process-wide session.
type State int

const (
	// StateBootstrapping is the initial state until persisted credentials
	// have been verified or discarded.
	StateBootstrapping State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	State State
	// User is nil unless State is StateAuthenticated.
	User *models.Identity
}

// Authenticated reports whether the snapshot carries a verified identity.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

func (s Snapshot) equal(o Snapshot) bool {
	if s.State != o.State {
		return false
	}
	if s.User == nil || o.User == nil {
		return s.User == o.User
	}
	return *s.User == *o.User
}
