// Package tokenstore persists the access token, refresh token and identity
// triple behind a pluggable key-value backend.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// Storage keys. Writes happen in this order.
const (
	KeyAccessToken  = "finedge_access_token"
	KeyRefreshToken = "finedge_refresh_token"
	KeyUser         = "finedge_user"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// ErrIncompleteSession is returned by Write when a token is missing.
var ErrIncompleteSession = errors.New("session must carry both access and refresh tokens")

// Entry is a single key/value pair handed to a backend.
type Entry struct {
	Key   string
	Value string
}

// Backend is the durable key-value layer under a Store.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Get returns the values present for keys. Absent keys are omitted.
	Get(ctx context.Context, keys []string) (map[string]string, error)
	// Put stores entries in order, atomically when the backend supports it.
	Put(ctx context.Context, entries []Entry) error
	// Delete removes keys. Deleting an absent key is not an error.
	Delete(ctx context.Context, keys []string) error
}

// Store reads and writes Sessions and caches the last one seen so the
// request path does not hit the backend for every call.
type Store struct {
	backend Backend
	logger  *logging.Logger

	mu     sync.RWMutex
	cached *models.Session
	loaded bool
}

// New creates a Store over backend. A nil logger discards output.
func New(backend Backend, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		backend: backend,
		logger:  logger.With(logging.Backend(backend.Name())),
	}
}

// Backend returns the underlying backend name.
func (s *Store) Backend() string {
	return s.backend.Name()
}

// Read loads the persisted Session. It returns nil when any of the three keys
// is missing or the identity cannot be decoded or carries neither an ID nor
// a username.
func (s *Store) Read(ctx context.Context) (*models.Session, error) {
	values, err := s.backend.Get(ctx, allKeys)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	sess := decode(values)
	if sess == nil && len(values) > 0 {
		s.logger.WarnContext(ctx, "ignoring partial session in token store", "keys_present", len(values))
	}

	s.mu.Lock()
	s.cached = sess
	s.loaded = true
	s.mu.Unlock()

	return clone(sess), nil
}

// Write persists sess, replacing whatever was stored before.
func (s *Store) Write(ctx context.Context, sess models.Session) error {
	if !sess.Complete() {
		return ErrIncompleteSession
	}

	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	entries := []Entry{
		{Key: KeyAccessToken, Value: sess.AccessToken},
		{Key: KeyRefreshToken, Value: sess.RefreshToken},
		{Key: KeyUser, Value: string(user)},
	}
	if err := s.backend.Put(ctx, entries); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	s.mu.Lock()
	s.cached = clone(&sess)
	s.loaded = true
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session stored", logging.Username(sess.User.Username))
	return nil
}

// Clear removes all three keys. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	// Drop the cache first so no caller keeps using a token being removed.
	s.mu.Lock()
	s.cached = nil
	s.loaded = true
	s.mu.Unlock()

	if err := s.backend.Delete(ctx, allKeys); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the cached Session without touching the backend.
func (s *Store) Snapshot() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.cached)
}

// AccessToken returns the current access token, or "" when there is none.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	sess, err := s.current(ctx)
	if err != nil || sess == nil {
		return "", err
	}
	return sess.AccessToken, nil
}

// RefreshToken returns the current refresh token, or "" when there is none.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	sess, err := s.current(ctx)
	if err != nil || sess == nil {
		return "", err
	}
	return sess.RefreshToken, nil
}

func (s *Store) current(ctx context.Context) (*models.Session, error) {
	s.mu.RLock()
	if s.loaded {
		sess := s.cached
		s.mu.RUnlock()
		return sess, nil
	}
	s.mu.RUnlock()

	return s.Read(ctx)
}

func decode(values map[string]string) *models.Session {
	access, refresh, raw := values[KeyAccessToken], values[KeyRefreshToken], values[KeyUser]
	if access == "" || refresh == "" || raw == "" {
		return nil
	}

	var user models.Identity
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	if user.ID == "" && user.Username == "" {
		return nil
	}

	return &models.Session{AccessToken: access, RefreshToken: refresh, User: user}
}

func clone(sess *models.Session) *models.Session {
	if sess == nil {
		return nil
	}
	c := *sess
	return &c
}
