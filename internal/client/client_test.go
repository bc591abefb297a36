package client

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/config"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/tokenstore"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		API:   config.APIConfig{BaseURL: "http://127.0.0.1:1/api", Timeout: time.Second},
		Store: config.StoreConfig{Backend: backend, Path: filepath.Join(t.TempDir(), "credentials.yaml"), Profile: "test"},
		Redis: config.RedisConfig{KeyPrefix: "finedge:", TTL: time.Hour},
	}
}

func testSession() models.Session {
	return models.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         models.Identity{ID: "u1", Username: "alice", Role: models.RoleCustomer},
	}
}

func TestNew_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		backend string
		prepare func(cfg *config.Config)
	}{
		{name: "file", backend: config.BackendFile},
		{name: "memory", backend: config.BackendMemory},
		{
			name:    "redis",
			backend: config.BackendRedis,
			prepare: func(cfg *config.Config) { cfg.Redis.URL = "redis://" + mr.Addr() + "/0" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.backend)
			if tt.prepare != nil {
				tt.prepare(cfg)
			}

			c, err := New(context.Background(), cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Close() })

			assert.Equal(t, tt.backend, c.Store.Backend())
			assert.NotNil(t, c.Gateway)
			assert.NotNil(t, c.Session)
			assert.NotNil(t, c.API)
			assert.Equal(t, "http://127.0.0.1:1/api", c.Gateway.Transport().BaseURL())
		})
	}
}

func TestNew_RedisKeysScopedByProfile(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, config.BackendRedis)
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Store.Write(context.Background(), testSession()))

	got, err := mr.Get("finedge:test:" + tokenstore.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access", got)
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t, config.BackendRedis)
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, "etcd"))
	assert.Error(t, err)
}

func TestNew_WithBackend(t *testing.T) {
	backend := tokenstore.NewMemoryBackend()
	backend.Set(tokenstore.KeyAccessToken, "a")

	c, err := New(context.Background(), testConfig(t, config.BackendFile), WithBackend(backend))
	require.NoError(t, err)

	assert.Equal(t, "memory", c.Store.Backend())
	assert.NoError(t, c.Close())
}

func TestNew_FileSessionSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	ctx := context.Background()

	first, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, first.Store.Write(ctx, testSession()))

	second, err := New(ctx, cfg)
	require.NoError(t, err)
	sess, err := second.Store.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.User.Username)
}
