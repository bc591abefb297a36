// Package client assembles the session stack from configuration: token
// store backend, transport, refresh protocol, gateway, session manager and
// the typed API clients.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/api"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/config"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/gateway"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/metrics"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/refresh"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/session"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/tokenstore"
)

type Option func(*options)

type options struct {
	logger     *logging.Logger
	registerer prometheus.Registerer
	httpClient *http.Client
	backend    tokenstore.Backend
}

func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer registers client metrics on reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBackend bypasses store.backend and uses b directly.
func WithBackend(b tokenstore.Backend) Option {
	return func(o *options) { o.backend = b }
}

// Client is one wired session stack. Construct it once per process.
type Client struct {
	Store   *tokenstore.Store
	Gateway *gateway.Gateway
	Refresh *refresh.Protocol
	Session *session.Manager
	API     *api.Client
	Metrics *metrics.Metrics

	closer io.Closer
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	c := &Client{Metrics: metrics.New(o.registerer)}

	backend := o.backend
	if backend == nil {
		b, closer, err := openBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		backend, c.closer = b, closer
	}
	c.Store = tokenstore.New(backend, o.logger)

	transport := gateway.NewTransport(gateway.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		HTTPClient: o.httpClient,
		Metrics:    c.Metrics,
		Logger:     o.logger,
	})
	c.Refresh = refresh.New(transport, c.Store,
		refresh.WithLogger(o.logger),
		refresh.WithMetrics(c.Metrics),
	)
	c.Gateway = gateway.New(transport, c.Store, c.Refresh)
	c.Session = session.NewManager(c.Store, c.Gateway, c.Refresh, o.logger)
	c.API = api.New(c.Gateway)

	return c, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (tokenstore.Backend, io.Closer, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return tokenstore.NewMemoryBackend(), nil, nil
	case config.BackendRedis:
		b, err := tokenstore.NewRedisBackendFromURL(ctx, cfg.Redis.URL,
			tokenstore.WithKeyPrefix(cfg.Redis.KeyPrefix+cfg.Store.Profile+":"),
			tokenstore.WithTTL(cfg.Redis.TTL),
		)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case config.BackendFile, "":
		b, err := tokenstore.NewFileBackend(cfg.Store.Path, cfg.Store.Profile)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Close releases the store backend connection, if any.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
