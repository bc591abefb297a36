// Package devserver is an in-memory FinEdge API for local development and
// integration tests. It issues real HS256 access tokens and rotating
// refresh tokens so the session client can be exercised end to end.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/common/middleware"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// APIPrefix is where the API routes are mounted.
const APIPrefix = "/api"

type Config struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Seed            int64
	// BcryptCost defaults to bcrypt.DefaultCost. Tests lower it.
	BcryptCost int
	Logger     *logging.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// AllowedOrigins enables CORS for browser clients. Empty disables it.
	AllowedOrigins []string
}

type Server struct {
	cfg      Config
	repo     *repository
	tokens   *TokenIssuer
	registry *prometheus.Registry
	logger   *logging.Logger
	started  time.Time

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func New(cfg Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	tokens := NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	tokens.now = cfg.Clock

	s := &Server{
		cfg:      cfg,
		repo:     newRepository(cfg.BcryptCost, cfg.Clock),
		tokens:   tokens,
		registry: prometheus.NewRegistry(),
		logger:   cfg.Logger.With(logging.Service("devserver")),
		started:  cfg.Clock(),
	}

	if err := seed(s.repo, cfg.Seed); err != nil {
		return nil, err
	}

	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finedge_devserver_http_requests_total",
		Help: "HTTP requests served, by status code and method.",
	}, []string{"code", "method"})
	s.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finedge_devserver_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	sessions := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "finedge_devserver_refresh_sessions",
		Help: "Refresh tokens currently valid.",
	}, func() float64 { return float64(s.repo.sessionCount()) })
	s.registry.MustRegister(s.requests, s.duration, sessions)

	return s, nil
}

// Handler returns the full router: the API under APIPrefix, /healthz and
// /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(s.cfg.AllowedOrigins...)))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Mount(APIPrefix, s.apiRouter())

	return promhttp.InstrumentHandlerCounter(s.requests,
		promhttp.InstrumentHandlerDuration(s.duration, r))
}

func (s *Server) apiRouter() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/auth/me", s.handleMe)
		r.Post("/auth/logout", s.handleLogout)

		r.Get("/accounts", s.handleListAccounts)
		r.Post("/accounts", s.handleCreateAccount)
		r.Get("/accounts/{id}", s.handleGetAccount)
		r.Get("/accounts/{id}/transactions", s.handleAccountTransactions)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)

		r.Get("/loans", s.handleListLoans)
		r.Get("/loans/{id}", s.handleGetLoan)
		r.Post("/loans/{id}/emi/{emiId}/pay", s.handlePayEMI)

		r.Get("/loan-applications", s.handleListApplications)
		r.Post("/loan-applications", s.handleSubmitApplication)
		r.With(requireRole(models.RoleBanker, models.RoleAdmin)).Get("/loan-applications/pending", s.handlePendingApplications)
		r.Get("/loan-applications/{id}", s.handleGetApplication)
		r.With(requireRole(models.RoleBanker, models.RoleAdmin)).Post("/loan-applications/{id}/review", s.handleReviewApplication)

		r.Get("/notifications", s.handleListNotifications)
		r.Patch("/notifications/read-all", s.handleMarkAllRead)
		r.Patch("/notifications/{id}/read", s.handleMarkRead)

		r.With(requireRole(models.RoleCustomer)).Get("/analytics/customer", s.handleCustomerAnalytics)
		r.With(requireRole(models.RoleBanker, models.RoleAdmin)).Get("/analytics/banker", s.handleBankerAnalytics)
		r.With(requireRole(models.RoleAdmin)).Get("/analytics/admin", s.handleAdminAnalytics)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.DebugContext(r.Context(), "request served",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Status(ww.Status()),
			logging.Duration(time.Since(start)),
		)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "dev server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.InfoContext(ctx, "dev server stopped")
	return nil
}

func (s *Server) uptime() time.Duration {
	return s.cfg.Clock().Sub(s.started)
}
