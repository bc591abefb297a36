// Package gateway issues JSON calls against the FinEdge API, attaching the
// stored bearer token and recovering from an expired access token by
// refreshing once and retrying.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/common/middleware"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/metrics"
)

// DefaultBaseURL is the API root used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api"

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 10 * time.Second

const maxBodyBytes = 4 << 20

// ErrSessionExpired is returned when an authenticated call could not be
// recovered and the local session was cleared.
var ErrSessionExpired = errors.New("session expired, please log in again")

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == code
}

// Request describes one logical API call.
type Request struct {
	Method string
	// Path is relative to the base URL and may carry a query string.
	Path string
	// Body is JSON-encoded when non-nil.
	Body   any
	Header http.Header
	// Public requests never carry a bearer token and never trigger a refresh.
	Public bool
	// NoRefresh sends the bearer token but returns a 401 as is, without
	// refreshing or ending the session.
	NoRefresh bool
}

// Config configures a Transport.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *logging.Logger
}

// Transport sends single HTTP exchanges. It knows nothing about sessions.
type Transport struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewTransport creates a Transport, filling in defaults for empty fields.
func NewTransport(cfg Config) *Transport {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Transport{
		baseURL:    baseURL,
		httpClient: client,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// BaseURL returns the API root requests are resolved against.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Call performs req without credentials and decodes a 2xx body into out.
func (t *Transport) Call(ctx context.Context, req Request, out any) error {
	resp, err := t.send(ctx, req, "", 1)
	if err != nil {
		return err
	}
	return resp.decode(out)
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// decode turns the response into out or an *HTTPError.
func (r *response) decode(out any) error {
	if !r.ok() {
		return newHTTPError(r.status, r.body)
	}
	if out == nil || len(bytes.TrimSpace(r.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newHTTPError(status int, body []byte) *HTTPError {
	var payload struct {
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = strings.TrimSpace(payload.Message)
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &HTTPError{StatusCode: status, Message: msg}
}

// send issues one HTTP exchange. token is attached as a bearer credential
// when non-empty.
func (t *Transport) send(ctx context.Context, req Request, token string, attempt int) (*response, error) {
	ctx, requestID := middleware.EnsureRequestID(ctx)

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if token != "" && !req.Public {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set(middleware.HeaderRequestID, requestID)

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.metrics.ObserveRequest(method, 0, time.Since(start))
		t.logger.WarnContext(ctx, "request failed",
			logging.Method(method),
			logging.Path(req.Path),
			logging.Attempt(attempt),
			logging.Error(err),
		)
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	t.metrics.ObserveRequest(method, resp.StatusCode, elapsed)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	t.logger.DebugContext(ctx, "request completed",
		logging.Method(method),
		logging.Path(req.Path),
		logging.Status(resp.StatusCode),
		logging.Duration(elapsed),
		logging.Attempt(attempt),
	)

	return &response{status: resp.StatusCode, body: data}, nil
}
