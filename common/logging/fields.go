package logging

import (
	"log/slog"
	"time"
)

// Attribute keys. Keep these stable: dashboards and log queries match on them.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"

	// Session.
	FieldUsername = "username"
	FieldRole     = "role"
	FieldState    = "session_state"
	FieldBackend  = "store_backend"

	// HTTP exchange.
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldAttempt  = "attempt"
	FieldDuration = "duration_ms"

	FieldError = "error"
)

func Service(name string) slog.Attr  { return slog.String(FieldService, name) }
func Username(name string) slog.Attr { return slog.String(FieldUsername, name) }
func Role(role string) slog.Attr     { return slog.String(FieldRole, role) }
func State(name string) slog.Attr    { return slog.String(FieldState, name) }
func Backend(name string) slog.Attr  { return slog.String(FieldBackend, name) }

func Method(method string) slog.Attr { return slog.String(FieldMethod, method) }
func Path(path string) slog.Attr     { return slog.String(FieldPath, path) }
func Status(code int) slog.Attr      { return slog.Int(FieldStatus, code) }

// Attempt is 1 for the first send of a request and 2 for its retry.
func Attempt(n int) slog.Attr { return slog.Int(FieldAttempt, n) }

// Duration records d in whole milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error records err's message. A nil err logs as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
