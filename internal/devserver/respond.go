package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

const maxRequestBytes = 1 << 20

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes the {message} error body the client decodes.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.MessageResponse{Message: message})
}

// writeErr maps repository errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, bad.msg)
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, errForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, errUserExists):
		writeError(w, http.StatusConflict, "Username already exists")
	case errors.Is(err, errInsufficientFunds):
		writeError(w, http.StatusBadRequest, "Insufficient funds")
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON decodes a bounded request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return badRequest("Request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Sprintf("Invalid request body: %v", err))
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
// Returns defaultVal if the parameter is empty or invalid.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return defaultVal
}

// page applies limit and offset to n items and returns the bounds.
func page(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
