package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

type userKey struct{}

func currentUser(ctx context.Context) *user {
	u, _ := ctx.Value(userKey{}).(*user)
	return u
}

// requireAuth validates the bearer access token and loads its user.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		claims, err := s.tokens.ValidateAccessToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		u, ok := s.repo.userByID(claims.UserID)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	})
}

// requireRole rejects users whose role is not in roles with 403.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !currentUser(r.Context()).HasRole(roles...) {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// issue mints an access token and a fresh refresh token for u.
func (s *Server) issue(u *user) (models.AuthResponse, error) {
	access, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return models.AuthResponse{}, err
	}
	refresh := s.tokens.GenerateRefreshToken()
	s.repo.createSession(u.ID, refresh, s.cfg.RefreshTokenTTL)
	return authResponse(u, access, refresh), nil
}

func authResponse(u *user, access, refresh string) models.AuthResponse {
	identity := u.Identity
	return models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		User:         &identity,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	u, err := s.repo.authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.InfoContext(r.Context(), "login rejected", logging.Username(req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	resp, err := s.issue(u)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "login", logging.Username(u.Username), logging.Role(u.Role))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	switch req.Role {
	case "":
		req.Role = models.RoleCustomer
	case models.RoleCustomer, models.RoleBanker, models.RoleAdmin:
	default:
		writeError(w, http.StatusBadRequest, "Unknown role")
		return
	}

	u, err := s.repo.createUser(req)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp, err := s.issue(u)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "user registered", logging.Username(u.Username), logging.Role(u.Role))
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	next := s.tokens.GenerateRefreshToken()
	u, err := s.repo.rotateSession(req.RefreshToken, next, s.cfg.RefreshTokenTTL)
	if err != nil {
		if errors.Is(err, errInvalidRefresh) {
			writeError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		writeErr(w, err)
		return
	}

	access, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.logger.DebugContext(r.Context(), "refresh token rotated", logging.Username(u.Username))
	writeJSON(w, http.StatusOK, authResponse(u, access, next))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := currentUser(r.Context()).Identity
	writeJSON(w, http.StatusOK, models.MeResponse{User: &identity})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())
	revoked := s.repo.revokeSessions(u)
	s.logger.InfoContext(r.Context(), "logout", logging.Username(u.Username), "revoked", revoked)
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}
