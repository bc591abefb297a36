package models

import "strings"

// Known role tags. The set is open: the backend may return others.
const (
	RoleCustomer = "customer"
	RoleBanker   = "banker"
	RoleAdmin    = "admin"
)

// Identity is the authenticated principal returned by the auth endpoints.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// HasRole reports whether the identity's role matches any of roles, ignoring case.
func (i *Identity) HasRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, role := range roles {
		if strings.EqualFold(strings.TrimSpace(role), strings.TrimSpace(i.Role)) {
			return true
		}
	}
	return false
}

// Session pairs the bearer credentials with the identity they were issued to.
// A Session is only meaningful when Complete reports true.
type Session struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         Identity `json:"user"`
}

// Complete reports whether both tokens are set.
func (s *Session) Complete() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != ""
}
