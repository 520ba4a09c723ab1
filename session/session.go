// Package session turns the client-held JWT into an explicit session object
// that is threaded into the form engine, replacing ambient token reads.
// The token is decoded, never cryptographically verified: presence of claims
// only gates UI behavior and form defaults, it is not a security boundary.
package session

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const roleAdmin = "ADMIN"

// Session is the decoded identity of the current user.
type Session struct {
	UserID         string
	Role           string
	OrganizationID string
	Name           string
	Email          string
}

// IsAdmin reports whether the session carries the admin role. Admins see and
// may change organization-linked fields; everyone else has the organization
// injected and hidden.
func (s *Session) IsAdmin() bool {
	return s != nil && strings.EqualFold(s.Role, roleAdmin)
}

// Anonymous reports whether there is no authenticated user at all.
func (s *Session) Anonymous() bool {
	return s == nil || s.UserID == ""
}

type claims struct {
	jwt.RegisteredClaims
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

// FromToken decodes a JWT without verifying its signature and extracts the
// profile claims used as form defaults. An empty token yields a nil session.
func FromToken(token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &Session{
		UserID:         c.Subject,
		Role:           c.Role,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		Email:          c.Email,
	}, nil
}
