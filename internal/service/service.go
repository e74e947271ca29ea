// Package service contains the ownership-scoped application services: identity,
// boards, tasks, attachments and tags.
package service

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// PasswordHasher hashes credentials into an opaque encoded string.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// TokenManager issues and verifies bearer credentials carrying a user id.
type TokenManager interface {
	Issue(userID uuid.UUID) (string, time.Time, error)
	Verify(raw string) (uuid.UUID, error)
}

// newID returns a fresh V4 identifier.
func newID() (uuid.UUID, error) { return uuid.NewV4() }

// resolveURL makes a stored URL absolute by prefixing origin. URLs with a scheme or
// a host (including protocol-relative "//host/...") are returned unchanged.
func resolveURL(origin, raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && (u.IsAbs() || u.Host != "") {
		return raw
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return strings.TrimRight(origin, "/") + raw
}
