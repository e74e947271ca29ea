// Package token issues and verifies HS256 bearer tokens carrying the user id.
package token

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/taskboard/internal/errs"
)

// leeway tolerates small clock skew between issuer and verifier.
const leeway = 30 * time.Second

// JWT signs and verifies access tokens with a shared key.
type JWT struct {
	signKey []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewJWT constructs an issuer/verifier pair.
func NewJWT(signKey []byte, ttl time.Duration) *JWT {
	return &JWT{signKey: signKey, ttl: ttl, now: time.Now}
}

// Issue creates a signed token whose subject is userID.
func (j *JWT) Issue(userID uuid.UUID) (string, time.Time, error) {
	now := j.now()
	exp := now.Add(j.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(j.signKey)
	return signed, exp, err
}

// Verify checks signature and validity window and returns the subject.
// Every failure is reported as errs.ErrUnauthorized.
func (j *JWT) Verify(raw string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.signKey, nil
	}, jwt.WithLeeway(leeway), jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}
