// Package auth supplies the bearer token of the current user session.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// DefaultLeeway is how long before expiry a token stops being handed out,
// so a request does not start with a token that expires in flight.
const DefaultLeeway = 30 * time.Second

// SessionToken implements ports.TokenSource for a configured access token.
//
// The signature is not verified: the token is issued and checked by the
// server. Only the exp claim is read so an expired session fails locally
// with domain.ErrSessionExpired instead of a 401 per request.
type SessionToken struct {
	raw    string
	leeway time.Duration
	now    func() time.Time

	claims jwt.RegisteredClaims
	parsed bool
}

// NewSessionToken wraps raw. Tokens that are not JWTs are passed through as-is.
func NewSessionToken(raw string, leeway time.Duration) *SessionToken {
	if leeway < 0 {
		leeway = 0
	}
	t := &SessionToken{raw: raw, leeway: leeway, now: time.Now}
	if raw != "" {
		_, _, err := jwt.NewParser().ParseUnverified(raw, &t.claims)
		t.parsed = err == nil
	}
	return t
}

// Token returns the raw token if it is present and not expired.
func (t *SessionToken) Token(ctx context.Context) (string, error) {
	if t.raw == "" {
		return "", domain.ErrMissingToken
	}
	if exp := t.ExpiresAt(); !exp.IsZero() && !t.now().Add(t.leeway).Before(exp) {
		return "", fmt.Errorf("token expired at %s: %w", exp.Format(time.RFC3339), domain.ErrSessionExpired)
	}
	return t.raw, nil
}

// ExpiresAt returns the exp claim, zero if unknown.
func (t *SessionToken) ExpiresAt() time.Time {
	if !t.parsed || t.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return t.claims.ExpiresAt.Time
}

// Subject returns the sub claim (the user id), empty if unknown.
func (t *SessionToken) Subject() string {
	if !t.parsed {
		return ""
	}
	return t.claims.Subject
}

var _ ports.TokenSource = (*SessionToken)(nil)
