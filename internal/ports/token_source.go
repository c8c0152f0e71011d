package ports

import "context"

// TokenSource supplies the bearer token of the current session.
type TokenSource interface {
	// Token returns a usable token or an error if the session is missing or expired.
	Token(ctx context.Context) (string, error)
}
