package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// credentials sets the headers every request to the project needs.
type credentials struct {
	apiKey string
	tokens ports.TokenSource
}

// apply sets the apikey header and a bearer token. Without a session token
// the api key itself is used as bearer, as anonymous clients do.
func (c credentials) apply(ctx context.Context, req *http.Request) error {
	token := ""
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		switch {
		case err == nil:
			token = t
		case errors.Is(err, domain.ErrMissingToken) && c.apiKey != "":
		default:
			return err
		}
	}
	if token == "" {
		token = c.apiKey
	}

	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// statusError drains resp and returns it as a *domain.StatusError.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.StatusError{Op: op, Code: resp.StatusCode, Body: string(body)}
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode/100 == 2
}

// drain discards the rest of a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

func send(client ports.HTTPClient, req *http.Request, op string) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: send request: %w", op, err)
	}
	return resp, nil
}
