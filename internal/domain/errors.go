package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent error conditions in the mdsync domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyOpen is returned when Start() is called on an open session.
	ErrAlreadyOpen = errors.New("mdsync: session already open")

	// ErrNotOpen is returned when Stop() is called on a closed session.
	ErrNotOpen = errors.New("mdsync: session not open")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("mdsync: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("mdsync: invalid configuration")

	// ErrMissingPostID is returned when a post operation has no post id.
	ErrMissingPostID = errors.New("mdsync: post id is required")

	// ErrPostNotFound is returned when the remote store has no post with the id.
	ErrPostNotFound = errors.New("mdsync: post not found")

	// ErrEmptyFile is returned when an upload is attempted without content.
	// No network call is made.
	ErrEmptyFile = errors.New("mdsync: no file content to upload")

	// ErrEmptyChunk is returned when a chunk read yields no bytes.
	ErrEmptyChunk = errors.New("mdsync: empty chunk")

	// ErrUploadNotFound is returned by transports when the server no longer
	// knows a previously created upload.
	ErrUploadNotFound = errors.New("mdsync: upload not found")

	// ErrOffsetMismatch is returned when the server reports fewer bytes than
	// were already acknowledged within the same upload.
	ErrOffsetMismatch = errors.New("mdsync: server offset behind acknowledged offset")

	// ErrSessionExpired is returned when the bearer token has expired.
	ErrSessionExpired = errors.New("mdsync: session token expired")

	// ErrMissingToken is returned when no bearer token is configured.
	ErrMissingToken = errors.New("mdsync: no session token")
)

// StatusError reports a non-2xx response from a remote service.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Code, e.Body)
}

// permanent lists domain errors that never succeed on retry.
var permanent = []error{
	ErrEmptyFile,
	ErrEmptyChunk,
	ErrUploadNotFound,
	ErrOffsetMismatch,
	ErrSessionExpired,
	ErrMissingToken,
	ErrMissingPostID,
	ErrPostNotFound,
	ErrInvalidConfig,
}

// IsTransient reports whether err is worth retrying.
// Responses with 4xx status are permanent except 409, 423 and 429; every
// other failure (5xx, network, unexpected EOF) is transient. Context
// cancellation is never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, p := range permanent {
		if errors.Is(err, p) {
			return false
		}
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.Code >= 400 && se.Code < 500 {
			return se.Code == http.StatusConflict ||
				se.Code == http.StatusLocked ||
				se.Code == http.StatusTooManyRequests
		}
		return true
	}
	return true
}
