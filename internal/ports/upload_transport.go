package ports

import (
	"context"

	"github.com/bft-labs/mdsync/internal/domain"
)

// UploadTransport speaks a chunked, resumable upload protocol.
// Chunks are written strictly in order; each call returns only after the
// server acknowledged the chunk.
type UploadTransport interface {
	// Create starts a server-side upload for the session and returns its
	// handle (stored in UploadSession.UploadURL).
	Create(ctx context.Context, session domain.UploadSession) (string, error)

	// Offset returns the number of bytes the server has acknowledged.
	// Returns domain.ErrUploadNotFound if the server no longer knows the upload.
	Offset(ctx context.Context, session domain.UploadSession) (int64, error)

	// WriteChunk sends chunk starting at offset and returns the new
	// acknowledged offset.
	WriteChunk(ctx context.Context, session domain.UploadSession, offset int64, chunk []byte) (int64, error)

	// Finish finalizes an upload whose bytes are all acknowledged.
	Finish(ctx context.Context, session domain.UploadSession) error

	// Abort discards a server-side upload.
	Abort(ctx context.Context, session domain.UploadSession) error
}

// UploadSessionStore persists upload resume state keyed by fingerprint.
type UploadSessionStore interface {
	// Find returns the stored session for fingerprint, if any.
	Find(ctx context.Context, fingerprint string) (domain.UploadSession, bool, error)

	// Save stores or replaces the session atomically.
	Save(ctx context.Context, session domain.UploadSession) error

	// Remove deletes the session. Removing an unknown fingerprint is not an error.
	Remove(ctx context.Context, fingerprint string) error
}
