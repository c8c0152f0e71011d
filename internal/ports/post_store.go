package ports

import (
	"context"

	"github.com/bft-labs/mdsync/internal/domain"
)

// PostStore reads and writes the remote post record.
// Implementations handle serialization, transport and authentication.
type PostStore interface {
	// UpdatePost replaces the stored markdown of the post.
	UpdatePost(ctx context.Context, id, markdown string) error

	// GetPost returns the current remote record.
	GetPost(ctx context.Context, id string) (domain.Post, error)
}
