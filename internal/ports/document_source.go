package ports

import "context"

// DocumentSource is the local home of the edited document.
type DocumentSource interface {
	// Read returns the current content.
	Read(ctx context.Context) (string, error)

	// Write replaces the content atomically.
	Write(ctx context.Context, content string) error

	// Watch delivers the content after each external change until ctx is done.
	// The channel is closed when watching stops.
	Watch(ctx context.Context) (<-chan string, error)
}
