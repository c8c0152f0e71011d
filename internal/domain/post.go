package domain

import "time"

// Post is the persisted representation of a document in the remote store.
type Post struct {
	// ID is the remote record identifier
	ID string `json:"id"`

	// Markdown is the stored document content
	Markdown string `json:"markdown"`

	// UpdatedAt is the server-side modification time, zero if unknown
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsEmpty returns true if the post has no stored content.
func (p Post) IsEmpty() bool {
	return p.Markdown == ""
}
