package domain

import (
	"fmt"
	"sync"
	"unicode/utf8"
)

// DefaultSentinel is the placeholder content of a new, unedited document.
// It is never written to the remote store.
const DefaultSentinel = "# Hello, world!"

// Document is the editable Markdown buffer of an edit session.
// It is mutated only by user edits and by image insertion.
type Document struct {
	mu   sync.RWMutex
	text string
}

// NewDocument creates a document holding the given text.
func NewDocument(text string) *Document {
	return &Document{text: text}
}

// Text returns the current content.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Set replaces the content and reports whether it changed.
func (d *Document) Set(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.text == text {
		return false
	}
	d.text = text
	return true
}

// InsertAt splices s into the document at cursor, counted in runes.
// Cursors outside the document are clamped to its bounds.
// Returns the new content.
func (d *Document) InsertAt(cursor int, s string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	at := runeOffset(d.text, cursor)
	d.text = d.text[:at] + s + d.text[at:]
	return d.text
}

// runeOffset converts a rune cursor into a byte offset within text.
func runeOffset(text string, cursor int) int {
	if cursor <= 0 {
		return 0
	}
	n := 0
	for i := range text {
		if n == cursor {
			return i
		}
		n++
	}
	return len(text)
}

// RuneLen returns the document length in runes, the unit used by cursors.
func (d *Document) RuneLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return utf8.RuneCountInString(d.text)
}

// ImageMarkdown returns the Markdown image reference inserted for an
// uploaded image.
func ImageMarkdown(url string) string {
	return fmt.Sprintf("![alt text](%s)", url)
}
