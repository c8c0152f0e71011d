// Package scrollsync mirrors the relative scroll position of two panes.
//
// When the user scrolls one pane, the other is moved to the same fraction of
// its own scrollable extent. The scroll event that the mirrored pane raises
// in response is swallowed, so the two panes never chase each other.
//
// # Usage
//
// Wrap each pane in a type implementing [Pane] and register the listeners
// with the host's scroll events:
//
//	m := scrollsync.New(editor, preview)
//	host.OnEditorScroll(m.Listener(scrollsync.SideA))
//	host.OnPreviewScroll(m.Listener(scrollsync.SideB))
//
//	// on document reload
//	m.Detach()
//
// Panes whose content fits entirely (no scrollable extent) report a ratio of 0.
package scrollsync
