package ports

// Renderer converts Markdown to HTML. It is treated as a pure function.
type Renderer interface {
	Render(markdown string) (string, error)
}
