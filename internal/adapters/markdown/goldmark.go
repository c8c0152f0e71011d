// Package markdown renders post Markdown to HTML for the preview pane.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/bft-labs/mdsync/internal/ports"
)

// Options controls the goldmark engine.
type Options struct {
	// Unsafe passes raw HTML in the document through to the output.
	Unsafe bool
	// HardWraps renders single newlines as <br>.
	HardWraps bool
}

// Goldmark implements ports.Renderer. The engine is built once and is safe
// for concurrent use.
type Goldmark struct {
	engine goldmark.Markdown
}

// NewGoldmark builds a renderer with GitHub Flavored Markdown enabled.
func NewGoldmark(opts Options) *Goldmark {
	var rendererOptions []goldmark.Option
	var htmlOptions []renderer.Option
	if opts.Unsafe {
		htmlOptions = append(htmlOptions, html.WithUnsafe())
	}
	if opts.HardWraps {
		htmlOptions = append(htmlOptions, html.WithHardWraps())
	}
	if len(htmlOptions) > 0 {
		rendererOptions = append(rendererOptions, goldmark.WithRendererOptions(htmlOptions...))
	}

	engine := goldmark.New(append([]goldmark.Option{
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}, rendererOptions...)...)

	return &Goldmark{engine: engine}
}

// Render converts markdown to HTML.
func (g *Goldmark) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := g.engine.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

var _ ports.Renderer = (*Goldmark)(nil)
