package markdown

import (
	"strings"
	"testing"
)

func TestGoldmark_Render(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "heading",
			input:    "# Hello",
			contains: []string{`<h1 id="hello">Hello</h1>`},
		},
		{
			name:     "image",
			input:    "![](https://example.co/storage/v1/object/public/media/abc)",
			contains: []string{`<img src="https://example.co/storage/v1/object/public/media/abc" alt="">`},
		},
		{
			name:     "gfm table",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |\n",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "gfm strikethrough",
			input:    "~~gone~~",
			contains: []string{"<del>gone</del>"},
		},
		{
			name:     "raw html omitted by default",
			input:    "<div class=\"x\">hi</div>",
			excludes: []string{`<div class="x">`},
		},
		{
			name:     "raw html passed when unsafe",
			opts:     Options{Unsafe: true},
			input:    "<div class=\"x\">hi</div>",
			contains: []string{`<div class="x">hi</div>`},
		},
		{
			name:     "hard wraps",
			opts:     Options{HardWraps: true},
			input:    "one\ntwo",
			contains: []string{"<br>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewGoldmark(tt.opts).Render(tt.input)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Render() = %q, want to contain %q", got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("Render() = %q, must not contain %q", got, bad)
				}
			}
		})
	}
}

func TestGoldmark_Empty(t *testing.T) {
	got, err := NewGoldmark(Options{}).Render("")
	if err != nil || got != "" {
		t.Errorf("Render(\"\") = %q, %v", got, err)
	}
}
