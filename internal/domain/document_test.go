package domain

import (
	"sync"
	"testing"
)

func TestDocument_InsertAt(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor int
		insert string
		want   string
	}{
		{"start", "hello", 0, "X", "Xhello"},
		{"middle", "hello", 2, "X", "heXllo"},
		{"end", "hello", 5, "X", "helloX"},
		{"past end clamps", "hello", 99, "X", "helloX"},
		{"negative clamps", "hello", -3, "X", "Xhello"},
		{"empty document", "", 4, "X", "X"},
		{"multibyte runes", "héllo wörld", 7, "X", "héllo wXörld"},
		{"emoji", "a😀b", 2, "X", "a😀Xb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(tt.text)
			if got := doc.InsertAt(tt.cursor, tt.insert); got != tt.want {
				t.Errorf("InsertAt() = %q, want %q", got, tt.want)
			}
			if doc.Text() != tt.want {
				t.Errorf("Text() = %q, want %q", doc.Text(), tt.want)
			}
		})
	}
}

func TestDocument_Set(t *testing.T) {
	doc := NewDocument("a")
	if doc.Set("a") {
		t.Error("Set() with same text reported change")
	}
	if !doc.Set("b") {
		t.Error("Set() with new text reported no change")
	}
	if doc.RuneLen() != 1 {
		t.Errorf("RuneLen() = %d", doc.RuneLen())
	}
	doc.Set("😀😀")
	if doc.RuneLen() != 2 {
		t.Errorf("RuneLen() = %d, want 2", doc.RuneLen())
	}
}

func TestDocument_ConcurrentInsert(t *testing.T) {
	doc := NewDocument("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc.InsertAt(doc.RuneLen(), "x")
		}()
	}
	wg.Wait()
	if doc.RuneLen() != 50 {
		t.Errorf("RuneLen() = %d, want 50", doc.RuneLen())
	}
}

func TestImageMarkdown(t *testing.T) {
	got := ImageMarkdown("https://example.co/a.png")
	if got != "![alt text](https://example.co/a.png)" {
		t.Errorf("ImageMarkdown() = %q", got)
	}
}
