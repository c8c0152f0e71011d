package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(ctx context.Context) (string, error) {
	return s.token, s.err
}

func TestPostStore_GetPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/rest/v1/posts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "eq.42" {
			t.Errorf("id filter = %q, want eq.42", got)
		}
		if r.Header.Get("apikey") != "anon" {
			t.Errorf("apikey = %q", r.Header.Get("apikey"))
		}
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":42,"markdown":"# Stored","updated_at":"2024-05-01T10:00:00Z"}]`)
	}))
	defer server.Close()

	store := NewPostStore(PostStoreConfig{ProjectURL: server.URL + "/", APIKey: "anon"},
		staticTokens{token: "user-token"}, server.Client(), noopLogger{})

	post, err := store.GetPost(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetPost() = %v", err)
	}
	if post.ID != "42" || post.Markdown != "# Stored" || post.UpdatedAt.IsZero() {
		t.Errorf("post = %+v", post)
	}
}

func TestPostStore_GetPost_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer server.Close()

	store := NewPostStore(PostStoreConfig{ProjectURL: server.URL}, nil, server.Client(), noopLogger{})
	if _, err := store.GetPost(context.Background(), "x"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("GetPost() = %v, want ErrPostNotFound", err)
	}
}

func TestPostStore_GetPost_NullMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"x","markdown":null}]`)
	}))
	defer server.Close()

	store := NewPostStore(PostStoreConfig{ProjectURL: server.URL}, nil, server.Client(), noopLogger{})
	post, err := store.GetPost(context.Background(), "x")
	if err != nil {
		t.Fatalf("GetPost() = %v", err)
	}
	if !post.IsEmpty() {
		t.Errorf("post = %+v, want empty", post)
	}
}

func TestPostStore_UpdatePost(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "eq.7" {
			t.Errorf("id filter = %q", got)
		}
		// Without a session token the api key is the bearer.
		if r.Header.Get("Authorization") != "Bearer anon" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := NewPostStore(PostStoreConfig{ProjectURL: server.URL, APIKey: "anon", Table: "posts"},
		staticTokens{err: domain.ErrMissingToken}, server.Client(), noopLogger{})

	if err := store.UpdatePost(context.Background(), "7", "# New"); err != nil {
		t.Fatalf("UpdatePost() = %v", err)
	}
	if body["markdown"] != "# New" {
		t.Errorf("body = %v", body)
	}
}

func TestPostStore_UpdatePost_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"JWT expired"}`)
	}))
	defer server.Close()

	store := NewPostStore(PostStoreConfig{ProjectURL: server.URL}, nil, server.Client(), noopLogger{})

	err := store.UpdatePost(context.Background(), "7", "x")
	var se *domain.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("UpdatePost() = %v, want 401 StatusError", err)
	}
	if domain.IsTransient(err) {
		t.Error("401 classified as transient")
	}

	if err := store.UpdatePost(context.Background(), "", "x"); !errors.Is(err, domain.ErrMissingPostID) {
		t.Errorf("UpdatePost(\"\") = %v, want ErrMissingPostID", err)
	}

	expired := NewPostStore(PostStoreConfig{ProjectURL: server.URL},
		staticTokens{err: domain.ErrSessionExpired}, server.Client(), noopLogger{})
	if err := expired.UpdatePost(context.Background(), "7", "x"); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("UpdatePost() with expired token = %v", err)
	}
}
