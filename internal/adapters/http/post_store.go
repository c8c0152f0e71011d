package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

const restPath = "/rest/v1/"

// PostStoreConfig configures a PostStore.
type PostStoreConfig struct {
	// ProjectURL is the project root, e.g. https://<project>.supabase.co
	ProjectURL string
	APIKey     string
	Table      string
}

// PostStore implements ports.PostStore against a PostgREST table with
// columns id and markdown.
type PostStore struct {
	cfg    PostStoreConfig
	creds  credentials
	client ports.HTTPClient
	logger ports.Logger
}

// NewPostStore creates a new PostgREST post store.
func NewPostStore(cfg PostStoreConfig, tokens ports.TokenSource, client ports.HTTPClient, logger ports.Logger) *PostStore {
	if cfg.Table == "" {
		cfg.Table = "posts"
	}
	return &PostStore{
		cfg:    cfg,
		creds:  credentials{apiKey: cfg.APIKey, tokens: tokens},
		client: client,
		logger: logger,
	}
}

func (s *PostStore) rowURL(id string, columns string) string {
	q := url.Values{}
	q.Set("id", "eq."+id)
	if columns != "" {
		q.Set("select", columns)
	}
	return strings.TrimRight(s.cfg.ProjectURL, "/") + restPath + s.cfg.Table + "?" + q.Encode()
}

// UpdatePost replaces the markdown column of the post.
func (s *PostStore) UpdatePost(ctx context.Context, id, markdown string) error {
	if id == "" {
		return domain.ErrMissingPostID
	}

	body, err := json.Marshal(map[string]string{"markdown": markdown})
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.rowURL(id, ""), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if err := s.creds.apply(ctx, req); err != nil {
		return err
	}

	resp, err := send(s.client, req, "update post")
	if err != nil {
		return err
	}
	if !isSuccess(resp) {
		defer resp.Body.Close()
		return statusError("update post", resp)
	}
	drain(resp)

	s.logger.Debug("post updated", ports.PostID(id), ports.Bytes(len(markdown)))
	return nil
}

type postRow struct {
	Markdown  *string    `json:"markdown"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// GetPost fetches the post. Returns domain.ErrPostNotFound if no row matches.
func (s *PostStore) GetPost(ctx context.Context, id string) (domain.Post, error) {
	if id == "" {
		return domain.Post{}, domain.ErrMissingPostID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.rowURL(id, "*"), nil)
	if err != nil {
		return domain.Post{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if err := s.creds.apply(ctx, req); err != nil {
		return domain.Post{}, err
	}

	resp, err := send(s.client, req, "get post")
	if err != nil {
		return domain.Post{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return domain.Post{}, statusError("get post", resp)
	}

	var rows []postRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return domain.Post{}, fmt.Errorf("decode post: %w", err)
	}
	if len(rows) == 0 {
		return domain.Post{}, fmt.Errorf("get post %s: %w", id, domain.ErrPostNotFound)
	}

	post := domain.Post{ID: id}
	if rows[0].Markdown != nil {
		post.Markdown = *rows[0].Markdown
	}
	if rows[0].UpdatedAt != nil {
		post.UpdatedAt = *rows[0].UpdatedAt
	}
	return post, nil
}
