// Package mdsync keeps a local Markdown document in sync with a remote post
// and uploads images for it through a resumable, chunked upload.
//
// Example usage:
//
//	cfg := mdsync.DefaultConfig()
//	cfg.StorageRoot = "https://<project>.supabase.co"
//	cfg.APIKey = "<anon key>"
//	cfg.AccessToken = "<user session jwt>"
//	cfg.PostID = "42"
//
//	ed, err := mdsync.Open(ctx, cfg, mdsync.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ed.Close()
//
//	url, err := ed.InsertImage(ctx, "diagram.png", 0)
package mdsync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bft-labs/mdsync/internal/adapters/auth"
	"github.com/bft-labs/mdsync/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/mdsync/internal/adapters/http"
	"github.com/bft-labs/mdsync/internal/adapters/markdown"
	s3Adapter "github.com/bft-labs/mdsync/internal/adapters/s3"
	"github.com/bft-labs/mdsync/internal/app"
	"github.com/bft-labs/mdsync/internal/cliconfig"
	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// Config holds the mdsync configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultShareBase is the site share links point at unless configured.
const DefaultShareBase = cliconfig.DefaultShareBase

// DefaultConfig returns a Config with default values. StorageRoot must be
// set before use; PostID is required by Open.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Status is a snapshot of an edit session.
type Status = app.SessionStatus

// Editor is an open edit session bound to a local document file.
type Editor struct {
	session  *app.Session
	uploader *app.Uploader
	document *fs.DocumentFile
	unsub    func()
}

// wiring holds the adapters shared by Open and Upload.
type wiring struct {
	logger   ports.Logger
	store    *httpAdapter.PostStore
	uploader *app.Uploader
	unsub    func()
}

func build(ctx context.Context, cfg *Config, o options) (*wiring, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := o.httpClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	tokens := auth.NewSessionToken(cfg.AccessToken, auth.DefaultLeeway)

	store := httpAdapter.NewPostStore(httpAdapter.PostStoreConfig{
		ProjectURL: cfg.StorageRoot,
		APIKey:     cfg.APIKey,
		Table:      cfg.Table,
	}, tokens, client, o.logger)

	var (
		transport ports.UploadTransport
		endpoint  string
	)
	switch cfg.UploadBackend {
	case cliconfig.BackendS3:
		c, err := s3Adapter.NewClient(ctx, s3Adapter.ClientConfig{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		transport = s3Adapter.NewMultipartTransport(c, o.logger)
		endpoint = "s3:" + cfg.S3Region + ":" + cfg.S3Endpoint
	default:
		endpoint = cfg.StorageRoot + httpAdapter.ResumablePath
		transport = httpAdapter.NewTusTransport(httpAdapter.TusConfig{
			Endpoint: endpoint,
			APIKey:   cfg.APIKey,
		}, tokens, client, o.logger)
	}

	uploader := app.NewUploader(app.UploaderConfig{
		StorageRoot: cfg.StorageRoot,
		Endpoint:    endpoint,
		Bucket:      cfg.Bucket,
		Folder:      cfg.Folder,
		ChunkSize:   int64(cfg.ChunkSize),
	}, transport, fs.NewUploadSessionFile(cfg.StateDir), o.logger)

	unsub := func() {}
	if o.uploads != nil {
		unsub = uploader.Events().Subscribe(o.uploads)
	}

	return &wiring{logger: o.logger, store: store, uploader: uploader, unsub: unsub}, nil
}

// Open loads the post cfg.PostID into the document file cfg.Document and
// starts autosaving edits of that file.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Editor, error) {
	o := applyOptions(opts)
	if cfg.PostID == "" {
		return nil, domain.ErrMissingPostID
	}
	w, err := build(ctx, &cfg, o)
	if err != nil {
		return nil, err
	}

	doc, err := fs.NewDocumentFile(cfg.Document, 0, w.logger)
	if err != nil {
		w.unsub()
		return nil, fmt.Errorf("document: %w", err)
	}

	session := app.NewSession(app.SessionConfig{
		PostID:    cfg.PostID,
		ShareBase: cfg.ShareBase,
		Autosave: app.AutosaveConfig{
			Window:   cfg.Debounce,
			MinBusy:  cfg.MinBusy,
			Sentinel: cfg.Sentinel,
		},
	}, w.store, doc, w.uploader, w.logger, o.saves, o.states)

	if err := session.Start(ctx); err != nil {
		w.unsub()
		return nil, err
	}
	return &Editor{session: session, uploader: w.uploader, document: doc, unsub: w.unsub}, nil
}

// Path returns the absolute path of the local document.
func (e *Editor) Path() string { return e.document.Path() }

// Text returns the current document content.
func (e *Editor) Text() string { return e.session.Text() }

// Edit replaces the document content and schedules a save.
func (e *Editor) Edit(text string) { e.session.Edit(text) }

// InsertImage uploads the image at path and inserts its Markdown reference
// at cursor, counted in characters. Returns the public URL.
func (e *Editor) InsertImage(ctx context.Context, path string, cursor int) (string, error) {
	file, closer, err := fs.OpenUploadFile(path)
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return e.session.InsertImage(ctx, file, cursor)
}

// Refresh re-reads the remote post.
func (e *Editor) Refresh(ctx context.Context) error { return e.session.Refresh(ctx) }

// SaveNow saves a pending edit immediately. Returns false if none was pending.
func (e *Editor) SaveNow() bool { return e.session.SaveNow() }

// ShareURL returns the public link of the post.
func (e *Editor) ShareURL() string { return e.session.ShareURL() }

// Status returns a snapshot of the session.
func (e *Editor) Status() Status { return e.session.Status() }

// Close stops watching the document and waits for an in-flight save.
func (e *Editor) Close() error {
	defer e.unsub()
	return e.session.Stop()
}

// Upload uploads the file at path and returns its public URL. An earlier
// interrupted upload of the same file to the same destination is resumed.
func Upload(ctx context.Context, cfg Config, path string, opts ...Option) (string, error) {
	w, err := build(ctx, &cfg, applyOptions(opts))
	if err != nil {
		return "", err
	}
	defer w.unsub()

	file, closer, err := fs.OpenUploadFile(path)
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return w.uploader.Upload(ctx, file)
}

// Render converts markdown to HTML. Raw HTML is passed through only when
// cfg.PreviewUnsafe is set.
func Render(cfg Config, md string) (string, error) {
	return markdown.NewGoldmark(markdown.Options{Unsafe: cfg.PreviewUnsafe}).Render(md)
}

// Errors returned by mdsync. Check with errors.Is.
var (
	ErrMissingPostID  = domain.ErrMissingPostID
	ErrPostNotFound   = domain.ErrPostNotFound
	ErrInvalidConfig  = domain.ErrInvalidConfig
	ErrEmptyFile      = domain.ErrEmptyFile
	ErrSessionExpired = domain.ErrSessionExpired
	ErrNotOpen        = domain.ErrNotOpen
)
