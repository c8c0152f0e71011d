package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// SessionConfig contains configuration for an edit session.
type SessionConfig struct {
	PostID string

	// ShareBase is the site root used to build shareable post links.
	ShareBase string

	Autosave AutosaveConfig

	// ShutdownTimeout bounds Stop. Defaults to ShutdownTimeout.
	ShutdownTimeout time.Duration
}

// SessionStatus is a snapshot of an edit session.
type SessionStatus struct {
	State    State
	Autosave AutosaveStatus
}

// Session binds a local document to a remote post: external edits of the
// document flow into the autosave pipeline, and uploaded images are spliced
// into the document.
type Session struct {
	cfg       SessionConfig
	store     ports.PostStore
	source    ports.DocumentSource
	uploader  *Uploader
	logger    ports.Logger
	saves     SaveEventEmitter
	lifecycle *Lifecycle
	doc       *domain.Document

	mu       sync.Mutex
	autosave *Autosave
}

// NewSession creates a closed session. uploader may be nil if image
// insertion is not used.
func NewSession(
	cfg SessionConfig,
	store ports.PostStore,
	source ports.DocumentSource,
	uploader *Uploader,
	logger ports.Logger,
	saves SaveEventEmitter,
	states StateEmitter,
) *Session {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = ShutdownTimeout
	}
	cfg.Autosave.PostID = cfg.PostID
	if cfg.Autosave.Sentinel == "" {
		cfg.Autosave.Sentinel = domain.DefaultSentinel
	}
	return &Session{
		cfg:       cfg,
		store:     store,
		source:    source,
		uploader:  uploader,
		logger:    logger,
		saves:     saves,
		lifecycle: NewLifecycle(logger, states),
		doc:       domain.NewDocument(""),
	}
}

// Start loads the post, seeds the local document and begins watching it.
// A post with stored markdown replaces the local document.
func (s *Session) Start(ctx context.Context) error {
	if s.cfg.PostID == "" {
		return domain.ErrMissingPostID
	}
	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyOpen
	}
	if err := s.lifecycle.TransitionTo(StateOpening, "start requested"); err != nil {
		return err
	}

	if err := s.open(ctx); err != nil {
		s.lifecycle.Cancel()
		_ = s.lifecycle.TransitionTo(StateFailed, err.Error())
		return err
	}
	return s.lifecycle.TransitionTo(StateOpen, "document loaded")
}

func (s *Session) open(ctx context.Context) error {
	post, err := s.store.GetPost(ctx, s.cfg.PostID)
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}

	local, err := s.source.Read(ctx)
	if err != nil {
		s.logger.Warn("failed to read local document", ports.Err(err))
		local = ""
	}

	text := local
	switch {
	case !post.IsEmpty():
		text = post.Markdown
	case local == "":
		text = s.cfg.Autosave.Sentinel
	}
	s.doc.Set(text)
	if text != local {
		if err := s.source.Write(ctx, text); err != nil {
			return fmt.Errorf("write local document: %w", err)
		}
	}
	s.logger.Info("loaded post",
		ports.PostID(s.cfg.PostID),
		ports.Bytes(len(text)),
		ports.Bool("remote", !post.IsEmpty()),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.lifecycle.SetCancel(cancel)

	pipeline := NewAutosave(runCtx, s.cfg.Autosave, s.store, s.logger, s.saves)
	pipeline.SetPost(post)
	s.mu.Lock()
	s.autosave = pipeline
	s.mu.Unlock()

	changes, err := s.source.Watch(runCtx)
	if err != nil {
		pipeline.Close()
		return fmt.Errorf("watch local document: %w", err)
	}
	s.lifecycle.Go(func() { s.watch(runCtx, changes) })
	return nil
}

func (s *Session) pipeline() *Autosave {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autosave
}

func (s *Session) watch(ctx context.Context, changes <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-changes:
			if !ok {
				return
			}
			s.Edit(text)
		}
	}
}

// Edit applies new document content, as an editor would on each keystroke.
func (s *Session) Edit(text string) {
	st := s.lifecycle.State()
	pipeline := s.pipeline()
	if (st != StateOpen && st != StateOpening) || pipeline == nil {
		return
	}
	if s.doc.Set(text) {
		pipeline.Edit(text)
	}
}

// Text returns the current document content.
func (s *Session) Text() string {
	return s.doc.Text()
}

// InsertImage uploads file and inserts its Markdown image reference at
// cursor. On upload failure the document is left untouched.
func (s *Session) InsertImage(ctx context.Context, file domain.UploadFile, cursor int) (string, error) {
	if !s.lifecycle.IsOpen() {
		return "", domain.ErrNotOpen
	}
	if s.uploader == nil {
		return "", fmt.Errorf("insert image: no uploader: %w", domain.ErrInvalidConfig)
	}

	url, err := s.uploader.Upload(ctx, file)
	if err != nil {
		return "", err
	}

	text := s.doc.InsertAt(cursor, domain.ImageMarkdown(url))
	if err := s.source.Write(ctx, text); err != nil {
		s.logger.Warn("failed to write local document", ports.Err(err))
	}
	s.pipeline().Edit(text)
	return url, nil
}

// Refresh re-reads the remote post. Stored markdown that differs from the
// local document replaces it; an edit still waiting to be saved wins.
func (s *Session) Refresh(ctx context.Context) error {
	if !s.lifecycle.IsOpen() {
		return domain.ErrNotOpen
	}
	post, err := s.store.GetPost(ctx, s.cfg.PostID)
	if err != nil {
		return fmt.Errorf("refresh post: %w", err)
	}
	pipeline := s.pipeline()
	pipeline.SetPost(post)

	if post.IsEmpty() || !pipeline.Idle() {
		return nil
	}
	if s.doc.Set(post.Markdown) {
		s.logger.Info("remote post changed, replacing local document", ports.PostID(s.cfg.PostID))
		if err := s.source.Write(ctx, post.Markdown); err != nil {
			return fmt.Errorf("write local document: %w", err)
		}
	}
	return nil
}

// SaveNow saves a pending edit without waiting for the debounce window.
func (s *Session) SaveNow() bool {
	pipeline := s.pipeline()
	if pipeline == nil {
		return false
	}
	return pipeline.SaveNow()
}

// ShareURL returns the public link of the post.
func (s *Session) ShareURL() string {
	return strings.TrimRight(s.cfg.ShareBase, "/") + "/post/" + s.cfg.PostID
}

// Status returns a snapshot of the session.
func (s *Session) Status() SessionStatus {
	st := SessionStatus{State: s.lifecycle.State()}
	if pipeline := s.pipeline(); pipeline != nil {
		st.Autosave = pipeline.Status()
	}
	return st
}

// Stop closes the session. A pending debounced save is discarded; a write
// already in flight is given until the shutdown timeout to finish.
func (s *Session) Stop() error {
	if !s.lifecycle.CanStop() {
		return domain.ErrNotOpen
	}
	if err := s.lifecycle.TransitionTo(StateClosing, "stop requested"); err != nil {
		return err
	}

	s.lifecycle.Cancel()
	pipeline := s.pipeline()
	if pipeline != nil {
		pipeline.Close()
	}

	deadline := time.Now().Add(s.cfg.ShutdownTimeout)
	err := s.lifecycle.WaitWithTimeout(s.cfg.ShutdownTimeout)
	if err == nil && pipeline != nil {
		err = pipeline.Wait(time.Until(deadline))
	}
	if err != nil {
		_ = s.lifecycle.TransitionTo(StateFailed, err.Error())
		return err
	}
	return s.lifecycle.TransitionTo(StateClosed, "stopped")
}
