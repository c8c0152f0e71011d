package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// Default autosave timings.
const (
	DefaultSaveWindow   = 1 * time.Second
	DefaultMinBusy      = 1 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// AutosaveConfig contains configuration for the autosave pipeline.
type AutosaveConfig struct {
	PostID string

	// Window is the debounce window; each edit restarts it.
	Window time.Duration

	// MinBusy is how long the busy state stays visible after the last write completes.
	MinBusy time.Duration

	// Sentinel is the placeholder document that is never written.
	Sentinel string

	// WriteTimeout bounds a single write plus its reconciliation read.
	WriteTimeout time.Duration
}

func (c *AutosaveConfig) setDefaults() {
	if c.Window <= 0 {
		c.Window = DefaultSaveWindow
	}
	if c.MinBusy < 0 {
		c.MinBusy = 0
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// SaveEventEmitter is notified about autosave activity.
type SaveEventEmitter interface {
	OnSaveStart(markdown string)
	OnSaveSuccess(post domain.Post, duration time.Duration)
	OnSaveError(err error)
	OnBusyChange(busy bool)
}

// AutosaveStatus is a snapshot of the pipeline state.
type AutosaveStatus struct {
	// Busy is true while a write is outstanding and for MinBusy afterwards.
	Busy bool

	// Pending is true while a debounce window is open.
	Pending bool

	// Writing is true while a write is in flight.
	Writing bool

	// LastError is the error of the most recent write, nil after a success.
	LastError error

	// LastSaved is the markdown of the most recent successful write.
	LastSaved string

	// Post is the cached remote record from the last reconciliation read.
	Post domain.Post

	// Writes counts completed write attempts.
	Writes int
}

// Autosave persists document edits without saving on every keystroke and
// without overlapping writes.
type Autosave struct {
	cfg      AutosaveConfig
	store    ports.PostStore
	logger   ports.Logger
	emitter  SaveEventEmitter
	baseCtx  context.Context
	debounce *Debouncer[string]

	mu        sync.Mutex
	writing   bool
	queued    string
	hasQueued bool
	busy      bool
	busyTimer *time.Timer
	busyGen   uint64
	closed    bool
	post      domain.Post
	lastErr   error
	lastSaved string
	writes    int
	wg        sync.WaitGroup
}

// NewAutosave creates a pipeline writing to store.
// Writes run detached from ctx cancellation so that closing a session never
// aborts a write already on the wire; ctx only supplies values.
func NewAutosave(ctx context.Context, cfg AutosaveConfig, store ports.PostStore, logger ports.Logger, emitter SaveEventEmitter) *Autosave {
	cfg.setDefaults()
	if emitter == nil {
		emitter = noopSaveEmitter{}
	}
	a := &Autosave{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		emitter: emitter,
		baseCtx: context.WithoutCancel(ctx),
	}
	a.debounce = NewDebouncer(cfg.Window, a.fire)
	return a
}

// Edit records the latest document value and restarts the debounce window.
// An empty document is never saved and cancels any save still pending for
// an earlier value.
func (a *Autosave) Edit(markdown string) {
	if markdown == "" {
		a.discardPending()
		return
	}
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return
	}
	a.debounce.Schedule(markdown)
}

// discardPending drops the open window and any write queued behind the one
// in flight.
func (a *Autosave) discardPending() {
	a.debounce.Cancel()

	a.mu.Lock()
	a.queued, a.hasQueued = "", false
	a.mu.Unlock()
}

// SaveNow closes the debounce window early and saves the pending value.
// Returns false if nothing was pending.
func (a *Autosave) SaveNow() bool {
	v, ok := a.debounce.Flush()
	if !ok {
		return false
	}
	a.fire(v)
	return true
}

// SetPost seeds the cached remote record, e.g. after the initial load.
func (a *Autosave) SetPost(post domain.Post) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.post = post
}

// Status returns a snapshot of the pipeline.
func (a *Autosave) Status() AutosaveStatus {
	pending := a.debounce.Pending()

	a.mu.Lock()
	defer a.mu.Unlock()
	return AutosaveStatus{
		Busy:      a.busy,
		Pending:   pending,
		Writing:   a.writing,
		LastError: a.lastErr,
		LastSaved: a.lastSaved,
		Post:      a.post,
		Writes:    a.writes,
	}
}

// Idle reports whether no window is open and no write is queued or in flight.
func (a *Autosave) Idle() bool {
	st := a.Status()
	return !st.Pending && !st.Writing
}

// fire runs when a debounce window closes.
func (a *Autosave) fire(markdown string) {
	if markdown == a.cfg.Sentinel {
		// The placeholder is the latest value, so an older queued edit is stale.
		a.mu.Lock()
		a.queued, a.hasQueued = "", false
		a.mu.Unlock()
		a.logger.Debug("skipping save of placeholder document", ports.PostID(a.cfg.PostID))
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if a.writing {
		// Coalesce: only the latest value waits behind the in-flight write.
		a.queued = markdown
		a.hasQueued = true
		a.mu.Unlock()
		a.logger.Debug("write in flight, queued latest edit", ports.Bytes(len(markdown)))
		return
	}
	becameBusy := a.startWriteLocked(markdown)
	a.mu.Unlock()

	a.notifyStart(markdown, becameBusy)
}

// startWriteLocked launches a write. Must be called with a.mu held.
func (a *Autosave) startWriteLocked(markdown string) bool {
	a.writing = true
	if a.busyTimer != nil {
		a.busyTimer.Stop()
		a.busyTimer = nil
	}
	a.busyGen++

	becameBusy := !a.busy
	a.busy = true

	a.wg.Add(1)
	go a.write(markdown)
	return becameBusy
}

func (a *Autosave) notifyStart(markdown string, becameBusy bool) {
	if becameBusy {
		a.emitter.OnBusyChange(true)
	}
	a.emitter.OnSaveStart(markdown)
}

func (a *Autosave) write(markdown string) {
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(a.baseCtx, a.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := a.store.UpdatePost(ctx, a.cfg.PostID, markdown)

	var (
		post    domain.Post
		readErr error
	)
	if err == nil {
		post, readErr = a.store.GetPost(ctx, a.cfg.PostID)
	}

	a.complete(markdown, post, err, readErr, time.Since(start))
}

func (a *Autosave) complete(markdown string, post domain.Post, err, readErr error, took time.Duration) {
	a.mu.Lock()
	a.writing = false
	if a.closed {
		a.mu.Unlock()
		a.logger.Debug("write completed after close, ignoring result")
		return
	}

	a.writes++
	if err != nil {
		a.lastErr = err
	} else {
		a.lastErr = nil
		a.lastSaved = markdown
		if readErr == nil {
			a.post = post
		}
	}

	next, hasNext := a.queued, a.hasQueued
	a.queued, a.hasQueued = "", false
	if hasNext && err == nil && next == markdown {
		hasNext = false
	}

	if hasNext {
		a.startWriteLocked(next)
	} else {
		a.busyGen++
		gen := a.busyGen
		a.busyTimer = time.AfterFunc(a.cfg.MinBusy, func() { a.clearBusy(gen) })
	}
	a.mu.Unlock()

	if err != nil {
		a.logger.Error("autosave failed",
			ports.Err(err),
			ports.PostID(a.cfg.PostID),
			ports.Duration("duration", took),
		)
		a.emitter.OnSaveError(err)
	} else {
		a.logger.Info("autosaved",
			ports.PostID(a.cfg.PostID),
			ports.Bytes(len(markdown)),
			ports.Duration("duration", took),
		)
		if readErr != nil {
			a.logger.Warn("reconcile read failed", ports.Err(readErr))
		} else {
			logDivergence(a.logger, markdown, post.Markdown)
		}
		a.emitter.OnSaveSuccess(post, took)
	}

	if hasNext {
		a.notifyStart(next, false)
	}
}

func (a *Autosave) clearBusy(gen uint64) {
	a.mu.Lock()
	if gen != a.busyGen || a.writing || a.closed {
		a.mu.Unlock()
		return
	}
	a.busy = false
	a.busyTimer = nil
	a.mu.Unlock()

	a.emitter.OnBusyChange(false)
}

// Close cancels a pending window and the busy timer. A write already in
// flight finishes but no longer affects the pipeline.
func (a *Autosave) Close() {
	a.debounce.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.hasQueued = false
	if a.busyTimer != nil {
		a.busyTimer.Stop()
		a.busyTimer = nil
	}
	a.busyGen++
}

// Wait blocks until in-flight writes finish or timeout expires.
func (a *Autosave) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return domain.ErrShutdownTimeout
	}
}

type noopSaveEmitter struct{}

func (noopSaveEmitter) OnSaveStart(string)                      {}
func (noopSaveEmitter) OnSaveSuccess(domain.Post, time.Duration) {}
func (noopSaveEmitter) OnSaveError(error)                       {}
func (noopSaveEmitter) OnBusyChange(bool)                       {}
