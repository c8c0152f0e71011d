package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/mdsync/internal/domain"
)

// mockPostStore is an in-memory PostStore. When gate is set, UpdatePost
// blocks until a value is received from it.
type mockPostStore struct {
	mu        sync.Mutex
	post      domain.Post
	writes    []string
	writeTime []time.Time
	inFlight  int
	maxFlight int
	updateErr error
	getErr    error
	gate      chan struct{}
	remoteFn  func(string) string
}

func newMockPostStore(id, markdown string) *mockPostStore {
	return &mockPostStore{post: domain.Post{ID: id, Markdown: markdown}}
}

func (m *mockPostStore) UpdatePost(ctx context.Context, id, markdown string) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxFlight {
		m.maxFlight = m.inFlight
	}
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	m.writes = append(m.writes, markdown)
	m.writeTime = append(m.writeTime, time.Now())
	if m.updateErr != nil {
		return m.updateErr
	}
	m.post.ID = id
	m.post.Markdown = markdown
	if m.remoteFn != nil {
		m.post.Markdown = m.remoteFn(markdown)
	}
	return nil
}

func (m *mockPostStore) GetPost(ctx context.Context, id string) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.Post{}, m.getErr
	}
	return m.post, nil
}

func (m *mockPostStore) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

func (m *mockPostStore) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}

// mockSaveEmitter records autosave notifications.
type mockSaveEmitter struct {
	mu      sync.Mutex
	starts  []string
	success int
	errs    []error
	busy    []bool
}

func (m *mockSaveEmitter) OnSaveStart(markdown string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = append(m.starts, markdown)
}

func (m *mockSaveEmitter) OnSaveSuccess(domain.Post, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.success++
}

func (m *mockSaveEmitter) OnSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

func (m *mockSaveEmitter) OnBusyChange(busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = append(m.busy, busy)
}

func (m *mockSaveEmitter) Busy() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.busy...)
}

func (m *mockSaveEmitter) Errors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.errs...)
}

func newTestAutosave(store *mockPostStore, emitter SaveEventEmitter, window time.Duration) *Autosave {
	return NewAutosave(context.Background(), AutosaveConfig{
		PostID:   "post-1",
		Window:   window,
		MinBusy:  20 * time.Millisecond,
		Sentinel: domain.DefaultSentinel,
	}, store, mockLogger{}, emitter)
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAutosave_SingleEditAfterSentinel(t *testing.T) {
	store := newMockPostStore("post-1", "")
	a := newTestAutosave(store, nil, 50*time.Millisecond)
	defer a.Close()

	a.Edit("# Hi")
	time.Sleep(20 * time.Millisecond)
	if n := len(store.Writes()); n != 0 {
		t.Fatalf("wrote %d times before window elapsed", n)
	}

	waitFor(t, time.Second, func() bool { return len(store.Writes()) == 1 })
	time.Sleep(80 * time.Millisecond)

	writes := store.Writes()
	if len(writes) != 1 || writes[0] != "# Hi" {
		t.Fatalf("writes = %q, want [# Hi]", writes)
	}
	if st := a.Status(); st.LastSaved != "# Hi" || st.Post.Markdown != "# Hi" {
		t.Errorf("status = %+v", st)
	}
}

func TestAutosave_BurstCoalesces(t *testing.T) {
	store := newMockPostStore("post-1", "")
	window := 100 * time.Millisecond
	a := newTestAutosave(store, nil, window)
	defer a.Close()

	a.Edit("A")
	time.Sleep(window / 5)
	second := time.Now()
	a.Edit("AB")

	waitFor(t, time.Second, func() bool { return len(store.Writes()) == 1 })
	time.Sleep(2 * window)

	writes := store.Writes()
	if len(writes) != 1 || writes[0] != "AB" {
		t.Fatalf("writes = %q, want [AB]", writes)
	}

	store.mu.Lock()
	at := store.writeTime[0]
	store.mu.Unlock()
	if elapsed := at.Sub(second); elapsed < window {
		t.Errorf("write %v after second edit, want >= %v", elapsed, window)
	}
}

func TestAutosave_SentinelNotSaved(t *testing.T) {
	store := newMockPostStore("post-1", "")
	a := newTestAutosave(store, nil, 10*time.Millisecond)
	defer a.Close()

	a.Edit(domain.DefaultSentinel)
	a.Edit("")
	time.Sleep(60 * time.Millisecond)

	if writes := store.Writes(); len(writes) != 0 {
		t.Errorf("writes = %q, want none", writes)
	}
}

func TestAutosave_EmptyEditCancelsPending(t *testing.T) {
	store := newMockPostStore("post-1", "")
	a := newTestAutosave(store, nil, 50*time.Millisecond)
	defer a.Close()

	a.Edit("abc")
	time.Sleep(10 * time.Millisecond)
	a.Edit("")
	time.Sleep(200 * time.Millisecond)

	if writes := store.Writes(); len(writes) != 0 {
		t.Errorf("writes = %q, want none after the document was emptied", writes)
	}
	if a.Status().Pending {
		t.Error("Pending = true after empty edit")
	}
}

func TestAutosave_SupersededQueuedWrite(t *testing.T) {
	tests := []struct {
		name string
		last string
	}{
		{"emptied", ""},
		{"reverted to placeholder", domain.DefaultSentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockPostStore("post-1", "")
			store.gate = make(chan struct{})
			a := newTestAutosave(store, nil, 10*time.Millisecond)
			defer a.Close()

			a.Edit("first")
			waitFor(t, time.Second, func() bool { return a.Status().Writing })

			// "second" is queued behind the blocked write.
			a.Edit("second")
			time.Sleep(30 * time.Millisecond)
			a.Edit(tt.last)
			time.Sleep(30 * time.Millisecond)

			store.gate <- struct{}{}
			waitFor(t, time.Second, func() bool { return !a.Status().Writing })
			time.Sleep(30 * time.Millisecond)

			writes := store.Writes()
			if len(writes) != 1 || writes[0] != "first" {
				t.Fatalf("writes = %q, want [first]", writes)
			}
		})
	}
}

func TestAutosave_NoOverlappingWrites(t *testing.T) {
	store := newMockPostStore("post-1", "")
	store.gate = make(chan struct{})
	a := newTestAutosave(store, nil, 10*time.Millisecond)
	defer a.Close()

	a.Edit("first")
	waitFor(t, time.Second, func() bool { return a.Status().Writing })

	// Windows close while the first write is blocked.
	a.Edit("second")
	time.Sleep(30 * time.Millisecond)
	a.Edit("third")
	time.Sleep(30 * time.Millisecond)

	store.gate <- struct{}{}
	store.gate <- struct{}{}
	waitFor(t, time.Second, func() bool { return len(store.Writes()) == 2 })
	time.Sleep(30 * time.Millisecond)

	writes := store.Writes()
	if len(writes) != 2 || writes[0] != "first" || writes[1] != "third" {
		t.Fatalf("writes = %q, want [first third]", writes)
	}
	if m := store.MaxInFlight(); m != 1 {
		t.Errorf("max concurrent writes = %d, want 1", m)
	}
}

func TestAutosave_BusyState(t *testing.T) {
	store := newMockPostStore("post-1", "")
	emitter := &mockSaveEmitter{}
	a := newTestAutosave(store, emitter, 10*time.Millisecond)
	defer a.Close()

	a.Edit("content")
	waitFor(t, time.Second, func() bool { return len(store.Writes()) == 1 })

	if !a.Status().Busy {
		t.Error("Busy = false right after the write")
	}
	waitFor(t, time.Second, func() bool { return !a.Status().Busy })

	busy := emitter.Busy()
	if len(busy) != 2 || !busy[0] || busy[1] {
		t.Errorf("busy transitions = %v, want [true false]", busy)
	}
}

func TestAutosave_WriteFailure(t *testing.T) {
	store := newMockPostStore("post-1", "remote")
	store.updateErr = errors.New("boom")
	emitter := &mockSaveEmitter{}
	a := newTestAutosave(store, emitter, 10*time.Millisecond)
	defer a.Close()

	a.Edit("local")
	waitFor(t, time.Second, func() bool { return len(emitter.Errors()) == 1 })

	st := a.Status()
	if st.LastError == nil {
		t.Error("LastError = nil after failed write")
	}
	if st.LastSaved != "" {
		t.Errorf("LastSaved = %q, want empty", st.LastSaved)
	}

	// The next edit is attempted normally.
	store.mu.Lock()
	store.updateErr = nil
	store.mu.Unlock()
	a.Edit("local again")
	waitFor(t, time.Second, func() bool { return a.Status().LastSaved == "local again" })
	if a.Status().LastError != nil {
		t.Error("LastError not cleared after success")
	}
}

func TestAutosave_ReconcileDivergence(t *testing.T) {
	store := newMockPostStore("post-1", "")
	store.remoteFn = func(s string) string { return s + "\n<!-- trimmed -->" }
	logger := &recordingLogger{}
	a := NewAutosave(context.Background(), AutosaveConfig{
		PostID: "post-1",
		Window: 10 * time.Millisecond,
	}, store, logger, nil)
	defer a.Close()

	a.Edit("body")
	waitFor(t, time.Second, func() bool { return a.Status().Post.Markdown != "" })

	if got := a.Status().Post.Markdown; got != "body\n<!-- trimmed -->" {
		t.Errorf("cached post = %q", got)
	}
	warns := logger.Warns()
	if len(warns) != 1 {
		t.Errorf("warns = %v, want one divergence warning", warns)
	}
}

func TestAutosave_CloseCancelsPending(t *testing.T) {
	store := newMockPostStore("post-1", "")
	a := newTestAutosave(store, nil, 30*time.Millisecond)

	a.Edit("unsaved")
	a.Close()
	a.Edit("after close")
	time.Sleep(80 * time.Millisecond)

	if writes := store.Writes(); len(writes) != 0 {
		t.Errorf("writes = %q, want none", writes)
	}
	if err := a.Wait(time.Second); err != nil {
		t.Errorf("Wait() = %v", err)
	}
}

func TestAutosave_SaveNow(t *testing.T) {
	store := newMockPostStore("post-1", "")
	a := newTestAutosave(store, nil, time.Hour)
	defer a.Close()

	if a.SaveNow() {
		t.Error("SaveNow() = true with nothing pending")
	}
	a.Edit("now")
	if !a.SaveNow() {
		t.Fatal("SaveNow() = false with a pending edit")
	}
	waitFor(t, time.Second, func() bool { return len(store.Writes()) == 1 })
	if !a.Idle() {
		waitFor(t, time.Second, a.Idle)
	}
}
