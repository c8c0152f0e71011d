package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for a session to close.
const ShutdownTimeout = 30 * time.Second

// State is the lifecycle state of an edit session.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpening:
		return "Opening"
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// StateEmitter is called when the session state changes.
type StateEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle is the session state machine. It also tracks the background
// workers a session starts so Stop can wait for them.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  ports.Logger
	emitter StateEmitter
}

// NewLifecycle creates a lifecycle in StateClosed.
func NewLifecycle(logger ports.Logger, emitter StateEmitter) *Lifecycle {
	return &Lifecycle{
		state:   StateClosed,
		logger:  logger,
		emitter: emitter,
	}
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// allowed lists valid transitions per state.
var allowed = map[State][]State{
	StateClosed:  {StateOpening},
	StateOpening: {StateOpen, StateClosing, StateFailed},
	StateOpen:    {StateClosing, StateFailed},
	StateClosing: {StateClosed, StateFailed},
	StateFailed:  {StateOpening},
}

// TransitionTo moves to next or returns an error if the transition is invalid.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state

	ok := false
	for _, s := range allowed[prev] {
		if s == next {
			ok = true
			break
		}
	}
	if !ok {
		l.mu.Unlock()
		if prev == StateClosed || prev == StateFailed {
			return domain.ErrNotOpen
		}
		return domain.ErrAlreadyOpen
	}

	l.state = next
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Info("session state",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

// CanStart reports whether the session may be opened.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateClosed || l.state == StateFailed
}

// CanStop reports whether the session may be closed.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateOpen || l.state == StateOpening
}

// IsOpen reports whether the session accepts edits.
func (l *Lifecycle) IsOpen() bool {
	return l.State() == StateOpen
}

// SetCancel stores the function that stops the session's workers.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn as a tracked worker.
func (l *Lifecycle) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all workers to finish.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, abandoning workers",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
