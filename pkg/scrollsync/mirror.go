package scrollsync

import (
	"sync"
	"time"
)

// DefaultReleaseDelay is how long a mirrored pane ignores its own scroll
// events after being moved.
const DefaultReleaseDelay = 50 * time.Millisecond

// Pane is a scrollable view.
type Pane interface {
	ScrollTop() float64
	ScrollHeight() float64
	ClientHeight() float64

	// SetScrollTop moves the pane. Hosts may raise a scroll event for the
	// pane synchronously from within this call.
	SetScrollTop(top float64)
}

// Side names one of the two panes of a Mirror.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) other() Side {
	return 1 - s
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return "unknown"
	}
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithReleaseDelay sets the suppression release delay.
func WithReleaseDelay(d time.Duration) Option {
	return func(m *Mirror) {
		if d > 0 {
			m.delay = d
		}
	}
}

// Mirror keeps two panes at the same relative scroll position.
// Each side has its own suppress flag and release timer.
type Mirror struct {
	panes [2]Pane
	delay time.Duration

	mu       sync.Mutex
	suppress [2]bool
	timers   [2]*time.Timer
	gen      [2]uint64
	detached bool
}

// New creates a mirror between a and b.
func New(a, b Pane, opts ...Option) *Mirror {
	m := &Mirror{
		panes: [2]Pane{a, b},
		delay: DefaultReleaseDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ratio returns the relative scroll position of p in [0,1].
// A pane without scrollable extent has ratio 0.
func Ratio(p Pane) float64 {
	extent := p.ScrollHeight() - p.ClientHeight()
	if extent <= 0 {
		return 0
	}
	r := p.ScrollTop() / extent
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// OnScroll handles a scroll event raised by side. It moves the other pane
// unless the event was caused by the mirror itself.
func (m *Mirror) OnScroll(side Side) {
	if side != SideA && side != SideB {
		return
	}
	target := side.other()

	m.mu.Lock()
	if m.detached || m.suppress[side] {
		m.mu.Unlock()
		return
	}
	m.suppress[target] = true
	if m.timers[target] != nil {
		m.timers[target].Stop()
	}
	m.gen[target]++
	gen := m.gen[target]
	m.mu.Unlock()

	src, dst := m.panes[side], m.panes[target]
	extent := dst.ScrollHeight() - dst.ClientHeight()
	if extent < 0 {
		extent = 0
	}
	dst.SetScrollTop(Ratio(src) * extent)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detached {
		return
	}
	m.timers[target] = time.AfterFunc(m.delay, func() { m.release(target, gen) })
}

func (m *Mirror) release(side Side, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen[side] {
		return
	}
	m.suppress[side] = false
	m.timers[side] = nil
}

// Suppressed reports whether scroll events from side are currently ignored.
func (m *Mirror) Suppressed(side Side) bool {
	if side != SideA && side != SideB {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suppress[side]
}

// Listener returns a callback for the host's scroll event of side.
func (m *Mirror) Listener(side Side) func() {
	return func() { m.OnScroll(side) }
}

// Detach stops pending release timers; later events are ignored.
func (m *Mirror) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detached = true
	for i, t := range m.timers {
		if t != nil {
			t.Stop()
			m.timers[i] = nil
		}
		m.gen[i]++
		m.suppress[i] = false
	}
}
