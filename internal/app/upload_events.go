package app

import (
	"sort"
	"sync"

	"github.com/bft-labs/mdsync/internal/domain"
)

// UploadObserver receives upload lifecycle notifications.
type UploadObserver interface {
	OnUploadProgress(domain.UploadProgress)
	OnUploadSuccess(domain.UploadSuccess)
	OnUploadError(domain.UploadFailure)
}

// ObserverFuncs adapts plain functions to UploadObserver. Nil fields are skipped.
type ObserverFuncs struct {
	Progress func(domain.UploadProgress)
	Success  func(domain.UploadSuccess)
	Error    func(domain.UploadFailure)
}

func (f ObserverFuncs) OnUploadProgress(p domain.UploadProgress) {
	if f.Progress != nil {
		f.Progress(p)
	}
}

func (f ObserverFuncs) OnUploadSuccess(s domain.UploadSuccess) {
	if f.Success != nil {
		f.Success(s)
	}
}

func (f ObserverFuncs) OnUploadError(e domain.UploadFailure) {
	if f.Error != nil {
		f.Error(e)
	}
}

// UploadEvents broadcasts upload notifications to subscribed observers.
// Observers are called synchronously, in subscription order, outside the lock.
type UploadEvents struct {
	mu        sync.RWMutex
	next      int
	observers map[int]UploadObserver
}

// NewUploadEvents creates an empty broadcaster.
func NewUploadEvents() *UploadEvents {
	return &UploadEvents{observers: make(map[int]UploadObserver)}
}

// Subscribe registers o and returns a function that removes it.
func (e *UploadEvents) Subscribe(o UploadObserver) (unsubscribe func()) {
	e.mu.Lock()
	id := e.next
	e.next++
	e.observers[id] = o
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.observers, id)
			e.mu.Unlock()
		})
	}
}

// Len returns the number of subscribed observers.
func (e *UploadEvents) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.observers)
}

func (e *UploadEvents) snapshot() []UploadObserver {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]int, 0, len(e.observers))
	for id := range e.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]UploadObserver, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.observers[id])
	}
	return out
}

func (e *UploadEvents) publishProgress(p domain.UploadProgress) {
	for _, o := range e.snapshot() {
		o.OnUploadProgress(p)
	}
}

func (e *UploadEvents) publishSuccess(s domain.UploadSuccess) {
	for _, o := range e.snapshot() {
		o.OnUploadSuccess(s)
	}
}

func (e *UploadEvents) publishError(f domain.UploadFailure) {
	for _, o := range e.snapshot() {
		o.OnUploadError(f)
	}
}
