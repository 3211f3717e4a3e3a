package form

import (
	"context"
	"sync"
)

// Tracker counts background work. Add may race with Wait, which sync.WaitGroup forbids.
// The zero value is ready to use and a nil Tracker ignores every call.
type Tracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Add() {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.n == 0 {
		t.idle = make(chan struct{})
	}

	t.n++
}

func (t *Tracker) Done() {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.n == 0 {
		panic("form: Tracker.Done called more times than Add")
	}

	t.n--

	if t.n == 0 {
		close(t.idle)
	}
}

// Len reports the amount of work currently in flight.
func (t *Tracker) Len() int {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.n
}

// Wait blocks until the count drops to zero or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()

		return nil
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
