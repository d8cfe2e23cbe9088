// Package async implements the one-shot round trips used for host
// operations that answer later, such as rendering an element snapshot.
package async

import "sync"

// State is the lifecycle of a Future.
type State uint8

const (
	Pending State = iota
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Future settles exactly once, with a value or an error.
type Future[T any] struct {
	mu        sync.Mutex
	state     State
	value     T
	err       error
	callbacks []func(T, error)
}

// NewFuture returns a pending future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{}
}

// Resolve settles f with v. It reports false if f was already settled.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(Resolved, v, nil)
}

// Reject settles f with err. It reports false if f was already settled.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(Rejected, zero, err)
}

func (f *Future[T]) settle(state State, v T, err error) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	f.state, f.value, f.err = state, v, err
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
	return true
}

// State returns the current state.
func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns the outcome; settled is false while pending.
func (f *Future[T]) Result() (v T, err error, settled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err, f.state != Pending
}

// Then registers cb to run once f settles. If f is already settled, cb runs
// immediately on the calling goroutine.
func (f *Future[T]) Then(cb func(T, error)) {
	f.mu.Lock()
	if f.state == Pending {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	cb(v, err)
}
