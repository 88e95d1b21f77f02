package rx

import (
	"errors"
	"fmt"
	"sync"
)

// Disposable is the smallest releasable-resource abstraction. Dispose is
// idempotent: the first call releases the resource, every later call is a
// no-op and never fails.
type Disposable interface {
	Dispose()
	IsDisposed() bool
}

type actionDisposable struct {
	mu       sync.Mutex
	disposed bool
	action   func()
}

// NewDisposable returns a Disposable that runs action exactly once, on the
// first Dispose call.
func NewDisposable(action func()) Disposable {
	return &actionDisposable{action: action}
}

// Empty returns a Disposable whose Dispose is a permanent no-op.
func Empty() Disposable {
	return &actionDisposable{}
}

func (d *actionDisposable) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	action := d.action
	d.action = nil
	d.mu.Unlock()
	if action != nil {
		action()
	}
}

func (d *actionDisposable) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

type disposedSentinel struct{}

// Disposed returns a Disposable that reports disposed from construction and
// never runs any action.
func Disposed() Disposable {
	return disposedSentinel{}
}

func (disposedSentinel) Dispose() {}

func (disposedSentinel) IsDisposed() bool { return true }

// FromMany returns a Disposable that disposes each child in the order
// given. A child whose disposal panics does not stop the remaining
// children; once every child has been attempted the collected failures are
// re-raised as a single aggregated error.
func FromMany(children ...Disposable) Disposable {
	snapshot := make([]Disposable, len(children))
	copy(snapshot, children)
	return NewDisposable(func() {
		disposeAll(snapshot)
	})
}

// disposeAll disposes every child, isolating a panicking child from its
// siblings.
func disposeAll(children []Disposable) {
	var failures []error
	for _, child := range children {
		if err := capture(child.Dispose); err != nil {
			failures = append(failures, err)
		}
	}
	raise(failures)
}

// capture runs fn and converts a panic into an error.
func capture(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("rx: panic during delivery or disposal: %v", r)
		}
	}()
	fn()
	return nil
}

// raise re-panics the captured failures after a batch has been fully
// attempted. A single failure is re-raised as-is so callers can match on
// its type.
func raise(failures []error) {
	switch len(failures) {
	case 0:
	case 1:
		panic(failures[0])
	default:
		panic(errors.Join(failures...))
	}
}
