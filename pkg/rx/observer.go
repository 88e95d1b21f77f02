package rx

import "fmt"

// Observer is the three-channel sink an event producer pushes into. Missing
// handlers default to no-ops at construction, except the error slot: an
// observer built without one carries a marker, and delivering an error to
// it raises an *UnhandledError at the producer's call site. "No error
// handler" is therefore distinguishable from "handler exists and does
// nothing".
type Observer[T any] struct {
	next       func(T)
	err        func(error)
	complete   func()
	handlesErr bool
}

// NewObserver builds a full three-handler observer. Nil handlers become
// no-ops; a nil errFn leaves the observer without an error handler, which
// is meaningful (see UnhandledError).
func NewObserver[T any](next func(T), errFn func(error), complete func()) Observer[T] {
	o := Observer[T]{next: next, err: errFn, complete: complete, handlesErr: errFn != nil}
	if o.next == nil {
		o.next = func(T) {}
	}
	if o.err == nil {
		o.err = func(error) {}
	}
	if o.complete == nil {
		o.complete = func() {}
	}
	return o
}

// OnNext builds an observer with only a next handler. Errors delivered to
// it surface as UnhandledError at the producer.
func OnNext[T any](next func(T)) Observer[T] {
	return NewObserver(next, nil, nil)
}

// OnNextError builds an observer with next and error handlers.
func OnNextError[T any](next func(T), errFn func(error)) Observer[T] {
	return NewObserver(next, errFn, nil)
}

// EmptyObserver drops every event. It declares no error handler, so a
// failing sequence still raises UnhandledError at the producer.
func EmptyObserver[T any]() Observer[T] {
	return NewObserver[T](nil, nil, nil)
}

// HandlesError reports whether the observer declared an error handler.
func (o Observer[T]) HandlesError() bool {
	return o.handlesErr
}

// UnhandledError is raised, as a panic, at the producer's Error call site
// when a failing sequence reaches an observer that declared no error
// handler. It is deliberately loud: a consumer that subscribed with only a
// next handler would otherwise never learn the sequence died. It concerns
// wiring, not payload; business failures flow through the error channel
// like any other event.
type UnhandledError struct {
	Cause error
}

func (e *UnhandledError) Error() string {
	return fmt.Sprintf("rx: error delivered to observer with no error handler: %v", e.Cause)
}

func (e *UnhandledError) Unwrap() error { return e.Cause }
