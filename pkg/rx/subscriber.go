package rx

import "sync"

// Subscriber binds an Observer to its backing subscription and enforces the
// termination contract: after Error or Complete has been delivered, nothing
// further reaches the observer, and the backing subscription is disposed
// before the terminal call returns.
type Subscriber[T any] struct {
	mu         sync.Mutex
	terminated bool
	observer   Observer[T]
	sub        Disposable
}

// NewSubscriber binds observer to a fresh plain Subscription.
func NewSubscriber[T any](observer Observer[T]) *Subscriber[T] {
	return NewSubscriberWith(observer, NewSubscription())
}

// NewSubscriberWith binds observer to an existing backing subscription,
// typically a CompositeSubscription carrying extra resources.
func NewSubscriberWith[T any](observer Observer[T], sub Disposable) *Subscriber[T] {
	return &Subscriber[T]{observer: observer, sub: sub}
}

// Subscription returns the backing subscription handle.
func (s *Subscriber[T]) Subscription() Disposable {
	return s.sub
}

func (s *Subscriber[T]) IsDisposed() bool {
	return s.sub.IsDisposed()
}

// Dispose unsubscribes without delivering a terminal event.
func (s *Subscriber[T]) Dispose() {
	s.sub.Dispose()
}

// Next forwards v to the observer. Dropped silently once the subscriber has
// terminated or been unsubscribed.
func (s *Subscriber[T]) Next(v T) {
	s.mu.Lock()
	if s.terminated || s.sub.IsDisposed() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.observer.next(v)
}

// Error delivers the terminal error and disposes the backing subscription.
// Dropped if already terminated or unsubscribed. If the observer declared
// no error handler this panics with *UnhandledError so the producer learns
// the failure was dropped; the subscription is disposed regardless.
func (s *Subscriber[T]) Error(err error) {
	if !s.claimTerminal() {
		return
	}
	defer s.sub.Dispose()
	if !s.observer.handlesErr {
		panic(&UnhandledError{Cause: err})
	}
	s.observer.err(err)
}

// Complete delivers completion and disposes the backing subscription.
// Dropped if already terminated or unsubscribed.
func (s *Subscriber[T]) Complete() {
	if !s.claimTerminal() {
		return
	}
	defer s.sub.Dispose()
	s.observer.complete()
}

// claimTerminal performs the one-way transition; exactly one of two racing
// terminal deliveries wins it.
func (s *Subscriber[T]) claimTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || s.sub.IsDisposed() {
		return false
	}
	s.terminated = true
	return true
}
