package rx

import "sync"

type terminalKind uint8

const (
	terminalNone terminalKind = iota
	terminalError
	terminalComplete
)

// Subject is simultaneously an Observer (ingress: Next, Error, Complete)
// and an Observable (egress: Subscribe). Events pushed into it fan out to
// every live subscriber in subscription order. The subject moves
// Open→Terminated exactly once; after that every ingress call is a silent
// no-op and the stored terminal event is replayed synchronously to anyone
// who subscribes late.
//
// All mutation of the live set and the terminal state goes through one
// mutex owned by the instance, so producers and disposers may call in from
// different goroutines. Delivery itself happens outside the lock over a
// snapshot, which keeps a handler that disposes its own (or another)
// subscription mid fan-out from corrupting iteration.
type Subject[T any] struct {
	mu       sync.Mutex
	subs     []*Subscriber[T]
	terminal terminalKind
	termErr  error
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe registers observer for fan-out and returns its subscription
// handle; disposing the handle removes this subscriber without affecting
// the others. Subscribing to a terminated subject synchronously replays the
// stored terminal event to the new observer only and returns an
// already-disposed handle.
func (s *Subject[T]) Subscribe(observer Observer[T]) *Subscription {
	sub := NewSubscription()
	s.Attach(NewSubscriberWith(observer, sub))
	return sub
}

// SubscribeNext subscribes with only a next handler. A failing sequence
// will raise UnhandledError at the producer; see Observer.
func (s *Subject[T]) SubscribeNext(next func(T)) *Subscription {
	return s.Subscribe(OnNext(next))
}

// SubscribeNextError subscribes with next and error handlers.
func (s *Subject[T]) SubscribeNextError(next func(T), errFn func(error)) *Subscription {
	return s.Subscribe(OnNextError(next, errFn))
}

// Attach registers an existing subscriber, or replays the stored terminal
// event to it when the subject has already terminated. Buffering subjects
// build on this to deliver history before registration.
func (s *Subject[T]) Attach(subscriber *Subscriber[T]) {
	s.mu.Lock()
	if s.terminal == terminalNone {
		s.subs = append(s.subs, subscriber)
		s.mu.Unlock()
		return
	}
	kind, err := s.terminal, s.termErr
	s.mu.Unlock()
	if kind == terminalError {
		subscriber.Error(err)
		return
	}
	subscriber.Complete()
}

// IsTerminated reports whether a terminal event has been delivered.
func (s *Subject[T]) IsTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal != terminalNone
}

// SubscriberCount reports the number of live subscribers.
func (s *Subject[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if !sub.IsDisposed() {
			n++
		}
	}
	return n
}

// Next fans v out to every live subscriber in subscription order. Dropped
// once the subject has terminated. A subscriber disposed by its owner is
// skipped and lazily evicted.
func (s *Subject[T]) Next(v T) {
	s.mu.Lock()
	if s.terminal != terminalNone {
		s.mu.Unlock()
		return
	}
	targets := s.snapshotLocked()
	s.mu.Unlock()
	for _, sub := range targets {
		sub.Next(v)
	}
}

// Error terminates the subject: the error is stored for late subscribers
// and delivered once to every live subscriber, then the live set is
// cleared. Dropped if already terminated, even under racing Error and
// Complete callers. A subscriber without an error handler raises
// UnhandledError here, at the producer's call site; remaining subscribers
// are still delivered to first.
func (s *Subject[T]) Error(err error) {
	targets, ok := s.terminate(terminalError, err)
	if !ok {
		return
	}
	var failures []error
	for _, sub := range targets {
		if f := capture(func() { sub.Error(err) }); f != nil {
			failures = append(failures, f)
		}
	}
	raise(failures)
}

// Complete terminates the subject: completion is stored for late
// subscribers and delivered once to every live subscriber, then the live
// set is cleared. Dropped if already terminated.
func (s *Subject[T]) Complete() {
	targets, ok := s.terminate(terminalComplete, nil)
	if !ok {
		return
	}
	var failures []error
	for _, sub := range targets {
		if f := capture(sub.Complete); f != nil {
			failures = append(failures, f)
		}
	}
	raise(failures)
}

// terminate claims the one-way transition and detaches the live set.
// Exactly one of two racing terminal callers wins.
func (s *Subject[T]) terminate(kind terminalKind, err error) ([]*Subscriber[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal != terminalNone {
		return nil, false
	}
	s.terminal = kind
	s.termErr = err
	targets := s.snapshotLocked()
	s.subs = nil
	return targets, true
}

// snapshotLocked compacts away subscribers disposed by their owners and
// returns a copy of the survivors for iteration outside the lock.
func (s *Subject[T]) snapshotLocked() []*Subscriber[T] {
	kept := s.subs[:0]
	for _, sub := range s.subs {
		if !sub.IsDisposed() {
			kept = append(kept, sub)
		}
	}
	s.subs = kept
	targets := make([]*Subscriber[T], len(kept))
	copy(targets, kept)
	return targets
}
