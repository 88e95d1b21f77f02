package rx

import "sync"

// ReplaySubject is a Subject variant that buffers values pushed through it
// and replays the buffer to every new subscriber before registering it for
// live delivery. A limit of 0 keeps the whole history; a positive limit
// keeps only the most recent values. Terminal events are replayed after the
// buffer, exactly as a plain Subject replays them.
//
// The outer mutex serializes Subscribe against ingress so a value is seen
// either in the replayed buffer or live, never both and never neither.
// Handlers must not call back into the same ReplaySubject; deliveries run
// under the outer mutex.
type ReplaySubject[T any] struct {
	mu     sync.Mutex
	buffer []T
	limit  int
	inner  *Subject[T]
}

func NewReplaySubject[T any](limit int) *ReplaySubject[T] {
	return &ReplaySubject[T]{limit: limit, inner: NewSubject[T]()}
}

// Subscribe replays the buffered history to observer, then registers it for
// live delivery (or replays the terminal event if the subject has
// terminated).
func (s *ReplaySubject[T]) Subscribe(observer Observer[T]) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := NewSubscription()
	subscriber := NewSubscriberWith(observer, sub)
	for _, v := range s.buffer {
		subscriber.Next(v)
	}
	s.inner.Attach(subscriber)
	return sub
}

// Next buffers v and fans it out to the live subscribers. Dropped once
// terminated.
func (s *ReplaySubject[T]) Next(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inner.IsTerminated() {
		return
	}
	s.buffer = append(s.buffer, v)
	if s.limit > 0 && len(s.buffer) > s.limit {
		s.buffer = s.buffer[len(s.buffer)-s.limit:]
	}
	s.inner.Next(v)
}

// Error terminates the subject. Late subscribers still receive the buffered
// history before the stored error.
func (s *ReplaySubject[T]) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Error(err)
}

// Complete terminates the subject. Late subscribers still receive the
// buffered history before completion.
func (s *ReplaySubject[T]) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Complete()
}

// IsTerminated reports whether a terminal event has been delivered.
func (s *ReplaySubject[T]) IsTerminated() bool {
	return s.inner.IsTerminated()
}
