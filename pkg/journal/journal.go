// Package journal persists stream events so a topic's history survives the
// process. A JournaledSubject is the durable flavor of rx.ReplaySubject:
// every value is appended to the journal before fan-out and replayed to new
// subscribers from storage.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fluxorio/reactive/pkg/rx"
)

// Journal is an append-only per-topic event log.
type Journal interface {
	// Append stores payload as the next event of topic.
	Append(ctx context.Context, topic string, payload []byte) error
	// Replay calls fn for every stored event of topic, oldest first.
	// A non-nil error from fn stops the replay and is returned.
	Replay(ctx context.Context, topic string, fn func(payload []byte) error) error
	Close() error
}

// JournaledSubject journals every value before fanning it out and replays
// the stored history to each new subscriber before live registration.
// The mutex serializes Subscribe against ingress so a value is seen either
// replayed or live, never both.
type JournaledSubject[T any] struct {
	mu      sync.Mutex
	topic   string
	journal Journal
	inner   *rx.Subject[T]
}

func NewJournaledSubject[T any](topic string, j Journal) *JournaledSubject[T] {
	return &JournaledSubject[T]{topic: topic, journal: j, inner: rx.NewSubject[T]()}
}

// Subscribe replays the journaled history to observer, then registers it
// for live delivery. A replay failure is returned and the observer is left
// unregistered with a disposed handle.
func (s *JournaledSubject[T]) Subscribe(ctx context.Context, observer rx.Observer[T]) (*rx.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := rx.NewSubscription()
	subscriber := rx.NewSubscriberWith(observer, sub)

	err := s.journal.Replay(ctx, s.topic, func(payload []byte) error {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("decode journaled event: %w", err)
		}
		subscriber.Next(v)
		return nil
	})
	if err != nil {
		sub.Dispose()
		return sub, fmt.Errorf("replay %s: %w", s.topic, err)
	}

	s.inner.Attach(subscriber)
	return sub, nil
}

// Next appends v to the journal, then fans it out. The append failure is
// returned and nothing is delivered, keeping storage ahead of observers.
// Dropped silently once terminated.
func (s *JournaledSubject[T]) Next(ctx context.Context, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inner.IsTerminated() {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.journal.Append(ctx, s.topic, payload); err != nil {
		return fmt.Errorf("append %s: %w", s.topic, err)
	}
	s.inner.Next(v)
	return nil
}

// Error terminates the stream. The journaled history remains; late
// subscribers receive it before the stored error.
func (s *JournaledSubject[T]) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Error(err)
}

// Complete terminates the stream normally.
func (s *JournaledSubject[T]) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Complete()
}

// IsTerminated reports whether a terminal event has been delivered.
func (s *JournaledSubject[T]) IsTerminated() bool {
	return s.inner.IsTerminated()
}
