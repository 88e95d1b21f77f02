// Package hub provides a topic-addressed registry of subjects: the in-process
// equivalent of an event bus where every topic is a multicast stream with the
// full subscription lifecycle of pkg/rx.
package hub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fluxorio/reactive/pkg/logging"
	"github.com/fluxorio/reactive/pkg/rx"
)

// Hub maps topic names to subjects. Topics are created lazily on first use
// and evicted once terminated, eagerly through Error and Complete and
// lazily when a topic terminated through its own handle is next accessed.
// A terminated topic's name may be reused, which starts a fresh stream.
type Hub[T any] struct {
	mu     sync.RWMutex
	topics map[string]*rx.Subject[T]
	log    logging.Logger
}

func New[T any](log logging.Logger) *Hub[T] {
	if log == nil {
		log = logging.Nop()
	}
	return &Hub[T]{topics: make(map[string]*rx.Subject[T]), log: log}
}

// Topic returns the subject behind a topic, creating it if needed. Exposed
// so bridges can bind ingress and egress directly to the stream. A subject
// terminated through this handle is replaced with a fresh one on the next
// access, keeping the name reusable.
func (h *Hub[T]) Topic(name string) *rx.Subject[T] {
	h.mu.RLock()
	s, ok := h.topics[name]
	h.mu.RUnlock()
	if ok && !s.IsTerminated() {
		return s
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok = h.topics[name]; ok && !s.IsTerminated() {
		return s
	}
	s = rx.NewSubject[T]()
	h.topics[name] = s
	return s
}

// Publish pushes v to every subscriber of topic.
func (h *Hub[T]) Publish(topic string, v T) {
	h.Topic(topic).Next(v)
}

// Subscribe registers observer on topic and returns its subscription
// handle. Each subscriber gets an id carried through the debug logs.
func (h *Hub[T]) Subscribe(topic string, observer rx.Observer[T]) *rx.Subscription {
	id := uuid.NewString()
	log := h.log.WithFields(map[string]interface{}{"topic": topic, "subscriber": id})

	sub := h.Topic(topic).Subscribe(observer)
	log.Debug("subscribed")
	sub.Add(rx.NewDisposable(func() {
		log.Debug("unsubscribed")
	}))
	return sub
}

// Error terminates topic with err and evicts it. Dropped if the topic does
// not exist.
func (h *Hub[T]) Error(topic string, err error) {
	if s, ok := h.evict(topic); ok {
		h.log.WithFields(map[string]interface{}{"topic": topic}).Debug("topic failed:", err)
		s.Error(err)
	}
}

// Complete terminates topic normally and evicts it. Dropped if the topic
// does not exist.
func (h *Hub[T]) Complete(topic string) {
	if s, ok := h.evict(topic); ok {
		h.log.WithFields(map[string]interface{}{"topic": topic}).Debug("topic completed")
		s.Complete()
	}
}

// SubscriberCount reports the live subscribers on topic; 0 for unknown
// topics.
func (h *Hub[T]) SubscriberCount(topic string) int {
	h.mu.RLock()
	s, ok := h.topics[topic]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.SubscriberCount()
}

// Topics lists the currently live topic names. Topics terminated through
// their handle but not yet replaced are excluded.
func (h *Hub[T]) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.topics))
	for name, s := range h.topics {
		if !s.IsTerminated() {
			names = append(names, name)
		}
	}
	return names
}

// Close completes every live topic. Subscribers receive their completion
// and the hub is left empty.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	topics := h.topics
	h.topics = make(map[string]*rx.Subject[T])
	h.mu.Unlock()
	for _, s := range topics {
		s.Complete()
	}
}

func (h *Hub[T]) evict(topic string) (*rx.Subject[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.topics[topic]
	if ok {
		delete(h.topics, topic)
	}
	return s, ok
}
