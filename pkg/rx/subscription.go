package rx

import "sync"

// Subscription is a Disposable specialized for an active observation. It
// owns zero or more resources that are released together when the
// subscription disposes, and it moves Active→Disposed exactly once; no
// operation re-enters Active.
type Subscription struct {
	mu       sync.Mutex
	disposed bool
	owned    []Disposable
}

func NewSubscription() *Subscription {
	return &Subscription{}
}

// Add chains a resource to this subscription. Adding to an already disposed
// subscription disposes the resource immediately instead of retaining it.
func (s *Subscription) Add(d Disposable) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		d.Dispose()
		return
	}
	s.owned = append(s.owned, d)
	s.mu.Unlock()
}

func (s *Subscription) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose transitions to Disposed and releases every owned resource in the
// order it was added. The owned set is detached under the lock first, so a
// release action that calls back into Add or Dispose cannot corrupt
// iteration. Exactly one caller runs the release actions even under
// concurrent disposal.
func (s *Subscription) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	owned := s.owned
	s.owned = nil
	s.mu.Unlock()
	disposeAll(owned)
}
