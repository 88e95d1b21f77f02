// Package prometheus instruments streams with delivery counters and a
// live-subscriber gauge, and exposes the scrape endpoint for the stream
// server.
package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fluxorio/reactive/pkg/rx"
)

// Event kind labels.
const (
	KindNext     = "next"
	KindError    = "error"
	KindComplete = "complete"
	KindDropped  = "dropped"
)

// Metrics holds the registry and collectors shared by instrumented streams.
type Metrics struct {
	registry    *prometheus.Registry
	events      *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reactive_events_total",
		Help: "Events pushed into a stream, by kind. Dropped counts post-terminal ingress.",
	}, []string{"stream", "kind"})
	m.subscribers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reactive_subscribers",
		Help: "Live subscribers per stream.",
	}, []string{"stream"})
	m.registry.MustRegister(m.events, m.subscribers)
	return m
}

// Registry exposes the backing registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape endpoint for standard net/http.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// FastHandler returns the scrape endpoint adapted to fasthttp, for mounting
// on the stream server.
func (m *Metrics) FastHandler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(m.Handler())
}

// InstrumentedSubject wraps a subject so ingress calls and subscriptions
// update the metrics. It satisfies rx.Observable. The mutex keeps the
// terminated check and the counter move atomic, so racing terminal callers
// cannot both count their kind.
type InstrumentedSubject[T any] struct {
	mu      sync.Mutex
	name    string
	subject *rx.Subject[T]
	metrics *Metrics
}

// Instrument wraps subject under the given stream name.
func Instrument[T any](m *Metrics, name string, subject *rx.Subject[T]) *InstrumentedSubject[T] {
	return &InstrumentedSubject[T]{name: name, subject: subject, metrics: m}
}

// Subscribe registers observer and tracks the subscriber gauge; the gauge
// drops when the subscription disposes, terminal delivery included.
func (s *InstrumentedSubject[T]) Subscribe(observer rx.Observer[T]) *rx.Subscription {
	gauge := s.metrics.subscribers.WithLabelValues(s.name)
	sub := s.subject.Subscribe(observer)
	if sub.IsDisposed() {
		// Late subscription to a terminated stream: never counted live.
		return sub
	}
	gauge.Inc()
	sub.Add(rx.NewDisposable(gauge.Dec))
	return sub
}

// Next forwards to the subject, counting the delivery (or the drop, once
// terminated).
func (s *InstrumentedSubject[T]) Next(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subject.IsTerminated() {
		s.metrics.events.WithLabelValues(s.name, KindDropped).Inc()
		return
	}
	s.metrics.events.WithLabelValues(s.name, KindNext).Inc()
	s.subject.Next(v)
}

func (s *InstrumentedSubject[T]) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subject.IsTerminated() {
		s.metrics.events.WithLabelValues(s.name, KindDropped).Inc()
		return
	}
	s.metrics.events.WithLabelValues(s.name, KindError).Inc()
	s.subject.Error(err)
}

func (s *InstrumentedSubject[T]) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subject.IsTerminated() {
		s.metrics.events.WithLabelValues(s.name, KindDropped).Inc()
		return
	}
	s.metrics.events.WithLabelValues(s.name, KindComplete).Inc()
	s.subject.Complete()
}
