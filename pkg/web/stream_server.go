// Package web exposes hub topics as Server-Sent Event streams over
// fasthttp. GET /streams/<topic> subscribes the connection to the topic and
// writes events until the stream terminates or the client disconnects.
package web

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/reactive/pkg/hub"
	"github.com/fluxorio/reactive/pkg/logging"
	"github.com/fluxorio/reactive/pkg/rx"
)

const streamPrefix = "/streams/"

const defaultHeartbeat = 15 * time.Second

// StreamServer serves hub topics as SSE streams, with an optional metrics
// endpoint mounted next to them.
type StreamServer[T any] struct {
	hub         *hub.Hub[T]
	log         logging.Logger
	heartbeat   time.Duration
	metricsPath string
	metrics     fasthttp.RequestHandler

	mu     sync.Mutex
	server *fasthttp.Server
}

func NewStreamServer[T any](h *hub.Hub[T], log logging.Logger) *StreamServer[T] {
	if log == nil {
		log = logging.Nop()
	}
	return &StreamServer[T]{hub: h, log: log, heartbeat: defaultHeartbeat}
}

// WithHeartbeat overrides the keepalive interval used to detect clients
// that disconnect from a quiet stream.
func (s *StreamServer[T]) WithHeartbeat(d time.Duration) *StreamServer[T] {
	s.heartbeat = d
	return s
}

// WithMetrics mounts handler at path (typically a promhttp handler adapted
// to fasthttp).
func (s *StreamServer[T]) WithMetrics(path string, handler fasthttp.RequestHandler) *StreamServer[T] {
	s.metricsPath = path
	s.metrics = handler
	return s
}

// Handler routes a request to the metrics endpoint or a topic stream.
func (s *StreamServer[T]) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case s.metrics != nil && path == s.metricsPath:
		s.metrics(ctx)
	case strings.HasPrefix(path, streamPrefix):
		s.handleStream(ctx, strings.TrimPrefix(path, streamPrefix))
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *StreamServer[T]) handleStream(ctx *fasthttp.RequestCtx, topic string) {
	if topic == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("missing topic")
		return
	}

	log := s.log.WithFields(map[string]interface{}{"topic": topic, "remote": ctx.RemoteAddr().String()})
	log.Debug("stream client connected")

	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		done := make(chan struct{})
		var once sync.Once
		finish := func() { once.Do(func() { close(done) }) }

		var writeMu sync.Mutex
		writeEvent := func(event string, data []byte) {
			writeMu.Lock()
			defer writeMu.Unlock()
			fmt.Fprintf(w, "event: %s\n", event)
			// SSE data is per-line; a payload carrying newlines spans
			// several data lines.
			for _, line := range strings.Split(string(data), "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			// A flush failure means the client went away.
			if err := w.Flush(); err != nil {
				finish()
			}
		}

		sub := s.hub.Subscribe(topic, rx.NewObserver(
			func(v T) {
				data, err := json.Marshal(v)
				if err != nil {
					log.Error("encode event:", err)
					return
				}
				writeEvent("next", data)
			},
			func(err error) {
				writeEvent("error", []byte(err.Error()))
				finish()
			},
			func() {
				writeEvent("complete", nil)
				finish()
			},
		))

		// A quiet stream never flushes, so a silent disconnect would park
		// the subscription forever; periodic comments force a flush.
		heartbeat := time.NewTicker(s.heartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case <-done:
				sub.Dispose()
				log.Debug("stream client finished")
				return
			case <-heartbeat.C:
				writeMu.Lock()
				fmt.Fprint(w, ": keepalive\n\n")
				if err := w.Flush(); err != nil {
					finish()
				}
				writeMu.Unlock()
			}
		}
	})
}

// ListenAndServe blocks serving on addr until Shutdown.
func (s *StreamServer[T]) ListenAndServe(addr string) error {
	srv := s.newServer()
	return srv.ListenAndServe(addr)
}

// Serve blocks serving on an existing listener until Shutdown.
func (s *StreamServer[T]) Serve(ln net.Listener) error {
	srv := s.newServer()
	return srv.Serve(ln)
}

// Shutdown stops the running server gracefully.
func (s *StreamServer[T]) Shutdown() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown()
}

func (s *StreamServer[T]) newServer() *fasthttp.Server {
	srv := &fasthttp.Server{
		Handler: s.Handler,
		Name:    "reactive-stream",
		// Streams are long-lived; only bound the request read.
		ReadTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	return srv
}
