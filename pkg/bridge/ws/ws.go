// Package ws streams a subject's events to websocket clients. Each
// connecting client gets its own subscription; the socket closes after the
// terminal frame, and a client disconnect disposes the subscription.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/fluxorio/reactive/pkg/logging"
	"github.com/fluxorio/reactive/pkg/rx"
)

// Frame is the wire form of one stream event.
type Frame struct {
	Kind  string          `json:"kind"` // "next", "error" or "complete"
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

const (
	KindNext     = "next"
	KindError    = "error"
	KindComplete = "complete"
)

// Handler returns an http.Handler that upgrades each request to a
// websocket and forwards src's events as JSON frames until the stream
// terminates or the client goes away.
func Handler[T any](src rx.Observable[T], log logging.Logger) http.Handler {
	if log == nil {
		log = logging.Nop()
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade:", err)
			return
		}

		done := make(chan struct{})
		var once sync.Once
		finish := func() { once.Do(func() { close(done) }) }

		// Gorilla permits one concurrent writer per connection.
		var writeMu sync.Mutex
		send := func(f Frame) {
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteJSON(f); err != nil {
				finish()
			}
		}

		sub := src.Subscribe(rx.NewObserver(
			func(v T) {
				data, err := json.Marshal(v)
				if err != nil {
					log.Error("encode event:", err)
					return
				}
				send(Frame{Kind: KindNext, Value: data})
			},
			func(err error) {
				send(Frame{Kind: KindError, Error: err.Error()})
				finish()
			},
			func() {
				send(Frame{Kind: KindComplete})
				finish()
			},
		))

		// Reads only serve to detect the client hanging up.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					finish()
					return
				}
			}
		}()

		<-done
		sub.Dispose()
		_ = conn.Close()
	})
}
