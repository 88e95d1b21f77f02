// Package nats bridges in-process streams onto NATS subjects: egress
// publishes a stream's events to a subject, ingress feeds a subject's
// messages into a stream. Values cross the wire as JSON; terminal events
// travel on companion subjects so a remote stream terminates the way a
// local one does.
package nats

import (
	"encoding/json"
	"errors"
	"fmt"

	natsio "github.com/nats-io/nats.go"

	"github.com/fluxorio/reactive/pkg/logging"
	"github.com/fluxorio/reactive/pkg/rx"
)

// Companion subject suffixes carrying terminal events.
const (
	errSuffix  = ".err"
	doneSuffix = ".done"
)

// BindEgress forwards every event of src to the NATS subject subj: next
// values are JSON published on subj, an error publishes its text on
// subj+".err", completion publishes an empty message on subj+".done".
// Publish failures are logged, not propagated: a flaky transport must not
// kill the stream. The returned subscription detaches the bridge without
// terminating src.
func BindEgress[T any](conn *natsio.Conn, subj string, src rx.Observable[T], log logging.Logger) *rx.Subscription {
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithFields(map[string]interface{}{"subject": subj})

	return src.Subscribe(rx.NewObserver(
		func(v T) {
			data, err := json.Marshal(v)
			if err != nil {
				log.Error("encode event:", err)
				return
			}
			if err := conn.Publish(subj, data); err != nil {
				log.Error("publish event:", err)
			}
		},
		func(streamErr error) {
			if err := conn.Publish(subj+errSuffix, []byte(streamErr.Error())); err != nil {
				log.Error("publish terminal error:", err)
			}
		},
		func() {
			if err := conn.Publish(subj+doneSuffix, nil); err != nil {
				log.Error("publish completion:", err)
			}
		},
	))
}

// BindIngress feeds messages arriving on subj into dst: payloads are JSON
// decoded and pushed as next values, subj+".err" terminates dst with the
// carried error, subj+".done" completes it. Undecodable payloads are logged
// and skipped. The returned disposable drains the NATS subscriptions; it
// does not terminate dst.
func BindIngress[T any](conn *natsio.Conn, subj string, dst *rx.Subject[T], log logging.Logger) (rx.Disposable, error) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithFields(map[string]interface{}{"subject": subj})

	valueSub, err := conn.Subscribe(subj, func(m *natsio.Msg) {
		var v T
		if err := json.Unmarshal(m.Data, &v); err != nil {
			log.Error("decode event:", err)
			return
		}
		dst.Next(v)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}

	errSub, err := conn.Subscribe(subj+errSuffix, func(m *natsio.Msg) {
		dst.Error(errors.New(string(m.Data)))
	})
	if err != nil {
		_ = valueSub.Unsubscribe()
		return nil, fmt.Errorf("subscribe %s: %w", subj+errSuffix, err)
	}

	doneSub, err := conn.Subscribe(subj+doneSuffix, func(m *natsio.Msg) {
		dst.Complete()
	})
	if err != nil {
		_ = valueSub.Unsubscribe()
		_ = errSub.Unsubscribe()
		return nil, fmt.Errorf("subscribe %s: %w", subj+doneSuffix, err)
	}

	return rx.NewDisposable(func() {
		_ = valueSub.Unsubscribe()
		_ = errSub.Unsubscribe()
		_ = doneSub.Unsubscribe()
	}), nil
}
