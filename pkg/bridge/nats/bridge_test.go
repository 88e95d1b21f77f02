package nats

import (
	"errors"
	"sync"
	"testing"
	"time"

	server "github.com/nats-io/nats-server/v2/server"
	natsio "github.com/nats-io/nats.go"

	"github.com/fluxorio/reactive/pkg/rx"
)

func startServer(t *testing.T) *natsio.Conn {
	t.Helper()
	srv, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("failed to create nats server: %v", err)
	}
	go srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not become ready")
	}

	conn, err := natsio.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(conn.Close)
	return conn
}

type order struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

func TestBridge_EgressToIngressRoundtrip(t *testing.T) {
	conn := startServer(t)

	src := rx.NewSubject[order]()
	dst := rx.NewSubject[order]()

	var mu sync.Mutex
	var got []order
	arrived := make(chan struct{}, 4)
	completed := make(chan struct{})
	dst.Subscribe(rx.NewObserver(
		func(v order) {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
			arrived <- struct{}{}
		},
		func(err error) { t.Errorf("unexpected stream error: %v", err) },
		func() { close(completed) },
	))

	detach, err := BindIngress(conn, "events.orders", dst, nil)
	if err != nil {
		t.Fatalf("BindIngress failed: %v", err)
	}
	defer detach.Dispose()
	BindEgress[order](conn, "events.orders", src, nil)

	src.Next(order{ID: 1, Status: "created"})
	src.Next(order{ID: 1, Status: "paid"})

	// Terminal events travel on a companion subject with no ordering
	// guarantee against the value subject, so wait for both values first.
	for i := 0; i < 2; i++ {
		select {
		case <-arrived:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for values to cross the bridge")
		}
	}
	src.Complete()

	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion to cross the bridge")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0].Status != "created" || got[1].Status != "paid" {
		t.Errorf("expected both orders in order, got %v", got)
	}
}

func TestBridge_ErrorCrossesAsTerminal(t *testing.T) {
	conn := startServer(t)

	src := rx.NewSubject[int]()
	dst := rx.NewSubject[int]()

	errCh := make(chan error, 1)
	dst.SubscribeNextError(func(int) {}, func(err error) { errCh <- err })

	detach, err := BindIngress(conn, "events.fail", dst, nil)
	if err != nil {
		t.Fatalf("BindIngress failed: %v", err)
	}
	defer detach.Dispose()
	BindEgress[int](conn, "events.fail", src, nil)

	src.Error(errors.New("upstream died"))

	select {
	case err := <-errCh:
		if err.Error() != "upstream died" {
			t.Errorf("expected error text to survive the wire, got %q", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error to cross the bridge")
	}

	if !dst.IsTerminated() {
		t.Error("expected destination stream terminated")
	}
}

func TestBridge_DetachStopsForwarding(t *testing.T) {
	conn := startServer(t)

	src := rx.NewSubject[int]()
	egress := BindEgress[int](conn, "events.detach", src, nil)

	received := make(chan int, 8)
	sub, err := conn.Subscribe("events.detach", func(m *natsio.Msg) {
		received <- len(m.Data)
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	src.Next(1)
	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first event")
	}

	egress.Dispose()
	src.Next(2)
	if err := conn.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	select {
	case <-received:
		t.Error("expected no forwarding after the bridge was detached")
	case <-time.After(200 * time.Millisecond):
	}
}
