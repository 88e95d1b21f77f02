package web

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fluxorio/reactive/pkg/hub"
)

var errBoom = errors.New("boom")

func startServer(t *testing.T, h *hub.Hub[string]) *http.Client {
	t.Helper()
	srv := NewStreamServer[string](h, nil)
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(context.Context, string, string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
}

func waitForSubscriber(t *testing.T, h *hub.Hub[string], topic string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.SubscriberCount(topic) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the stream request to subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamServer_ServesEventsUntilComplete(t *testing.T) {
	h := hub.New[string](nil)
	client := startServer(t, h)

	resp, err := client.Get("http://stream/streams/orders")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected SSE content type, got %q", ct)
	}

	waitForSubscriber(t, h, "orders")
	h.Publish("orders", "created")
	h.Publish("orders", "paid")
	h.Complete("orders")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	text := string(body)
	created := strings.Index(text, "event: next\ndata: \"created\"")
	paid := strings.Index(text, "event: next\ndata: \"paid\"")
	done := strings.Index(text, "event: complete")
	if created < 0 || paid < 0 || done < 0 {
		t.Fatalf("missing events in body:\n%s", text)
	}
	if !(created < paid && paid < done) {
		t.Errorf("events out of order in body:\n%s", text)
	}
}

func TestStreamServer_ErrorEventTerminatesStream(t *testing.T) {
	h := hub.New[string](nil)
	client := startServer(t, h)

	resp, err := client.Get("http://stream/streams/flaky")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	waitForSubscriber(t, h, "flaky")
	h.Publish("flaky", "one")
	h.Error("flaky", errBoom)

	reader := bufio.NewReader(resp.Body)
	body, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	if !strings.Contains(string(body), "event: error\ndata: boom") {
		t.Errorf("expected error event, got:\n%s", body)
	}
}

func TestStreamServer_ErrorWithNewlinesKeepsFraming(t *testing.T) {
	h := hub.New[string](nil)
	client := startServer(t, h)

	resp, err := client.Get("http://stream/streams/flaky")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	waitForSubscriber(t, h, "flaky")
	h.Error("flaky", errors.New("boom\nsecond line"))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	if !strings.Contains(string(body), "event: error\ndata: boom\ndata: second line\n\n") {
		t.Errorf("expected multi-line payload split across data lines, got:\n%s", body)
	}
}

func TestStreamServer_DisconnectedQuietClientReaped(t *testing.T) {
	h := hub.New[string](nil)
	srv := NewStreamServer[string](h, nil).WithHeartbeat(10 * time.Millisecond)
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(context.Context, string, string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}

	resp, err := client.Get("http://stream/streams/quiet")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	waitForSubscriber(t, h, "quiet")

	// The topic never emits, so only the heartbeat can notice the client
	// going away.
	resp.Body.Close()

	deadline := time.Now().Add(5 * time.Second)
	for h.SubscriberCount("quiet") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected the subscription reaped after a silent disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamServer_UnknownPathIs404(t *testing.T) {
	h := hub.New[string](nil)
	client := startServer(t, h)

	resp, err := client.Get("http://stream/nope")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fasthttp.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStreamServer_MissingTopicIs400(t *testing.T) {
	h := hub.New[string](nil)
	client := startServer(t, h)

	resp, err := client.Get("http://stream/streams/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fasthttp.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStreamServer_MetricsEndpointMounted(t *testing.T) {
	h := hub.New[string](nil)
	srv := NewStreamServer[string](h, nil).WithMetrics("/metrics", func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("metrics ok")
	})
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(context.Context, string, string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}

	resp, err := client.Get("http://stream/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "metrics ok" {
		t.Errorf("expected mounted metrics handler, got %q", body)
	}
}
