// Command reactived serves hub topics as SSE streams, optionally bridged to
// NATS and journaled to SQLite or Postgres. Configuration comes from a YAML
// file; every section has a working default.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	natsio "github.com/nats-io/nats.go"

	"github.com/fluxorio/reactive/pkg/bridge/nats"
	"github.com/fluxorio/reactive/pkg/config"
	"github.com/fluxorio/reactive/pkg/hub"
	"github.com/fluxorio/reactive/pkg/journal"
	"github.com/fluxorio/reactive/pkg/logging"
	"github.com/fluxorio/reactive/pkg/observability/otel"
	"github.com/fluxorio/reactive/pkg/observability/prometheus"
	"github.com/fluxorio/reactive/pkg/rx"
	"github.com/fluxorio/reactive/pkg/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reactived:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		if err := config.LoadYAML(*configPath, &cfg); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:      logging.ParseLevel(cfg.Logging.Level),
		JSONOutput: cfg.Logging.JSON,
	})

	if cfg.Tracing.Enabled {
		shutdown, err := otel.Init(otel.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Exporter:    cfg.Tracing.Exporter,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	h := hub.New[json.RawMessage](log)
	defer h.Close()

	if cfg.Journal.Driver != "" {
		j, err := openJournal(cfg.Journal)
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()
		for _, topic := range cfg.Journal.Topics {
			sub := journalTap(h, j, topic, log)
			defer sub.Dispose()
		}
		log.WithFields(map[string]interface{}{"driver": cfg.Journal.Driver}).Info("journal attached")
	}

	if cfg.NATS.URL != "" {
		conn, err := natsio.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer conn.Close()
		for topic, subj := range cfg.NATS.Ingress {
			detach, err := nats.BindIngress(conn, subj, h.Topic(topic), log)
			if err != nil {
				return fmt.Errorf("bind ingress %s: %w", topic, err)
			}
			defer detach.Dispose()
		}
		for topic, subj := range cfg.NATS.Egress {
			egress := nats.BindEgress[json.RawMessage](conn, subj, h.Topic(topic), log)
			defer egress.Dispose()
		}
		log.WithFields(map[string]interface{}{"url": cfg.NATS.URL}).Info("nats bridges attached")
	}

	srv := web.NewStreamServer[json.RawMessage](h, log)
	if cfg.Metrics.Enabled {
		srv.WithMetrics(cfg.Metrics.Path, prometheus.NewMetrics().FastHandler())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.Server.Addr) }()
	log.WithFields(map[string]interface{}{"addr": cfg.Server.Addr}).Info("stream server started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		log.Info("shutting down on signal:", s)
		return srv.Shutdown()
	}
}

// journalTap subscribes an appender on topic so every published event is
// persisted. Append failures are logged; the stream is not interrupted.
func journalTap(h *hub.Hub[json.RawMessage], j journal.Journal, topic string, log logging.Logger) *rx.Subscription {
	return h.Subscribe(topic, rx.NewObserver(
		func(v json.RawMessage) {
			if err := j.Append(context.Background(), topic, v); err != nil {
				log.WithFields(map[string]interface{}{"topic": topic}).Error("journal append:", err)
			}
		},
		func(error) {},
		nil,
	))
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Driver {
	case "sqlite":
		return journal.OpenSQLite(cfg.DSN)
	case "postgres":
		return journal.OpenPostgres(context.Background(), cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
