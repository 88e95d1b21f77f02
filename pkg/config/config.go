// Package config loads the daemon configuration from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for cmd/reactived.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	NATS    NATSConfig    `yaml:"nats" json:"nats"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
	Journal JournalConfig `yaml:"journal" json:"journal"`
}

// ServerConfig configures the SSE stream server.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// NATSConfig maps hub topics onto NATS subjects in both directions.
type NATSConfig struct {
	URL string `yaml:"url" json:"url"`
	// Ingress maps hub topic -> NATS subject fed into the topic.
	Ingress map[string]string `yaml:"ingress" json:"ingress"`
	// Egress maps hub topic -> NATS subject the topic publishes to.
	Egress map[string]string `yaml:"egress" json:"egress"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Exporter    string  `yaml:"exporter" json:"exporter"` // stdout, jaeger, zipkin
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
}

// JournalConfig selects the event journal driver. Topics listed here get a
// journaling tap subscribed at startup.
type JournalConfig struct {
	Driver string   `yaml:"driver" json:"driver"` // "", "sqlite" or "postgres"
	DSN    string   `yaml:"dsn" json:"dsn"`
	Topics []string `yaml:"topics" json:"topics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "INFO"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Tracing: TracingConfig{ServiceName: "reactived", Exporter: "stdout", SampleRate: 1.0},
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	switch c.Journal.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown journal driver %q", c.Journal.Driver)
	}
	if c.Journal.Driver != "" && c.Journal.DSN == "" {
		return fmt.Errorf("config: journal.dsn is required with driver %q", c.Journal.Driver)
	}
	switch c.Tracing.Exporter {
	case "", "stdout", "jaeger", "zipkin":
	default:
		return fmt.Errorf("config: unknown tracing exporter %q", c.Tracing.Exporter)
	}
	return nil
}

// LoadYAML loads configuration from a YAML file into target.
func LoadYAML(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file into target.
func LoadJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}
