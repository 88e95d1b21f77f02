// Package logging provides the structured logger used across the module.
// The interface keeps call sites independent of the backing implementation;
// the default implementation writes through the standard log package with
// optional JSON output.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// Logger provides structured logging capabilities.
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// WithFields returns a new logger carrying structured key-value pairs
	WithFields(fields map[string]interface{}) Logger
}

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// ParseLevel maps a config string to a Level; unknown values mean Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config configures the standard logger.
type Config struct {
	// Level sets the minimum log level.
	Level Level
	// JSONOutput enables JSON structured output.
	JSONOutput bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

type stdLogger struct {
	out    *log.Logger
	config Config
	fields map[string]interface{}
}

// New creates a logger backed by the standard log package.
func New(config Config) Logger {
	w := config.Output
	if w == nil {
		w = os.Stderr
	}
	return &stdLogger{
		out:    log.New(w, "", 0),
		config: config,
		fields: map[string]interface{}{},
	}
}

func (l *stdLogger) Error(args ...interface{}) { l.emit(LevelError, "ERROR", args...) }
func (l *stdLogger) Info(args ...interface{})  { l.emit(LevelInfo, "INFO", args...) }
func (l *stdLogger) Debug(args ...interface{}) { l.emit(LevelDebug, "DEBUG", args...) }

func (l *stdLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &stdLogger{out: l.out, config: l.config, fields: merged}
}

func (l *stdLogger) emit(level Level, name string, args ...interface{}) {
	if level < l.config.Level {
		return
	}
	msg := fmt.Sprintln(args...)
	msg = strings.TrimSuffix(msg, "\n")

	if l.config.JSONOutput {
		entry := map[string]interface{}{
			"time":  time.Now().Format(time.RFC3339),
			"level": name,
			"msg":   msg,
		}
		for k, v := range l.fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			l.out.Printf("[%s] %s", name, msg)
			return
		}
		l.out.Print(string(data))
		return
	}

	if len(l.fields) == 0 {
		l.out.Printf("[%s] %s", name, msg)
		return
	}
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, l.fields[k]))
	}
	l.out.Printf("[%s] %s %s", name, msg, strings.Join(pairs, " "))
}

type nopLogger struct{}

// Nop returns a logger that discards everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Error(...interface{}) {}
func (nopLogger) Info(...interface{})  {}
func (nopLogger) Debug(...interface{}) {}

func (nopLogger) WithFields(map[string]interface{}) Logger { return nopLogger{} }
