package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.Debug("hidden")
	l.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected debug output filtered at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected info output, got %q", out)
	}
}

func TestLogger_FieldsAppearSorted(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf})

	l.WithFields(map[string]interface{}{"b": 2, "a": 1}).Info("msg")

	out := buf.String()
	if !strings.Contains(out, "a=1 b=2") {
		t.Errorf("expected sorted fields, got %q", out)
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, JSONOutput: true, Output: &buf})

	l.WithFields(map[string]interface{}{"topic": "orders"}).Error("failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected valid JSON, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "ERROR" || entry["msg"] != "failed" || entry["topic"] != "orders" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != LevelDebug {
		t.Error("expected debug")
	}
	if ParseLevel("ERROR") != LevelError {
		t.Error("expected error")
	}
	if ParseLevel("weird") != LevelInfo {
		t.Error("expected unknown levels to mean info")
	}
}
