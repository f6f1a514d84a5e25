package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogrusLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	log.Info("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected log to contain 'test message', got: %s", buf.String())
	}
}

func TestLogrusLogger_DebugFilteredAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	log.Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("Expected debug output to be filtered, got: %s", buf.String())
	}

	log.SetLevel(logrus.DebugLevel)
	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("Expected debug output after SetLevel, got: %s", buf.String())
	}
}

func TestLogrusLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	log.Error("test error message", errors.New("test error"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "test error message" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["error"] != "test error" {
		t.Errorf("unexpected error field: %v", entry["error"])
	}
}

func TestLogrusLogger_ChainedFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	chained := log.WithField("first", "value1").WithFields(map[string]interface{}{
		"second": "value2",
		"port":   3306,
	})
	chained.Info("chained fields test")

	output := buf.String()
	for _, want := range []string{"first=value1", "second=value2", "port=3306"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected log to contain %q, got: %s", want, output)
		}
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("dropped")
	log.WithField("k", "v").Error("dropped", errors.New("x"))
}
