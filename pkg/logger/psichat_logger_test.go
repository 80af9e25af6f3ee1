package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Debug("debug")
	log.Info("info")
	log.Warn("warn %d", 1)
	log.Error("error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Message != "warn 1" || entries[0].Level != "WARN" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].File == "" {
		t.Errorf("error entry has no caller file")
	}
	if entries[0].Service != "psichat" {
		t.Errorf("Service = %q, want psichat", entries[0].Service)
	}
}

func TestLoggerSpecialFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: LevelDebug, Output: &buf, Service: "test"})

	ctx := ContextWithUserID(ContextWithRequestID(context.Background(), "req-1"), "user-1")
	base.WithContext(ctx).
		WithError(errors.New("boom")).
		WithDuration(1500 * time.Microsecond).
		WithField("priority", "alta").
		Info("done")

	e := decodeLines(t, &buf)[0]
	if e.RequestID != "req-1" || e.UserID != "user-1" {
		t.Errorf("ids = (%q, %q), want (req-1, user-1)", e.RequestID, e.UserID)
	}
	if e.Error != "boom" {
		t.Errorf("Error = %q, want boom", e.Error)
	}
	if e.Duration != 1.5 {
		t.Errorf("Duration = %v, want 1.5", e.Duration)
	}
	if e.Fields["priority"] != "alta" || len(e.Fields) != 1 {
		t.Errorf("Fields = %v, want only priority", e.Fields)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Config{Level: LevelDebug, Output: &buf})
	_ = parent.WithField("child", true)

	parent.Info("parent")
	if e := decodeLines(t, &buf)[0]; e.Fields != nil {
		t.Errorf("parent Fields = %v, want nil", e.Fields)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"debug": LevelDebug, "WARNING": LevelWarn, "Error": LevelError, "": LevelInfo, "loud": LevelInfo}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitReconfiguresDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var first, second bytes.Buffer
	Init(Config{Level: LevelInfo, Output: &first})
	Init(Config{Level: LevelDebug, Output: &second, Service: "psichat-api"})

	Debug("debug line")

	if first.Len() != 0 {
		t.Errorf("first logger wrote %q, want nothing", first.String())
	}
	entries := decodeLines(t, &second)
	if len(entries) != 1 || entries[0].Message != "debug line" {
		t.Fatalf("entries = %+v, want the debug line", entries)
	}
	if entries[0].Service != "psichat-api" {
		t.Errorf("Service = %q, want psichat-api", entries[0].Service)
	}
}
