package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func capture(level zerolog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	zerolog.DurationFieldUnit = time.Millisecond
	return &Logger{zl: zerolog.New(&buf).Level(level)}, &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return m
}

func TestFields(t *testing.T) {
	l, buf := capture(zerolog.DebugLevel)
	l.Info("launch",
		String("session", "s1"),
		Int("window", 3),
		Bool("forward", true),
		Duration("elapsed_ms", 1500*time.Millisecond),
		Error(errors.New("boom")),
		Error(nil),
		Any("phase", []string{"history"}))

	m := decode(t, buf)
	if m["message"] != "launch" || m["level"] != "info" {
		t.Fatalf("unexpected entry %v", m)
	}
	if m["session"] != "s1" || m["window"] != float64(3) || m["forward"] != true {
		t.Fatalf("unexpected fields %v", m)
	}
	if m["elapsed_ms"] != float64(1500) || m["error"] != "boom" {
		t.Fatalf("unexpected duration or error %v", m)
	}
}

func TestWithAndLevel(t *testing.T) {
	l, buf := capture(zerolog.InfoLevel)
	child := l.With(String("component", "queue"), Int("worker", 1))

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered: %s", buf.String())
	}
	child.Warn("slow")
	m := decode(t, buf)
	if m["component"] != "queue" || m["worker"] != float64(1) || m["level"] != "warn" {
		t.Fatalf("unexpected entry %v", m)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error")
	}
	Nop().Error("discarded", String("k", "v"))
}
