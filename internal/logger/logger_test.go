package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "swapbox", nil)

	log.Info(context.Background(), "dropped")
	log.Warn(context.Background(), "kept", "order_id", "abc")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record should be filtered, got %s", out)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", out, err)
	}
	if rec["msg"] != "kept" {
		t.Errorf("msg = %v, want kept", rec["msg"])
	}
	if rec["service"] != "swapbox" {
		t.Errorf("service = %v, want swapbox", rec["service"])
	}
	if rec["order_id"] != "abc" {
		t.Errorf("order_id = %v, want abc", rec["order_id"])
	}
}

func TestLogger_TraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "swapbox", func(ctx context.Context) string { return "trace-1" })

	log.Debug(context.Background(), "hello")

	if !strings.Contains(buf.String(), `"trace_id":"trace-1"`) {
		t.Errorf("expected trace id in record, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
