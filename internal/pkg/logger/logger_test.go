package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// capture builds a JSON logger writing into a buffer and returns both plus
// a decode helper for the single entry the test emits.
func capture(t *testing.T, level string) (*Logger, func() map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	log := New(Config{Level: level, Format: "json", Output: &buf, ServiceName: "render-test"})

	return log, func() map[string]any {
		t.Helper()
		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("log output is not JSON (%q): %v", buf.String(), err)
		}
		return entry
	}
}

func TestEntryShape(t *testing.T) {
	log, entry := capture(t, "info")
	log.Info("job accepted", "caption_len", 12)

	e := entry()
	if e["msg"] != "job accepted" {
		t.Errorf("unexpected msg: %v", e["msg"])
	}
	if e["caption_len"] != float64(12) {
		t.Errorf("unexpected attr: %v", e["caption_len"])
	}
	if e["service"] != "render-test" {
		t.Errorf("expected service tag, got %v", e["service"])
	}
	if e["time"] == nil {
		t.Error("expected a timestamp")
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		emit    func(*Logger)
		written bool
	}{
		{"info passes at info", "info", func(l *Logger) { l.Info("x") }, true},
		{"debug suppressed at info", "info", func(l *Logger) { l.Debug("x") }, false},
		{"debug passes at debug", "debug", func(l *Logger) { l.Debug("x") }, true},
		{"info suppressed at error", "error", func(l *Logger) { l.Info("x") }, false},
		{"warn alias", "warning", func(l *Logger) { l.Warn("x") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: tt.level, Format: "json", Output: &buf})
			tt.emit(log)
			if (buf.Len() > 0) != tt.written {
				t.Errorf("written=%v, want %v", buf.Len() > 0, tt.written)
			}
		})
	}
}

func TestScopedChildren(t *testing.T) {
	log, entry := capture(t, "info")
	log.WithComponent("janitor").WithJobID("job-9").Info("sweep completed")

	e := entry()
	if e["component"] != "janitor" {
		t.Errorf("expected component tag, got %v", e["component"])
	}
	if e["job_id"] != "job-9" {
		t.Errorf("expected job_id tag, got %v", e["job_id"])
	}
}

func TestWithError(t *testing.T) {
	log, entry := capture(t, "info")
	log.WithError(errors.New("encoder exited with code 1")).Warn("job failed")

	if e := entry(); e["error"] != "encoder exited with code 1" {
		t.Errorf("expected error tag, got %v", e["error"])
	}
	if log.WithError(nil) != log {
		t.Error("WithError(nil) must return the receiver unchanged")
	}
}

func TestFromContext(t *testing.T) {
	log, entry := capture(t, "info")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithJobID(ctx, "job-9")
	log.FromContext(ctx).Info("status polled")

	e := entry()
	if e["request_id"] != "req-1" || e["job_id"] != "job-9" {
		t.Errorf("expected both ids from context, got %v", e)
	}

	// An empty context enriches nothing.
	if log.FromContext(context.Background()) != log {
		t.Error("expected receiver back for bare context")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{" info ", "INFO"},
		{"bogus", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
