package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFieldsToSliceIsOrdered(t *testing.T) {
	got := NewFields().
		WithRecord("alice", "expenses", "e1").
		WithMonth("2025-03").
		WithError(errors.New("boom")).
		ToSlice()

	want := []any{
		FieldEntity, "expenses",
		FieldError, "boom",
		FieldMonth, "2025-03",
		FieldOwnerID, "alice",
		FieldRecordID, "e1",
	}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToSlice()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLogRecordWritten(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentHTTP))

	sl.LogRecordWritten(context.Background(), OpCreate, "alice", "incomes", "i1", "2025-03")

	line := decodeLine(t, &buf)
	for key, want := range map[string]string{
		FieldOwnerID:   "alice",
		FieldEntity:    "incomes",
		FieldRecordID:  "i1",
		FieldMonth:     "2025-03",
		FieldOperation: OpCreate,
	} {
		if line[key] != want {
			t.Errorf("%s = %v, want %s", key, line[key], want)
		}
	}
}

func TestLogErrorAcceptsNilFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentApp))

	sl.LogError(context.Background(), "failed", errors.New("boom"), ComponentStorage, OpList, nil)

	line := decodeLine(t, &buf)
	if line[FieldError] != "boom" || line[FieldOperation] != OpList {
		t.Errorf("unexpected line %v", line)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf, ComponentHTTP)

	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	line := decodeLine(t, &buf)
	if line[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v, want req-1", line[FieldRequestID])
	}
}

func TestComponentAttachedOnce(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentApp).With("owner_id", "alice").WithComponent(ComponentWorker)

	l.Info("hello")

	raw := buf.String()
	if n := strings.Count(raw, `"component"`); n != 1 {
		t.Fatalf("component appears %d times in %s", n, raw)
	}
	line := decodeLine(t, &buf)
	if line[FieldComponent] != ComponentWorker || line[FieldOwnerID] != "alice" {
		t.Errorf("unexpected line %v", line)
	}
}

func TestFromContextDefaults(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("FromContext() = %+v, want default logger", l)
	}
}
