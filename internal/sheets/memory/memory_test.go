package memory

import (
	"context"
	"testing"

	"fintrack/internal/sheets"
)

func TestWriter_AppendProjection(t *testing.T) {
	w := New()
	ref, err := w.AppendProjection(context.Background(), []sheets.ProjectionRow{{OwnerID: "u1", Month: "2025-03"}, {OwnerID: "u1", Month: "2025-04"}})
	if err != nil {
		t.Fatalf("AppendProjection: %v", err)
	}
	if ref != "mem:1-2" {
		t.Errorf("ref = %q, want mem:1-2", ref)
	}

	ref, _ = w.AppendProjection(context.Background(), []sheets.ProjectionRow{{OwnerID: "u2", Month: "2025-03"}})
	if ref != "mem:3-3" {
		t.Errorf("ref = %q, want mem:3-3", ref)
	}

	rows := w.Rows()
	if len(rows) != 3 || rows[2].OwnerID != "u2" {
		t.Errorf("Rows() = %+v", rows)
	}
	rows[0].OwnerID = "changed"
	if w.Rows()[0].OwnerID != "u1" {
		t.Error("Rows() must return a copy")
	}
}

func TestWriter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().AppendProjection(ctx, nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
