package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
	"fintrack/internal/store"
)

type runRecorder struct {
	runs []storage.ProjectionRun
	err  error
}

func (r *runRecorder) SaveProjectionRun(_ context.Context, run storage.ProjectionRun) error {
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *runRecorder) LastProjectionRun(_ context.Context, owner string, month core.Month) (storage.ProjectionRun, error) {
	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].OwnerID == owner && r.runs[i].Month == month {
			return r.runs[i], nil
		}
	}
	return storage.ProjectionRun{}, store.ErrNotFound
}

type failingWriter struct{}

func (failingWriter) AppendProjection(context.Context, []sheets.ProjectionRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestRefresher_Refresh(t *testing.T) {
	env := newEnv(t)
	seedBalanceScenario(t, env)
	ctx := context.Background()

	svc := NewProjectionService(env.store, env.projector, nil)
	runs := &runRecorder{}
	writer := memory.New()
	r := NewRefresher(svc, runs, writer, today, 3)

	sum, err := r.Refresh(ctx, "u1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sum.Month != "2025-03" || !sum.Balance.Projected.Equal(dec("12000")) || len(sum.NetWorth) != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.RowRef != "mem:1-3" {
		t.Errorf("RowRef = %q", sum.RowRef)
	}

	if len(runs.runs) != 1 || !runs.runs[0].Predicted.Equal(dec("15000")) || !runs.runs[0].NetWorth.Equal(dec("12000")) {
		t.Errorf("runs = %+v", runs.runs)
	}
	last, err := runs.LastProjectionRun(ctx, "u1", "2025-03")
	if err != nil {
		t.Fatal(err)
	}
	if last.RowRef != "mem:1-3" || !last.Recorded.Equal(dec("10000")) {
		t.Errorf("saved run row_ref/recorded = %q/%s, want mem:1-3/10000", last.RowRef, last.Recorded)
	}
	rows := writer.Rows()
	if len(rows) != 3 {
		t.Fatalf("exported %d rows, want 3", len(rows))
	}
	if !rows[0].Projected.Equal(dec("12000")) || !rows[1].Projected.IsZero() || rows[2].Month != "2025-05" {
		t.Errorf("rows = %+v", rows)
	}

	runs.err = errors.New("disk full")
	if _, err := r.Refresh(ctx, "u1"); err == nil {
		t.Error("expected error when the run cannot be saved")
	}
}

func TestRefresher_FailedExportSavesNoRun(t *testing.T) {
	env := newEnv(t)
	seedBalanceScenario(t, env)
	runs := &runRecorder{}
	r := NewRefresher(NewProjectionService(env.store, env.projector, nil), runs, failingWriter{}, today, 3)

	if _, err := r.Refresh(context.Background(), "u1"); err == nil {
		t.Fatal("expected export error")
	}
	if len(runs.runs) != 0 {
		t.Errorf("runs = %+v, want none after a failed export", runs.runs)
	}
}

func TestRefresher_NoSinks(t *testing.T) {
	env := newEnv(t)
	r := NewRefresher(NewProjectionService(env.store, env.projector, nil), nil, nil, today, 0)
	sum, err := r.Refresh(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(sum.NetWorth) != 12 || sum.RowRef != "" {
		t.Errorf("summary = %+v", sum)
	}
}

func TestDefaultRefreshProcessorConfig(t *testing.T) {
	config := DefaultRefreshProcessorConfig()
	if config.PollInterval != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}

	p := NewRefreshProcessor(nil, RefreshProcessorConfig{})
	if p.config != config {
		t.Errorf("zero config not defaulted: %+v", p.config)
	}
}

func TestRefreshProcessor_ProcessBatch(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	refresh := func(_ context.Context, owner string) error {
		mu.Lock()
		defer mu.Unlock()
		calls[owner]++
		if owner == "broken" {
			return errors.New("boom")
		}
		return nil
	}
	p := NewRefreshProcessor(refresh, RefreshProcessorConfig{BatchSize: 2, MaxRetries: 2, PollInterval: time.Hour})

	ctx := context.Background()
	if n := p.ProcessBatch(ctx); n != 0 {
		t.Errorf("empty batch processed %d", n)
	}

	p.Mark("alice")
	p.Mark("broken")
	p.Mark("carol")
	p.Mark("alice")
	if p.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", p.Pending())
	}

	// First batch: alice and broken, in owner order.
	if n := p.ProcessBatch(ctx); n != 1 {
		t.Errorf("first batch refreshed %d, want 1", n)
	}
	if p.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2 (broken, carol)", p.Pending())
	}

	// Second batch: broken fails again and is dropped; carol succeeds.
	if n := p.ProcessBatch(ctx); n != 1 {
		t.Errorf("second batch refreshed %d, want 1", n)
	}
	if p.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", p.Pending())
	}
	if calls["alice"] != 1 || calls["broken"] != 2 || calls["carol"] != 1 {
		t.Errorf("calls = %v", calls)
	}
}

func TestRefreshProcessor_Lifecycle(t *testing.T) {
	done := make(chan string, 1)
	p := NewRefreshProcessor(func(_ context.Context, owner string) error {
		select {
		case done <- owner:
		default:
		}
		return nil
	}, RefreshProcessorConfig{PollInterval: 10 * time.Millisecond})

	if p.IsRunning() {
		t.Error("processor should not be running initially")
	}
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if !p.IsRunning() {
		t.Error("processor should be running")
	}

	p.Mark("u1")
	select {
	case owner := <-done:
		if owner != "u1" {
			t.Errorf("refreshed %q, want u1", owner)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("owner was never refreshed")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should be stopped")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
