package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/engine"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// RunRecorder persists the headline figures of a recomputation and reads
// the last one back. *storage.SQLiteRepository implements it.
type RunRecorder interface {
	SaveProjectionRun(ctx context.Context, run storage.ProjectionRun) error
	LastProjectionRun(ctx context.Context, owner string, month core.Month) (storage.ProjectionRun, error)
}

// ProjectionSummary is the result of one recomputation.
type ProjectionSummary struct {
	OwnerID    string
	Month      core.Month
	Balance    engine.BalanceSnapshot
	NetWorth   []engine.NetWorthPoint
	ComputedAt time.Time
	RowRef     string
}

// Refresher recomputes an owner's current-month projection from fresh data
// and hands it to the optional recorder and writer.
type Refresher struct {
	projections *ProjectionService
	runs        RunRecorder
	writer      sheets.ProjectionWriter
	clock       core.Clock
	months      int
}

// NewRefresher projects months months of net worth; runs and writer may be
// nil.
func NewRefresher(p *ProjectionService, runs RunRecorder, writer sheets.ProjectionWriter, c core.Clock, months int) *Refresher {
	if c == nil {
		c = core.SystemClock{}
	}
	if months < 1 {
		months = 12
	}
	return &Refresher{projections: p, runs: runs, writer: writer, clock: c, months: months}
}

// Refresh drops the cached ledger, recomputes and exports.
func (r *Refresher) Refresh(ctx context.Context, owner string) (ProjectionSummary, error) {
	r.projections.Invalidate(owner)

	now := r.clock.Now()
	month := core.MonthOf(now)
	sum := ProjectionSummary{OwnerID: owner, Month: month, ComputedAt: now}

	var err error
	if sum.Balance, err = r.projections.Balance(ctx, owner, month); err != nil {
		return sum, fmt.Errorf("balance: %w", err)
	}
	if sum.NetWorth, err = r.projections.NetWorth(ctx, owner, month, r.months); err != nil {
		return sum, fmt.Errorf("net worth: %w", err)
	}

	if r.writer != nil {
		ref, err := r.writer.AppendProjection(ctx, sheets.RowsFrom(owner, sum.Balance, sum.NetWorth, now))
		if err != nil {
			return sum, fmt.Errorf("export projection: %w", err)
		}
		sum.RowRef = ref
	}

	// Saved after the export so the run carries its row reference.
	if r.runs != nil {
		run := storage.ProjectionRun{
			OwnerID:    owner,
			Month:      month,
			Recorded:   sum.Balance.Recorded,
			Projected:  sum.Balance.Projected,
			Predicted:  sum.Balance.Predicted,
			NetWorth:   sum.NetWorth[0].NetWorth,
			RowRef:     sum.RowRef,
			ComputedAt: now,
		}
		if err := r.runs.SaveProjectionRun(ctx, run); err != nil {
			return sum, fmt.Errorf("save projection run: %w", err)
		}
	}

	slog.InfoContext(ctx, "Projection refreshed",
		"owner_id", owner,
		"month", month,
		"projected", sum.Balance.Projected.String(),
		"predicted", sum.Balance.Predicted.String(),
		"row_ref", sum.RowRef)
	return sum, nil
}
