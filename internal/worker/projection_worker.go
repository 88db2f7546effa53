package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/services"
)

// Refresher recomputes one owner's projection.
type Refresher interface {
	Refresh(ctx context.Context, owner string) (services.ProjectionSummary, error)
}

// ProjectionWorker keeps exported projections current by recomputing an
// owner's figures whenever one of their records changes.
type ProjectionWorker struct {
	refresher Refresher
}

func NewProjectionWorker(r Refresher) *ProjectionWorker {
	return &ProjectionWorker{refresher: r}
}

// HandleRecordChanged processes a single record changed message from AMQP.
// A returned error makes the consumer requeue the message.
func (w *ProjectionWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	slog.InfoContext(ctx, "Processing record changed message",
		"owner_id", msg.OwnerID,
		"entity", msg.Entity,
		"record_id", msg.RecordID,
		"op", msg.Op)

	sum, err := w.refresher.Refresh(ctx, msg.OwnerID)
	if err != nil {
		return fmt.Errorf("refresh projection for %s: %w", msg.OwnerID, err)
	}

	slog.DebugContext(ctx, "Projection updated after change",
		"owner_id", msg.OwnerID,
		"month", sum.Month,
		"predicted", sum.Balance.Predicted.String())
	return nil
}

// StartupRefresh recomputes every listed owner once, so changes made while
// the worker was down are reflected. Failures are logged and skipped.
func (w *ProjectionWorker) StartupRefresh(ctx context.Context, owners []string) int {
	ok := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			break
		}
		if _, err := w.refresher.Refresh(ctx, owner); err != nil {
			slog.ErrorContext(ctx, "Startup refresh failed", "owner_id", owner, "error", err)
			continue
		}
		ok++
	}
	slog.InfoContext(ctx, "Startup refresh complete", "refreshed", ok, "owners", len(owners))
	return ok
}
