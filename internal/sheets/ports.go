// Package sheets exports computed projections to spreadsheets.
package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/engine"
)

// ProjectionRow is one exported line: an owner's figures for one month of
// the net-worth series, with the balance snapshot of the first month.
type ProjectionRow struct {
	ComputedAt time.Time
	OwnerID    string
	Month      core.Month
	Recorded   decimal.Decimal
	Projected  decimal.Decimal
	Predicted  decimal.Decimal
	Bank       decimal.Decimal
	Savings    decimal.Decimal
	NetWorth   decimal.Decimal
}

// Ports for outbound adapters.
type (
	ProjectionWriter interface {
		AppendProjection(ctx context.Context, rows []ProjectionRow) (rowRef string, err error)
	}
)

// RowsFrom flattens a snapshot and its net-worth series. Balance columns are
// only filled on the snapshot's own month.
func RowsFrom(owner string, snap engine.BalanceSnapshot, series []engine.NetWorthPoint, at time.Time) []ProjectionRow {
	rows := make([]ProjectionRow, 0, len(series))
	for _, p := range series {
		r := ProjectionRow{
			ComputedAt: at,
			OwnerID:    owner,
			Month:      p.Month,
			Bank:       p.Bank,
			Savings:    p.Savings,
			NetWorth:   p.NetWorth,
		}
		if p.Month == snap.Month {
			r.Recorded = snap.Recorded
			r.Projected = snap.Projected
			r.Predicted = snap.Predicted
		}
		rows = append(rows, r)
	}
	return rows
}
