package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// MaxGoalHorizon caps the goal scenario, in months.
const MaxGoalHorizon = 24

// ItemVerdict is whether a single goal item fits its month.
type ItemVerdict struct {
	ItemID       string          `json:"item_id"`
	GoalID       string          `json:"goal_id"`
	Name         string          `json:"name"`
	Cost         decimal.Decimal `json:"cost"`
	PlannedMonth core.Month      `json:"planned_month"`
	Overdue      bool            `json:"overdue"`
	Affordable   bool            `json:"affordable"`
}

// GoalMonth is one month of the scenario.
type GoalMonth struct {
	Month        core.Month      `json:"month"`
	WithoutGoals decimal.Decimal `json:"without_goals"`
	WithGoals    decimal.Decimal `json:"with_goals"`
	Items        []ItemVerdict   `json:"items"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	EndBalance   decimal.Decimal `json:"end_balance"`
	Negative     bool            `json:"negative"`
}

// PendingItems returns the unpurchased items ordered by planned month, name
// and id.
func PendingItems(items []core.GoalItem) []core.GoalItem {
	out := make([]core.GoalItem, 0, len(items))
	for _, it := range items {
		if !it.IsPurchased {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PlannedMonth != b.PlannedMonth {
			return a.PlannedMonth < b.PlannedMonth
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out
}

// GoalHorizon is the number of months from current to the furthest pending
// planned month, inclusive, capped at MaxGoalHorizon. Zero when nothing is
// pending.
func GoalHorizon(items []core.GoalItem, current core.Month) int {
	pending := PendingItems(items)
	if len(pending) == 0 {
		return 0
	}
	furthest := current
	for _, it := range pending {
		if it.PlannedMonth.After(furthest) {
			furthest = it.PlannedMonth
		}
	}
	n := core.MonthsBetween(current, furthest) + 1
	if n > MaxGoalHorizon {
		n = MaxGoalHorizon
	}
	return n
}

// GoalScenario walks the without-goals series alongside the pending items.
//
// Each month starts from its without-goals balance minus everything deducted
// in earlier months. Every item of the month is judged on its own against
// that starting balance; then all of the month's costs are deducted at once.
// So two items may each be affordable while the month still ends negative.
//
// Items planned before current are treated as due in current. Items beyond
// the horizon are left out. With no pending items the result is empty.
func GoalScenario(withoutGoals []NetWorthPoint, items []core.GoalItem, current core.Month) []GoalMonth {
	horizon := GoalHorizon(items, current)
	if horizon == 0 {
		return nil
	}

	series := make(map[core.Month]decimal.Decimal, len(withoutGoals))
	for _, pt := range withoutGoals {
		series[pt.Month] = pt.NetWorth
	}

	buckets := make(map[core.Month][]core.GoalItem)
	for _, it := range PendingItems(items) {
		m := it.PlannedMonth
		if m.Before(current) {
			m = current
		}
		buckets[m] = append(buckets[m], it)
	}

	out := make([]GoalMonth, 0, horizon)
	deducted := core.Zero
	last := core.Zero
	for i := 0; i < horizon; i++ {
		m := current.AddMonths(i)
		without, ok := series[m]
		if !ok {
			without = last
		}
		last = without

		gm := GoalMonth{
			Month:        m,
			WithoutGoals: without,
			WithGoals:    without.Sub(deducted),
			Items:        make([]ItemVerdict, 0, len(buckets[m])),
			TotalCost:    core.Zero,
		}
		for _, it := range buckets[m] {
			gm.Items = append(gm.Items, ItemVerdict{
				ItemID:       it.ID,
				GoalID:       it.GoalID,
				Name:         it.Name,
				Cost:         it.EstimatedCost,
				PlannedMonth: it.PlannedMonth,
				Overdue:      it.PlannedMonth.Before(current),
				Affordable:   gm.WithGoals.GreaterThanOrEqual(it.EstimatedCost),
			})
			gm.TotalCost = gm.TotalCost.Add(it.EstimatedCost)
		}
		gm.EndBalance = gm.WithGoals.Sub(gm.TotalCost)
		gm.Negative = gm.EndBalance.IsNegative()
		deducted = deducted.Add(gm.TotalCost)
		out = append(out, gm)
	}
	return out
}

// Goals runs the goal scenario over the net-worth projection from month.
func (p *Projector) Goals(l Ledger, month core.Month) []GoalMonth {
	horizon := GoalHorizon(l.GoalItems, month)
	if horizon == 0 {
		return nil
	}
	return GoalScenario(p.NetWorth(l, month, horizon), l.GoalItems, month)
}
