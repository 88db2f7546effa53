// Package services orchestrates the record store, the projection engine and
// the event publisher.
package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/engine"
	"fintrack/internal/store"
)

// LoadLedger reads every entity of owner concurrently. Month filtering is
// left to the engine so one ledger serves any projection month.
func LoadLedger(ctx context.Context, s store.Store, owner string) (engine.Ledger, error) {
	var l engine.Ledger
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { l.Accounts, err = store.ListOf[core.BankAccount](ctx, s, owner, ""); return })
	g.Go(func() (err error) { l.History, err = store.ListOf[core.BankBalanceEntry](ctx, s, owner, ""); return })
	g.Go(func() (err error) { l.Expenses, err = store.ListOf[core.Expense](ctx, s, owner, ""); return })
	g.Go(func() (err error) { l.Incomes, err = store.ListOf[core.Income](ctx, s, owner, ""); return })
	g.Go(func() (err error) { l.Savings, err = store.ListOf[core.SavingsTransaction](ctx, s, owner, ""); return })
	g.Go(func() (err error) { l.Templates, err = store.ListOf[core.RecurringTemplate](ctx, s, owner, ""); return })
	g.Go(func() (err error) { l.Budgets, err = store.ListOf[core.Budget](ctx, s, owner, ""); return })
	g.Go(func() (err error) { l.Goals, err = store.ListOf[core.Goal](ctx, s, owner, ""); return })
	g.Go(func() (err error) { l.GoalItems, err = store.ListOf[core.GoalItem](ctx, s, owner, ""); return })

	if err := g.Wait(); err != nil {
		return engine.Ledger{}, fmt.Errorf("load ledger: %w", err)
	}
	return l, nil
}

// RecordedFor lists which recurring templates already have a record in
// month. Savings records match on account name and action.
func RecordedFor(l engine.Ledger, month core.Month) engine.RecordedSet {
	set := make(engine.RecordedSet)
	for _, i := range l.Incomes {
		if i.Month == month {
			set.Add(core.KindIncome, i.Name, "")
		}
	}
	for _, e := range l.Expenses {
		if e.Month == month {
			set.Add(core.KindPayment, e.Name, "")
		}
	}
	for _, s := range l.Savings {
		if s.Month == month {
			set.Add(core.KindSavings, s.AccountName, s.Action)
		}
	}
	return set
}

// WithRecorded returns a copy of l whose Recorded set matches month.
func WithRecorded(l engine.Ledger, month core.Month) engine.Ledger {
	l.Recorded = RecordedFor(l, month)
	return l
}
