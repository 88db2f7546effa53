package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/engine"
	"fintrack/internal/store"
)

// SavingsService toggles whether savings transactions have settled.
type SavingsService struct {
	records *RecordService
}

func NewSavingsService(records *RecordService) *SavingsService {
	return &SavingsService{records: records}
}

// SetCompleted flips is_completed on one transaction and rewrites the
// running balance of every record of the same account from its month on.
// The rebuild starts from the account's opening balance at that month, so
// money that predates tracked deltas survives and reopening restores the
// balances completion wrote.
func (s *SavingsService) SetCompleted(ctx context.Context, owner, id string, completed bool) (*core.SavingsTransaction, error) {
	st := s.records.Store()
	tx, err := store.GetAs[core.SavingsTransaction](ctx, st, owner, id)
	if err != nil {
		return nil, err
	}
	if tx.IsCompleted == completed {
		return tx, nil
	}
	all, err := store.ListOf[core.SavingsTransaction](ctx, st, owner, "")
	if err != nil {
		return nil, err
	}

	key := engine.NameKey(tx.AccountName)
	account := make([]core.SavingsTransaction, 0)
	for _, r := range all {
		if engine.NameKey(r.AccountName) == key {
			account = append(account, r)
		}
	}
	opening := OpeningBalance(account, tx.Month)

	tx.IsCompleted = completed
	for i := range account {
		if account[i].ID == tx.ID {
			account[i] = *tx
		}
	}

	result := tx
	for _, r := range account {
		if r.Month.Before(tx.Month) {
			continue
		}
		bal := opening.Add(completedBetween(account, tx.Month, r.Month))
		if r.ID != tx.ID && r.Balance.Equal(bal) {
			continue
		}
		r.Balance = bal
		saved, err := s.records.Update(ctx, owner, &r)
		if err != nil {
			return nil, fmt.Errorf("restamp savings %s: %w", r.ID, err)
		}
		if r.ID == tx.ID {
			result = saved.(*core.SavingsTransaction)
		}
	}
	return result, nil
}

// OpeningBalance is an account's balance just before month: the stored
// balance of the latest earlier record, or, when month holds the first
// records, the latest stored balance of month minus that month's completed
// deltas.
func OpeningBalance(account []core.SavingsTransaction, month core.Month) decimal.Decimal {
	var before, within []core.SavingsTransaction
	for _, r := range account {
		switch {
		case r.Month.Before(month):
			before = append(before, r)
		case r.Month == month:
			within = append(within, r)
		}
	}
	if last, ok := latestSavings(before); ok {
		return last.Balance
	}
	last, ok := latestSavings(within)
	if !ok {
		return decimal.Zero
	}
	return last.Balance.Sub(completedBetween(within, month, month))
}

// latestSavings orders by month, then update time, then id.
func latestSavings(txs []core.SavingsTransaction) (core.SavingsTransaction, bool) {
	if len(txs) == 0 {
		return core.SavingsTransaction{}, false
	}
	best := txs[0]
	for _, r := range txs[1:] {
		switch {
		case r.Month.After(best.Month):
			best = r
		case r.Month != best.Month:
		case r.UpdatedAt.After(best.UpdatedAt):
			best = r
		case r.UpdatedAt.Equal(best.UpdatedAt) && r.ID > best.ID:
			best = r
		}
	}
	return best, true
}

func completedBetween(txs []core.SavingsTransaction, from, to core.Month) decimal.Decimal {
	return engine.SumBy(txs,
		func(t core.SavingsTransaction) bool {
			return t.IsCompleted && !t.Month.Before(from) && !t.Month.After(to)
		},
		func(t core.SavingsTransaction) decimal.Decimal { return t.SignedAmount() })
}
