package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

var ErrAlreadyPurchased = errors.New("goal item already purchased")

// GoalCategory is the expense category used when the goal has none.
const GoalCategory = "goals"

// GoalService handles goal item purchases.
type GoalService struct {
	records *RecordService
}

func NewGoalService(records *RecordService) *GoalService {
	return &GoalService{records: records}
}

// Purchase records the companion expense for a goal item in now's month and
// marks the item purchased. If the item cannot be updated the expense is
// removed again.
func (s *GoalService) Purchase(ctx context.Context, owner, itemID string, now time.Time) (*core.GoalItem, *core.Expense, error) {
	st := s.records.Store()
	item, err := store.GetAs[core.GoalItem](ctx, st, owner, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item.IsPurchased {
		return nil, nil, ErrAlreadyPurchased
	}

	category := GoalCategory
	if goal, err := store.GetAs[core.Goal](ctx, st, owner, item.GoalID); err == nil && goal.Category != "" {
		category = goal.Category
	}
	method := item.PaymentMethod
	if method == "" {
		method = core.PaymentBankTransfer
	}

	rec, err := s.records.Create(ctx, owner, &core.Expense{
		Month:         core.MonthOf(now),
		Date:          now.Format(core.DateLayout),
		Name:          item.Name,
		Amount:        item.EstimatedCost,
		Category:      category,
		Status:        core.StatusPaid,
		PaymentMethod: method,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create purchase expense: %w", err)
	}
	expense := rec.(*core.Expense)

	purchasedAt := now.UTC()
	item.IsPurchased = true
	item.PurchasedAt = &purchasedAt
	saved, err := s.records.Update(ctx, owner, item)
	if err != nil {
		if derr := s.records.Delete(ctx, owner, core.EntityExpense, expense.ID); derr != nil {
			slog.ErrorContext(ctx, "Failed to roll back purchase expense",
				"record_id", expense.ID,
				"error", derr)
		}
		return nil, nil, fmt.Errorf("mark item purchased: %w", err)
	}
	return saved.(*core.GoalItem), expense, nil
}
