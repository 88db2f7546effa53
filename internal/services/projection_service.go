package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/engine"
	"fintrack/internal/store"
)

// UnknownGoalName labels items whose goal no longer exists.
const UnknownGoalName = "Unknown"

// ProjectionService answers projection queries from a per-owner ledger,
// cached until a write for that owner invalidates it.
type ProjectionService struct {
	store     store.Store
	projector *engine.Projector
	ledgers   cache.Cache[engine.Ledger]
	loads     singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

// NewProjectionService caches nothing when ledgers is nil.
func NewProjectionService(s store.Store, p *engine.Projector, ledgers cache.Cache[engine.Ledger]) *ProjectionService {
	return &ProjectionService{store: s, projector: p, ledgers: ledgers, gens: make(map[string]uint64)}
}

func (s *ProjectionService) Projector() *engine.Projector { return s.projector }

// Invalidate drops the cached ledger of owner. A load already in flight
// for owner is not cached when it finishes, and later callers start a new
// one.
func (s *ProjectionService) Invalidate(owner string) {
	s.mu.Lock()
	s.gens[owner]++
	s.mu.Unlock()

	s.loads.Forget(owner)
	if s.ledgers != nil {
		s.ledgers.Delete(owner)
	}
}

func (s *ProjectionService) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[owner]
}

// Ledger returns the owner's records, from cache when possible. Concurrent
// misses for one owner share a single load.
func (s *ProjectionService) Ledger(ctx context.Context, owner string) (engine.Ledger, error) {
	if s.ledgers != nil {
		if l, ok := s.ledgers.Get(owner); ok {
			return l, nil
		}
	}
	v, err, _ := s.loads.Do(owner, func() (any, error) {
		gen := s.generation(owner)
		l, err := LoadLedger(ctx, s.store, owner)
		if err != nil {
			return nil, err
		}
		if s.ledgers != nil {
			s.mu.Lock()
			if s.gens[owner] == gen {
				s.ledgers.Set(owner, l)
			}
			s.mu.Unlock()
		}
		return l, nil
	})
	if err != nil {
		return engine.Ledger{}, err
	}
	return v.(engine.Ledger), nil
}

func (s *ProjectionService) Balance(ctx context.Context, owner string, month core.Month) (engine.BalanceSnapshot, error) {
	l, err := s.Ledger(ctx, owner)
	if err != nil {
		return engine.BalanceSnapshot{}, err
	}
	return s.projector.Balance(WithRecorded(l, month), month), nil
}

func (s *ProjectionService) Budget(ctx context.Context, owner string, month core.Month) (engine.BudgetStatus, error) {
	l, err := s.Ledger(ctx, owner)
	if err != nil {
		return engine.BudgetStatus{}, err
	}
	return s.projector.Budget(l, month), nil
}

// SavingsView shows both savings models side by side.
type SavingsView struct {
	Portfolio engine.Portfolio        `json:"portfolio"`
	Derived   []engine.DerivedBalance `json:"derived"`
}

func (s *ProjectionService) Savings(ctx context.Context, owner string, month core.Month) (SavingsView, error) {
	l, err := s.Ledger(ctx, owner)
	if err != nil {
		return SavingsView{}, err
	}
	return SavingsView{
		Portfolio: s.projector.SavingsPortfolio(l.Savings, month),
		Derived:   s.projector.DerivedSavings(l.Savings, month),
	}, nil
}

func (s *ProjectionService) NetWorth(ctx context.Context, owner string, from core.Month, months int) ([]engine.NetWorthPoint, error) {
	l, err := s.Ledger(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.projector.NetWorth(l, from, months), nil
}

// NamedVerdict is an item verdict with its goal's name attached.
type NamedVerdict struct {
	engine.ItemVerdict
	GoalName string `json:"goal_name"`
}

// GoalMonthView is a scenario month ready for display.
type GoalMonthView struct {
	Month        core.Month      `json:"month"`
	WithoutGoals decimal.Decimal `json:"without_goals"`
	WithGoals    decimal.Decimal `json:"with_goals"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	EndBalance   decimal.Decimal `json:"end_balance"`
	Negative     bool            `json:"negative"`
	Items        []NamedVerdict  `json:"items"`
}

// Goals runs the affordability scenario from month and names each item's
// goal.
func (s *ProjectionService) Goals(ctx context.Context, owner string, month core.Month) ([]GoalMonthView, error) {
	l, err := s.Ledger(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("goal scenario: %w", err)
	}
	names := make(map[string]string, len(l.Goals))
	for _, g := range l.Goals {
		names[g.ID] = g.Name
	}

	timeline := s.projector.Goals(l, month)
	out := make([]GoalMonthView, 0, len(timeline))
	for _, gm := range timeline {
		v := GoalMonthView{
			Month:        gm.Month,
			WithoutGoals: gm.WithoutGoals,
			WithGoals:    gm.WithGoals,
			TotalCost:    gm.TotalCost,
			EndBalance:   gm.EndBalance,
			Negative:     gm.Negative,
			Items:        make([]NamedVerdict, 0, len(gm.Items)),
		}
		for _, it := range gm.Items {
			name, ok := names[it.GoalID]
			if !ok {
				name = UnknownGoalName
			}
			v.Items = append(v.Items, NamedVerdict{ItemVerdict: it, GoalName: name})
		}
		out = append(out, v)
	}
	return out, nil
}
