package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/engine"
)

// Materializer builds the concrete record a due template turns into.
type Materializer interface {
	Materialize(t core.RecurringTemplate, now time.Time, l engine.Ledger) core.Record
}

// MaterializerFunc adapts a function to Materializer.
type MaterializerFunc func(t core.RecurringTemplate, now time.Time, l engine.Ledger) core.Record

func (f MaterializerFunc) Materialize(t core.RecurringTemplate, now time.Time, l engine.Ledger) core.Record {
	return f(t, now, l)
}

// RecurringProcessor turns the templates due today into incomes, expenses
// and savings transactions, once per template and month.
type RecurringProcessor struct {
	records       *RecordService
	rates         *currency.Normalizer
	checker       DuenessChecker
	materializers map[core.TemplateKind]Materializer
}

// NewRecurringProcessor uses ExactDayChecker when checker is nil.
func NewRecurringProcessor(records *RecordService, rates *currency.Normalizer, checker DuenessChecker) *RecurringProcessor {
	if checker == nil {
		checker = ExactDayChecker{}
	}
	p := &RecurringProcessor{
		records:       records,
		rates:         rates,
		checker:       checker,
		materializers: make(map[core.TemplateKind]Materializer),
	}
	p.Register(core.KindIncome, MaterializerFunc(p.income))
	p.Register(core.KindPayment, MaterializerFunc(p.payment))
	p.Register(core.KindSavings, MaterializerFunc(p.savings))
	return p
}

// Register replaces the materializer for kind.
func (p *RecurringProcessor) Register(kind core.TemplateKind, m Materializer) {
	p.materializers[kind] = m
}

// Process materializes the owner's templates due at now and returns how
// many records it created. A template already matched by a record of the
// month is skipped; failures are logged and do not stop the run.
func (p *RecurringProcessor) Process(ctx context.Context, owner string, now time.Time) (int, error) {
	if p.records == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	l, err := LoadLedger(ctx, p.records.Store(), owner)
	if err != nil {
		return 0, fmt.Errorf("load templates: %w", err)
	}
	month := core.MonthOf(now)
	recorded := RecordedFor(l, month)
	active := engine.ActiveIn(l.Templates, month)

	slog.InfoContext(ctx, "Processing recurring templates",
		"owner_id", owner,
		"total_active", len(active),
		"processing_date", now.Format(core.DateLayout))

	created := 0
	for _, t := range active {
		if !p.checker.IsDue(t, now) || recorded.Has(t) {
			continue
		}
		m, ok := p.materializers[t.Kind]
		if !ok {
			slog.WarnContext(ctx, "No materializer for template kind",
				"template", t.Name,
				"kind", t.Kind)
			continue
		}

		rec := m.Materialize(t, now, l)
		if _, err := p.records.create(ctx, owner, rec, amqp.OpRecurring); err != nil {
			slog.ErrorContext(ctx, "Failed to create record from recurring template",
				"template_id", t.ID,
				"template", t.Name,
				"error", err)
			continue
		}
		recorded.Add(t.Kind, engine.TemplateRecordName(t), t.Action)
		created++

		slog.InfoContext(ctx, "Created record from recurring template",
			"template_id", t.ID,
			"template", t.Name,
			"kind", t.Kind,
			"amount", t.Amount.String())
	}

	slog.InfoContext(ctx, "Recurring template processing complete",
		"owner_id", owner,
		"created", created,
		"total_checked", len(active))
	return created, nil
}

// ProcessOwners runs Process for each owner and returns the total created.
// It stops early only when ctx is cancelled.
func (p *RecurringProcessor) ProcessOwners(ctx context.Context, owners []string, now time.Time) (int, error) {
	total := 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := p.Process(ctx, owner, now)
		if err != nil {
			slog.ErrorContext(ctx, "Recurring processing failed", "owner_id", owner, "error", err)
			continue
		}
		total += n
	}
	return total, nil
}

func (p *RecurringProcessor) income(t core.RecurringTemplate, now time.Time, _ engine.Ledger) core.Record {
	return &core.Income{
		Month:  core.MonthOf(now),
		Date:   now.Format(core.DateLayout),
		Name:   t.Name,
		Amount: p.rates.ToBase(t.Amount, t.Currency),
		Source: "recurring",
	}
}

func (p *RecurringProcessor) payment(t core.RecurringTemplate, now time.Time, _ engine.Ledger) core.Record {
	method := t.PaymentMethod
	if method == "" {
		method = core.PaymentBankTransfer
	}
	return &core.Expense{
		Month:         core.MonthOf(now),
		Date:          now.Format(core.DateLayout),
		Name:          t.Name,
		Amount:        p.rates.ToBase(t.Amount, t.Currency),
		Category:      t.Category,
		Status:        core.StatusPaid,
		PaymentMethod: method,
		CardID:        t.CardID,
	}
}

// savings records start pending and carry the account's current balance;
// completing them later moves the balance.
func (p *RecurringProcessor) savings(t core.RecurringTemplate, now time.Time, l engine.Ledger) core.Record {
	month := core.MonthOf(now)
	name := engine.TemplateRecordName(t)
	code := t.Currency
	if code == "" {
		code = p.rates.Base()
	}

	balance := core.Zero
	latest := engine.LatestAsOf(l.Savings, month, func(s core.SavingsTransaction) string {
		return engine.NameKey(s.AccountName)
	}, nil)
	if prev, ok := latest[engine.NameKey(name)]; ok {
		balance = prev.Balance
		if t.Currency == "" {
			code = prev.Currency
		}
	}

	return &core.SavingsTransaction{
		AccountName: name,
		Month:       month,
		Date:        now.Format(core.DateLayout),
		Action:      t.Action,
		Amount:      t.Amount,
		Currency:    code,
		Balance:     balance,
		Note:        "recurring: " + t.Name,
	}
}
