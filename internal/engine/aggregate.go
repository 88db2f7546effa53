package engine

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

// Window selects the records of one month. When UpToToday is set and Month
// is the month of Today, dated records after Today are left out. Other
// months are never date-filtered.
type Window struct {
	Month     core.Month
	UpToToday bool
	Today     string // YYYY-MM-DD
}

// RealizedWindow is the window of flows that have already happened: the
// whole month for past months, up to today for the current one.
func RealizedWindow(c core.Clock, m core.Month) Window {
	return Window{
		Month:     m,
		UpToToday: core.IsCurrentMonth(c, m),
		Today:     core.Today(c),
	}
}

// FullWindow is the whole month with no date filter.
func FullWindow(m core.Month) Window {
	return Window{Month: m}
}

func (w Window) dateFiltered() bool {
	return w.UpToToday && len(w.Today) >= 7 && core.Month(w.Today[:7]) == w.Month
}

// Includes reports whether r falls inside the window.
func (w Window) Includes(r core.Dated) bool {
	if r.RecordMonth() != w.Month {
		return false
	}
	if w.dateFiltered() {
		return core.DateUpTo(r.RecordDate(), w.Today)
	}
	return true
}

// ForMonth keeps the records inside w, preserving input order.
func ForMonth[R core.Dated](records []R, w Window) []R {
	out := make([]R, 0, len(records))
	for _, r := range records {
		if w.Includes(r) {
			out = append(out, r)
		}
	}
	return out
}

// SumBy adds amountOf over the records matching pred. A nil pred matches
// everything.
func SumBy[R any](records []R, pred func(R) bool, amountOf func(R) decimal.Decimal) decimal.Decimal {
	total := core.Zero
	for _, r := range records {
		if pred != nil && !pred(r) {
			continue
		}
		total = total.Add(amountOf(r))
	}
	return total
}

// ExpenseSplit partitions a month of expenses.
//
// Committed is what budget tracking sees: paid and planned expenses of any
// channel. CashImpact is what leaves the bank this month: every realized
// expense that settles immediately, which includes card settlement rows but
// not the card purchases they pay for.
type ExpenseSplit struct {
	Paid      decimal.Decimal `json:"paid"`
	Planned   decimal.Decimal `json:"planned"`
	Predicted decimal.Decimal `json:"predicted"`

	Committed  decimal.Decimal `json:"committed"`
	CashImpact decimal.Decimal `json:"cash_impact"`

	BankTransfer       decimal.Decimal            `json:"bank_transfer"`
	CreditCard         decimal.Decimal            `json:"credit_card"`
	CreditCardIncurred decimal.Decimal            `json:"credit_card_incurred"`
	Settlements        decimal.Decimal            `json:"settlements"`
	ByCard             map[string]decimal.Decimal `json:"by_card,omitempty"`
}

// SavingsSplit separates completed savings movements, which are already in
// the running balances, from pending ones.
type SavingsSplit struct {
	Deposits           decimal.Decimal `json:"deposits"`
	Withdrawals        decimal.Decimal `json:"withdrawals"`
	PendingDeposits    decimal.Decimal `json:"pending_deposits"`
	PendingWithdrawals decimal.Decimal `json:"pending_withdrawals"`
}

// PendingDelta is the net effect of the pending movements on savings.
func (s SavingsSplit) PendingDelta() decimal.Decimal {
	return s.PendingDeposits.Sub(s.PendingWithdrawals)
}

// MonthFlows is one month reduced to sums.
type MonthFlows struct {
	Month    core.Month      `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses ExpenseSplit    `json:"expenses"`
	Savings  SavingsSplit    `json:"savings"`
}

func statusOf(e core.Expense) core.ExpenseStatus {
	if e.Status == "" {
		return core.StatusPaid
	}
	return e.Status
}

func realized(e core.Expense) bool { return statusOf(e) != core.StatusPredicted }

func expenseAmount(e core.Expense) decimal.Decimal { return e.Amount }
func incomeAmount(i core.Income) decimal.Decimal   { return i.Amount }

// SplitExpenses reduces expenses that already passed a window.
func SplitExpenses(expenses []core.Expense) ExpenseSplit {
	s := ExpenseSplit{
		Paid:      SumBy(expenses, func(e core.Expense) bool { return statusOf(e) == core.StatusPaid }, expenseAmount),
		Planned:   SumBy(expenses, func(e core.Expense) bool { return statusOf(e) == core.StatusPlanned }, expenseAmount),
		Predicted: SumBy(expenses, func(e core.Expense) bool { return statusOf(e) == core.StatusPredicted }, expenseAmount),
		Committed: SumBy(expenses, func(e core.Expense) bool {
			return realized(e) && !e.IsCreditCardSettlement()
		}, expenseAmount),
		CashImpact: SumBy(expenses, func(e core.Expense) bool {
			return realized(e) && e.Settlement().Kind == core.SettleImmediate
		}, expenseAmount),
		BankTransfer: SumBy(expenses, func(e core.Expense) bool {
			return realized(e) && e.PaymentMethod != core.PaymentCreditCard
		}, expenseAmount),
		CreditCard: SumBy(expenses, func(e core.Expense) bool {
			return realized(e) && e.PaymentMethod == core.PaymentCreditCard
		}, expenseAmount),
		CreditCardIncurred: SumBy(expenses, func(e core.Expense) bool {
			return realized(e) && e.Settlement().Kind == core.SettleCreditCardPending
		}, expenseAmount),
		Settlements: SumBy(expenses, func(e core.Expense) bool {
			return realized(e) && e.IsCreditCardSettlement()
		}, expenseAmount),
	}
	for _, e := range expenses {
		if !realized(e) || e.Settlement().Kind != core.SettleCreditCardPending || e.CardID == "" {
			continue
		}
		if s.ByCard == nil {
			s.ByCard = make(map[string]decimal.Decimal)
		}
		s.ByCard[e.CardID] = s.ByCard[e.CardID].Add(e.Amount)
	}
	return s
}

// SplitSavings reduces savings movements, converting each to the base
// currency.
func SplitSavings(txs []core.SavingsTransaction, rates *currency.Normalizer) SavingsSplit {
	amount := func(t core.SavingsTransaction) decimal.Decimal {
		return rates.ToBase(t.Amount, t.Currency)
	}
	is := func(action core.SavingsAction, completed bool) func(core.SavingsTransaction) bool {
		return func(t core.SavingsTransaction) bool {
			return t.Action == action && t.IsCompleted == completed
		}
	}
	return SavingsSplit{
		Deposits:           SumBy(txs, is(core.ActionDeposit, true), amount),
		Withdrawals:        SumBy(txs, is(core.ActionWithdrawal, true), amount),
		PendingDeposits:    SumBy(txs, is(core.ActionDeposit, false), amount),
		PendingWithdrawals: SumBy(txs, is(core.ActionWithdrawal, false), amount),
	}
}

// AggregateMonth windows and reduces the flows of one month. Incomes and
// expenses are recorded in the base currency.
func AggregateMonth(w Window, incomes []core.Income, expenses []core.Expense, savings []core.SavingsTransaction, rates *currency.Normalizer) MonthFlows {
	return MonthFlows{
		Month:    w.Month,
		Income:   SumBy(ForMonth(incomes, w), nil, incomeAmount),
		Expenses: SplitExpenses(ForMonth(expenses, w)),
		Savings:  SplitSavings(ForMonth(savings, w), rates),
	}
}
