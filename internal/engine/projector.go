package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

// Ledger is every record of one owner, as loaded from the store.
type Ledger struct {
	Accounts  []core.BankAccount
	History   []core.BankBalanceEntry
	Expenses  []core.Expense
	Incomes   []core.Income
	Savings   []core.SavingsTransaction
	Templates []core.RecurringTemplate
	Budgets   []core.Budget
	Goals     []core.Goal
	GoalItems []core.GoalItem

	// Recorded lists the templates already materialized in the month being
	// projected. Nil means none.
	Recorded RecordedSet
}

// Projector composes the resolver, the aggregator and the template engine.
type Projector struct {
	Rates *currency.Normalizer
	Clock core.Clock
}

// NewProjector uses the system clock when c is nil.
func NewProjector(rates *currency.Normalizer, c core.Clock) *Projector {
	if c == nil {
		c = core.SystemClock{}
	}
	return &Projector{Rates: rates, Clock: c}
}

// AccountBalance is one bank account's recorded balance for a month.
type AccountBalance struct {
	AccountID   string          `json:"account_id"`
	Name        string          `json:"name"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	BaseBalance decimal.Decimal `json:"base_balance"`
	FromMonth   core.Month      `json:"from_month,omitempty"` // empty when falling back to the account
}

// RecordedBalances resolves the balance of every bank account visible in
// month: the latest history entry at or before month, else the account's
// last known balance.
func (p *Projector) RecordedBalances(accounts []core.BankAccount, history []core.BankBalanceEntry, month core.Month) []AccountBalance {
	visible := LatestAsOf(accounts, month, byID[core.BankAccount], VisibleUnlessClosed[core.BankAccount])
	entries := latestEntries(history, month)

	out := make([]AccountBalance, 0, len(visible))
	for _, id := range SortedKeys(visible) {
		acc := visible[id]
		ab := AccountBalance{AccountID: id, Name: acc.Name, Currency: acc.Currency, Balance: acc.Balance}
		if e, ok := entries[id]; ok {
			ab.Balance = e.Balance
			ab.FromMonth = e.Month
		}
		ab.BaseBalance = p.Rates.ToBase(ab.Balance, acc.Currency)
		out = append(out, ab)
	}
	return out
}

// RecordedBalance is the base-currency sum of RecordedBalances. Zero when
// there are no accounts.
func (p *Projector) RecordedBalance(accounts []core.BankAccount, history []core.BankBalanceEntry, month core.Month) decimal.Decimal {
	return SumBy(p.RecordedBalances(accounts, history, month), nil, func(a AccountBalance) decimal.Decimal {
		return a.BaseBalance
	})
}

// latestEntries picks, per account, the entry of the most recent month at or
// before month. Several entries for the same month resolve by UpdatedAt.
func latestEntries(history []core.BankBalanceEntry, month core.Month) map[string]core.BankBalanceEntry {
	perMonth := LatestAsOf(history, month, func(e core.BankBalanceEntry) string {
		return e.AccountID + "|" + string(e.Month)
	}, nil)

	out := make(map[string]core.BankBalanceEntry)
	for _, k := range SortedKeys(perMonth) {
		e := perMonth[k]
		if cur, ok := out[e.AccountID]; !ok || e.Month.After(cur.Month) {
			out[e.AccountID] = e
		}
	}
	return out
}

// BalanceSnapshot is the three balance figures of one month.
type BalanceSnapshot struct {
	Month     core.Month `json:"month"`
	NextMonth core.Month `json:"next_month"`

	Recorded decimal.Decimal  `json:"recorded"`
	Accounts []AccountBalance `json:"accounts"`

	Realized  MonthFlows      `json:"realized"`
	Projected decimal.Decimal `json:"projected"`

	NextRecurring       RecurringForecast `json:"next_recurring"`
	UnsettledCreditCard decimal.Decimal   `json:"unsettled_credit_card"`
	Predicted           decimal.Decimal   `json:"predicted"`

	PendingTemplates    []string        `json:"pending_templates"`
	PendingSavingsDelta decimal.Decimal `json:"pending_savings_delta"`
}

// Balance computes the recorded, projected and predicted balance of month.
//
//	projected = recorded + income - cash impact - deposits + withdrawals
//	predicted = projected + next income - next deposits + next withdrawals
//	            - next card payments - this month's unsettled card purchases
//
// Realized flows are the whole month for past months and up to today for
// the current one.
func (p *Projector) Balance(l Ledger, month core.Month) BalanceSnapshot {
	s := BalanceSnapshot{
		Month:     month,
		NextMonth: month.Next(),
		Accounts:  p.RecordedBalances(l.Accounts, l.History, month),
	}
	s.Recorded = SumBy(s.Accounts, nil, func(a AccountBalance) decimal.Decimal { return a.BaseBalance })

	s.Realized = AggregateMonth(RealizedWindow(p.Clock, month), l.Incomes, l.Expenses, l.Savings, p.Rates)
	s.Projected = s.Recorded.
		Add(s.Realized.Income).
		Sub(s.Realized.Expenses.CashImpact).
		Sub(s.Realized.Savings.Deposits).
		Add(s.Realized.Savings.Withdrawals)

	s.NextRecurring = Forecast(l.Templates, s.NextMonth, p.Rates)
	s.UnsettledCreditCard = s.Realized.Expenses.CreditCardIncurred
	s.Predicted = s.Projected.
		Add(s.NextRecurring.Income).
		Sub(s.NextRecurring.SavingsDeposits).
		Add(s.NextRecurring.SavingsWithdrawals).
		Sub(s.NextRecurring.CreditCardPayments).
		Sub(s.UnsettledCreditCard)

	s.PendingTemplates = make([]string, 0)
	for _, t := range PendingTemplates(l.Templates, month, l.Recorded) {
		s.PendingTemplates = append(s.PendingTemplates, t.Name)
	}
	s.PendingSavingsDelta = s.Realized.Savings.PendingDelta()
	return s
}

// BudgetStatus is how much of a month's budget is left.
type BudgetStatus struct {
	Month         core.Month      `json:"month"`
	HasBudget     bool            `json:"has_budget"`
	Budget        decimal.Decimal `json:"budget"`
	Committed     decimal.Decimal `json:"committed"`
	Left          decimal.Decimal `json:"left"`
	DaysInMonth   int             `json:"days_in_month"`
	DaysRemaining int             `json:"days_remaining"`
	DailyLimit    decimal.Decimal `json:"daily_limit"`
}

// Budget compares the month's budget with its committed expenses. Days
// remaining never drop below one, so the daily limit is always finite.
func (p *Projector) Budget(l Ledger, month core.Month) BudgetStatus {
	st := BudgetStatus{Month: month, DaysInMonth: month.DaysIn()}

	inMonth := make([]core.Budget, 0, 1)
	for _, b := range l.Budgets {
		if b.Month == month {
			inMonth = append(inMonth, b)
		}
	}
	if b, ok := LatestAsOf(inMonth, month, func(b core.Budget) string { return string(b.Month) }, nil)[string(month)]; ok {
		st.HasBudget = true
		st.Budget = b.Amount
		if b.DaysInMonth > 0 {
			st.DaysInMonth = b.DaysInMonth
		}
	}

	st.Committed = SplitExpenses(ForMonth(l.Expenses, FullWindow(month))).Committed
	st.Left = st.Budget.Sub(st.Committed)
	st.DaysRemaining = DaysRemaining(p.Clock.Now(), month, st.DaysInMonth)
	st.DailyLimit = st.Left.DivRound(decimal.NewFromInt(int64(st.DaysRemaining)), 2)
	return st
}

// DaysRemaining counts the days left in month after today, clamped to at
// least one. Past months have one day left; future months all of them.
func DaysRemaining(now time.Time, month core.Month, daysInMonth int) int {
	current := core.MonthOf(now)
	var n int
	switch {
	case month.Before(current):
		n = 1
	case month.After(current):
		n = daysInMonth
	default:
		n = daysInMonth - now.Day()
	}
	if n < 1 {
		n = 1
	}
	return n
}

// SavingsBalance is one savings account's latest balance.
type SavingsBalance struct {
	Name        string          `json:"name"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	BaseBalance decimal.Decimal `json:"base_balance"`
	AsOf        core.Month      `json:"as_of"`
}

// Portfolio is every savings account visible in a month.
type Portfolio struct {
	Month    core.Month       `json:"month"`
	Accounts []SavingsBalance `json:"accounts"`
	Total    decimal.Decimal  `json:"total"`
}

func savingsKey(t core.SavingsTransaction) string { return NameKey(t.AccountName) }

// SavingsPortfolio reads each account's running balance from its latest
// record at or before month.
func (p *Projector) SavingsPortfolio(savings []core.SavingsTransaction, month core.Month) Portfolio {
	latest := LatestAsOf(savings, month, savingsKey, VisibleUnlessClosed[core.SavingsTransaction])
	pf := Portfolio{Month: month, Accounts: make([]SavingsBalance, 0, len(latest)), Total: core.Zero}
	for _, k := range SortedKeys(latest) {
		t := latest[k]
		sb := SavingsBalance{
			Name:        t.AccountName,
			Currency:    t.Currency,
			Balance:     t.Balance,
			BaseBalance: p.Rates.ToBase(t.Balance, t.Currency),
			AsOf:        t.Month,
		}
		pf.Accounts = append(pf.Accounts, sb)
		pf.Total = pf.Total.Add(sb.BaseBalance)
	}
	return pf
}

// DerivedBalance is a savings balance rebuilt from transaction deltas.
type DerivedBalance struct {
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	Pending       decimal.Decimal `json:"pending"`
	Predicted     decimal.Decimal `json:"predicted"`
	BaseBalance   decimal.Decimal `json:"base_balance"`
	BasePredicted decimal.Decimal `json:"base_predicted"`
}

// DerivedSavings derives each account's balance as the sum of its completed
// deltas up to month, and its predicted balance by adding the pending ones.
// A record counts once: in Balance when completed, in Pending otherwise.
// Balances start at zero, so money held before the first record is absent.
func (p *Projector) DerivedSavings(savings []core.SavingsTransaction, month core.Month) []DerivedBalance {
	visible := LatestAsOf(savings, month, savingsKey, VisibleUnlessClosed[core.SavingsTransaction])

	sums := make(map[string]*DerivedBalance, len(visible))
	for _, t := range savings {
		k := savingsKey(t)
		latest, ok := visible[k]
		if !ok || t.Month.After(month) {
			continue
		}
		d, ok := sums[k]
		if !ok {
			d = &DerivedBalance{Name: latest.AccountName, Currency: latest.Currency, Balance: core.Zero, Pending: core.Zero}
			sums[k] = d
		}
		if t.IsCompleted {
			d.Balance = d.Balance.Add(t.SignedAmount())
		} else {
			d.Pending = d.Pending.Add(t.SignedAmount())
		}
	}

	out := make([]DerivedBalance, 0, len(sums))
	for _, k := range SortedKeys(sums) {
		d := *sums[k]
		d.Predicted = d.Balance.Add(d.Pending)
		d.BaseBalance = p.Rates.ToBase(d.Balance, d.Currency)
		d.BasePredicted = p.Rates.ToBase(d.Predicted, d.Currency)
		out = append(out, d)
	}
	return out
}

// NetWorthPoint is one month of the net-worth projection.
type NetWorthPoint struct {
	Month    core.Month      `json:"month"`
	Bank     decimal.Decimal `json:"bank"`
	Savings  decimal.Decimal `json:"savings"`
	NetWorth decimal.Decimal `json:"net_worth"`
}

// NetWorth projects months points starting at from. The first point is the
// projected bank balance plus SavingsPortfolio, the stored running balances.
// DerivedSavings is not used here: it counts tracked deltas only and would
// drop any opening amount an account held before its first record. Each
// following month applies that month's recurring forecast. Savings
// transfers move money between the pools without changing the total.
func (p *Projector) NetWorth(l Ledger, from core.Month, months int) []NetWorthPoint {
	if months < 1 {
		months = 1
	}
	bank := p.Balance(l, from).Projected
	savings := p.SavingsPortfolio(l.Savings, from).Total

	out := make([]NetWorthPoint, 0, months)
	out = append(out, NetWorthPoint{Month: from, Bank: bank, Savings: savings, NetWorth: bank.Add(savings)})
	for i := 1; i < months; i++ {
		m := from.AddMonths(i)
		f := Forecast(l.Templates, m, p.Rates)
		bank = bank.Add(f.Net()).Sub(f.SavingsDeposits).Add(f.SavingsWithdrawals)
		savings = savings.Add(f.SavingsDeposits).Sub(f.SavingsWithdrawals)
		out = append(out, NetWorthPoint{Month: m, Bank: bank, Savings: savings, NetWorth: bank.Add(savings)})
	}
	return out
}
