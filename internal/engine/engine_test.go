package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func month(s string) core.Month { return core.MustParseMonth(s) }

func at(day int) time.Time { return time.Date(2025, time.March, day, 9, 0, 0, 0, time.UTC) }

func meta(id string, updated time.Time) core.Meta {
	return core.Meta{ID: id, OwnerID: "u1", CreatedAt: updated, UpdatedAt: updated}
}

func assertDec(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}

func TestLatestAsOf(t *testing.T) {
	records := []core.SavingsTransaction{
		{Meta: meta("a", at(3)), AccountName: "ETF", Month: month("2025-01"), Balance: dec("100")},
		{Meta: meta("b", at(2)), AccountName: "ETF", Month: month("2025-02"), Balance: dec("200")},
		{Meta: meta("c", at(1)), AccountName: "Cash", Month: month("2025-02"), Balance: dec("5")},
		{Meta: meta("d", at(1)), AccountName: "Cash", Month: month("2025-02"), Balance: dec("6")},
		{Meta: meta("e", at(9)), AccountName: "Cash", Month: month("2025-05"), Balance: dec("7")},
	}

	t.Run("max updated_at wins over max month", func(t *testing.T) {
		got := LatestAsOf(records, month("2025-03"), savingsKey, nil)
		if got["etf"].ID != "a" {
			t.Errorf("ETF resolved to %s, want a", got["etf"].ID)
		}
	})

	t.Run("equal timestamps break on id", func(t *testing.T) {
		got := LatestAsOf(records, month("2025-03"), savingsKey, nil)
		if got["cash"].ID != "d" {
			t.Errorf("Cash resolved to %s, want d", got["cash"].ID)
		}
	})

	t.Run("future records ignored", func(t *testing.T) {
		got := LatestAsOf(records, month("2025-01"), savingsKey, nil)
		if len(got) != 1 || got["etf"].ID != "a" {
			t.Errorf("unexpected result %v", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		first := LatestAsOf(records, month("2025-06"), savingsKey, nil)
		second := LatestAsOf(records, month("2025-06"), savingsKey, nil)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("results differ: %v vs %v", first, second)
		}
		if records[0].ID != "a" || records[4].ID != "e" {
			t.Error("input was mutated")
		}
	})
}

func TestVisibleUnlessClosed_Boundary(t *testing.T) {
	closed := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	accounts := []core.BankAccount{
		{Meta: meta("acc1", at(1)), Name: "Main", ClosedAt: &closed},
		{Meta: meta("acc2", at(1)), Name: "Other"},
	}
	visible := VisibleUnlessClosed[core.BankAccount]

	in := LatestAsOf(accounts, month("2025-03"), byID[core.BankAccount], visible)
	if _, ok := in["acc1"]; !ok {
		t.Error("account must be visible in its closing month")
	}
	out := LatestAsOf(accounts, month("2025-03").Next(), byID[core.BankAccount], visible)
	if _, ok := out["acc1"]; ok {
		t.Error("account must be hidden the month after closing")
	}
	if _, ok := out["acc2"]; !ok {
		t.Error("open account must stay visible")
	}

	t.Run("closing record hides older snapshots", func(t *testing.T) {
		txs := []core.SavingsTransaction{
			{Meta: meta("s1", at(1)), AccountName: "Old", Month: month("2025-01"), Balance: dec("10")},
			{Meta: meta("s2", at(5)), AccountName: "Old", Month: month("2025-03"), ClosedAt: &closed},
		}
		vis := VisibleUnlessClosed[core.SavingsTransaction]
		if got := LatestAsOf(txs, month("2025-02"), savingsKey, vis); got["old"].ID != "s1" {
			t.Errorf("history before closing lost: %v", got)
		}
		if got := LatestAsOf(txs, month("2025-04"), savingsKey, vis); len(got) != 0 {
			t.Errorf("closed account resurrected: %v", got)
		}
	})
}

func TestForMonth_UpToToday(t *testing.T) {
	clock := core.FixedDate(2025, time.March, 15)
	expenses := []core.Expense{
		{Name: "feb", Month: month("2025-02"), Date: "2025-02-20"},
		{Name: "feb-late", Month: month("2025-02"), Date: "2025-02-28"},
		{Name: "mar-past", Month: month("2025-03"), Date: "2025-03-10"},
		{Name: "mar-today", Month: month("2025-03"), Date: "2025-03-15"},
		{Name: "mar-future", Month: month("2025-03"), Date: "2025-03-20"},
		{Name: "mar-undated", Month: month("2025-03")},
	}

	t.Run("other months ignore the flag", func(t *testing.T) {
		for _, m := range []core.Month{month("2025-02"), month("2025-04")} {
			with := ForMonth(expenses, Window{Month: m, UpToToday: true, Today: core.Today(clock)})
			without := ForMonth(expenses, Window{Month: m})
			if !reflect.DeepEqual(with, without) {
				t.Errorf("%s: filtered %v, unfiltered %v", m, with, without)
			}
		}
	})

	t.Run("current month filtered to today", func(t *testing.T) {
		got := ForMonth(expenses, RealizedWindow(clock, month("2025-03")))
		var names []string
		for _, e := range got {
			names = append(names, e.Name)
		}
		want := []string{"mar-past", "mar-today", "mar-undated"}
		if !reflect.DeepEqual(names, want) {
			t.Errorf("got %v, want %v", names, want)
		}
	})

	t.Run("realized window of a past month is unfiltered", func(t *testing.T) {
		w := RealizedWindow(clock, month("2025-02"))
		if w.UpToToday {
			t.Error("past month must not be date filtered")
		}
		if got := ForMonth(expenses, w); len(got) != 2 {
			t.Errorf("got %d records, want 2", len(got))
		}
	})
}

func TestSplitExpenses(t *testing.T) {
	expenses := []core.Expense{
		{Name: "rent", Amount: dec("800"), Status: core.StatusPaid, PaymentMethod: core.PaymentBankTransfer},
		{Name: "shoes", Amount: dec("120"), Status: core.StatusPaid, PaymentMethod: core.PaymentCreditCard, CardID: "visa"},
		{Name: "dinner", Amount: dec("80"), Status: core.StatusPlanned, PaymentMethod: core.PaymentCreditCard, CardID: "visa"},
		{Name: "card bill", Amount: dec("300"), Status: core.StatusPaid, Category: core.CategoryCreditCardSettlement, PaymentMethod: core.PaymentBankTransfer},
		{Name: "guess", Amount: dec("50"), Status: core.StatusPredicted},
		{Name: "no status", Amount: dec("10")},
	}
	s := SplitExpenses(expenses)

	assertDec(t, "paid", s.Paid, "1230")
	assertDec(t, "planned", s.Planned, "80")
	assertDec(t, "predicted", s.Predicted, "50")
	assertDec(t, "committed", s.Committed, "1010")
	assertDec(t, "cash impact", s.CashImpact, "1110")
	assertDec(t, "card incurred", s.CreditCardIncurred, "200")
	assertDec(t, "settlements", s.Settlements, "300")
	assertDec(t, "bank transfer", s.BankTransfer, "1110")
	assertDec(t, "credit card", s.CreditCard, "200")
	assertDec(t, "visa", s.ByCard["visa"], "200")
}

func TestSplitSavings_Currency(t *testing.T) {
	rates := currency.NewNormalizer(currency.Table{Base: "EUR", Rates: map[string]decimal.Decimal{"USD": dec("0.5")}})
	txs := []core.SavingsTransaction{
		{Action: core.ActionDeposit, Amount: dec("100"), Currency: "USD", IsCompleted: true},
		{Action: core.ActionDeposit, Amount: dec("40"), IsCompleted: false},
		{Action: core.ActionWithdrawal, Amount: dec("10"), Currency: "EUR", IsCompleted: true},
		{Action: core.ActionWithdrawal, Amount: dec("4"), IsCompleted: false},
	}
	s := SplitSavings(txs, rates)
	assertDec(t, "deposits", s.Deposits, "50")
	assertDec(t, "withdrawals", s.Withdrawals, "10")
	assertDec(t, "pending delta", s.PendingDelta(), "36")
}

func TestActiveIn_EndDateCutoff(t *testing.T) {
	tpl := core.RecurringTemplate{Name: "gym", Kind: core.KindPayment, IsActive: true, EndDate: "2025-06"}
	if !IsActiveIn(tpl, month("2025-06")) {
		t.Error("template must be active in its end month")
	}
	if IsActiveIn(tpl, month("2025-07")) {
		t.Error("template must be inactive after its end month")
	}

	tpl.EndDate = "2025-06-15"
	if !IsActiveIn(tpl, month("2025-06")) || IsActiveIn(tpl, month("2025-07")) {
		t.Error("day end date must cut off after its month")
	}

	tpl.EndDate = ""
	tpl.IsActive = false
	if IsActiveIn(tpl, month("2025-06")) {
		t.Error("inactive template must never be active")
	}
}

func TestForecastAndPending(t *testing.T) {
	rates := currency.NewNormalizer(currency.Table{Base: "EUR", Rates: map[string]decimal.Decimal{"USD": dec("0.5")}})
	templates := []core.RecurringTemplate{
		{Name: "Salary", Kind: core.KindIncome, Amount: dec("3000"), IsActive: true},
		{Name: "Netflix", Kind: core.KindPayment, Amount: dec("15"), IsActive: true, PaymentMethod: core.PaymentCreditCard},
		{Name: "Rent", Kind: core.KindPayment, Amount: dec("800"), IsActive: true, PaymentMethod: core.PaymentBankTransfer},
		{Name: "ETF plan", Kind: core.KindSavings, Action: core.ActionDeposit, Amount: dec("200"), Currency: "USD", IsActive: true, AccountName: "Broker"},
		{Name: "Old", Kind: core.KindIncome, Amount: dec("1"), IsActive: true, EndDate: "2024-12"},
	}

	f := Forecast(templates, month("2025-03"), rates)
	assertDec(t, "income", f.Income, "3000")
	assertDec(t, "payments", f.Payments, "815")
	assertDec(t, "bank payments", f.BankPayments, "800")
	assertDec(t, "card payments", f.CreditCardPayments, "15")
	assertDec(t, "deposits", f.SavingsDeposits, "100")
	assertDec(t, "net", f.Net(), "2185")

	recorded := RecordedSet{}
	recorded.Add(core.KindIncome, " salary ", "")
	recorded.Add(core.KindSavings, "BROKER", core.ActionDeposit)
	recorded.Add(core.KindIncome, "Rent", "")

	var names []string
	for _, tpl := range PendingTemplates(templates, month("2025-03"), recorded) {
		names = append(names, tpl.Name)
	}
	want := []string{"Netflix", "Rent"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("pending = %v, want %v", names, want)
	}
	if got := PendingTemplates(templates, month("2025-03"), nil); len(got) != 4 {
		t.Errorf("nil set: got %d pending, want 4", len(got))
	}
}

func scenarioLedger() Ledger {
	return Ledger{
		Accounts: []core.BankAccount{
			{Meta: meta("acc", at(1)), Name: "Main", Currency: "EUR", Balance: dec("1")},
		},
		History: []core.BankBalanceEntry{
			{Meta: meta("h1", at(1)), AccountID: "acc", Month: month("2025-01"), Balance: dec("9000")},
			{Meta: meta("h2", at(1)), AccountID: "acc", Month: month("2025-02"), Balance: dec("10000")},
		},
		Incomes: []core.Income{
			{Name: "Salary", Month: month("2025-03"), Date: "2025-03-05", Amount: dec("5000")},
			{Name: "Bonus", Month: month("2025-03"), Date: "2025-03-28", Amount: dec("700")},
		},
		Expenses: []core.Expense{
			{Name: "Rent", Month: month("2025-03"), Date: "2025-03-10", Amount: dec("2000"), Status: core.StatusPaid, PaymentMethod: core.PaymentBankTransfer},
			{Name: "Guess", Month: month("2025-03"), Amount: dec("400"), Status: core.StatusPredicted},
		},
		Savings: []core.SavingsTransaction{
			{Meta: meta("s1", at(1)), AccountName: "Broker", Month: month("2025-03"), Date: "2025-03-01",
				Action: core.ActionDeposit, Amount: dec("1000"), Balance: dec("1000"), IsCompleted: true},
		},
		Templates: []core.RecurringTemplate{
			{Name: "Salary", Kind: core.KindIncome, Amount: dec("3000"), IsActive: true},
			{Name: "Phone", Kind: core.KindPayment, Amount: dec("500"), IsActive: true, PaymentMethod: core.PaymentCreditCard},
		},
	}
}

func TestBalance_ConcreteScenario(t *testing.T) {
	p := NewProjector(nil, core.FixedDate(2025, time.March, 15))
	s := p.Balance(scenarioLedger(), month("2025-03"))

	assertDec(t, "recorded", s.Recorded, "10000")
	assertDec(t, "income", s.Realized.Income, "5000")
	assertDec(t, "cash impact", s.Realized.Expenses.CashImpact, "2000")
	assertDec(t, "deposits", s.Realized.Savings.Deposits, "1000")
	assertDec(t, "projected", s.Projected, "12000")
	assertDec(t, "predicted", s.Predicted, "14500")
	if s.NextMonth != month("2025-04") {
		t.Errorf("next month = %s", s.NextMonth)
	}
	if len(s.Accounts) != 1 || s.Accounts[0].FromMonth != month("2025-02") {
		t.Errorf("expected fallback to the February entry, got %+v", s.Accounts)
	}
}

func TestBalance_UnsettledCardPurchases(t *testing.T) {
	l := scenarioLedger()
	l.Expenses = append(l.Expenses,
		core.Expense{Name: "TV", Month: month("2025-03"), Date: "2025-03-02", Amount: dec("300"), Status: core.StatusPaid, PaymentMethod: core.PaymentCreditCard},
		core.Expense{Name: "Feb card bill", Month: month("2025-03"), Date: "2025-03-03", Amount: dec("100"), Status: core.StatusPaid, Category: core.CategoryCreditCardSettlement},
	)
	p := NewProjector(nil, core.FixedDate(2025, time.March, 15))
	s := p.Balance(l, month("2025-03"))

	assertDec(t, "projected", s.Projected, "11900")
	assertDec(t, "unsettled", s.UnsettledCreditCard, "300")
	assertDec(t, "predicted", s.Predicted, "14100")
}

func TestBalance_PastMonthUsesWholeMonth(t *testing.T) {
	p := NewProjector(nil, core.FixedDate(2025, time.April, 2))
	s := p.Balance(scenarioLedger(), month("2025-03"))
	assertDec(t, "income", s.Realized.Income, "5700")
	assertDec(t, "projected", s.Projected, "12700")
}

func TestRecordedBalance_Fallbacks(t *testing.T) {
	rates := currency.NewNormalizer(currency.Table{Base: "EUR", Rates: map[string]decimal.Decimal{"USD": dec("0.5")}})
	p := NewProjector(rates, core.FixedDate(2025, time.March, 15))
	accounts := []core.BankAccount{
		{Meta: meta("eur", at(1)), Name: "EUR", Currency: "EUR", Balance: dec("50")},
		{Meta: meta("usd", at(1)), Name: "USD", Currency: "USD", Balance: dec("100")},
	}
	history := []core.BankBalanceEntry{
		{Meta: meta("h", at(1)), AccountID: "eur", Month: month("2025-04"), Balance: dec("999")},
	}

	assertDec(t, "no history yet", p.RecordedBalance(accounts, history, month("2025-03")), "100")
	assertDec(t, "history entry", p.RecordedBalance(accounts, history, month("2025-05")), "1049")
	assertDec(t, "no accounts", p.RecordedBalance(nil, nil, month("2025-03")), "0")
}

func TestBudget_DailyLimitGuard(t *testing.T) {
	l := Ledger{
		Budgets: []core.Budget{{Meta: meta("b", at(1)), Month: month("2025-04"), Amount: dec("600"), DaysInMonth: 30}},
		Expenses: []core.Expense{
			{Name: "groceries", Month: month("2025-04"), Amount: dec("150"), Status: core.StatusPaid, PaymentMethod: core.PaymentCreditCard},
			{Name: "trip", Month: month("2025-04"), Amount: dec("50"), Status: core.StatusPlanned},
		},
	}
	p := NewProjector(nil, core.FixedDate(2025, time.April, 30))
	st := p.Budget(l, month("2025-04"))

	if st.DaysRemaining != 1 {
		t.Errorf("days remaining = %d, want 1", st.DaysRemaining)
	}
	assertDec(t, "left", st.Left, "400")
	assertDec(t, "daily limit", st.DailyLimit, "400")

	mid := NewProjector(nil, core.FixedDate(2025, time.April, 10)).Budget(l, month("2025-04"))
	if mid.DaysRemaining != 20 {
		t.Errorf("mid-month days remaining = %d, want 20", mid.DaysRemaining)
	}
	assertDec(t, "mid daily limit", mid.DailyLimit, "20")
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2025, time.March, 31, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		month core.Month
		days  int
		want  int
	}{
		{"last day", month("2025-03"), 31, 1},
		{"explicit shorter month", month("2025-03"), 28, 1},
		{"past month", month("2025-02"), 28, 1},
		{"future month", month("2025-04"), 30, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysRemaining(now, tt.month, tt.days); got != tt.want {
				t.Errorf("DaysRemaining = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSavings_DerivedBalanceCountsOnce(t *testing.T) {
	txs := []core.SavingsTransaction{
		{Meta: meta("1", at(1)), AccountName: "Broker", Month: month("2025-02"), Action: core.ActionDeposit, Amount: dec("100"), Balance: dec("100"), IsCompleted: true},
		{Meta: meta("2", at(2)), AccountName: "Broker", Month: month("2025-03"), Action: core.ActionWithdrawal, Amount: dec("50"), Balance: dec("50"), IsCompleted: true},
		{Meta: meta("3", at(3)), AccountName: "broker", Month: month("2025-03"), Action: core.ActionDeposit, Amount: dec("30"), Balance: dec("50"), IsCompleted: false},
	}
	p := NewProjector(nil, core.FixedDate(2025, time.March, 15))

	got := p.DerivedSavings(txs, month("2025-03"))
	if len(got) != 1 {
		t.Fatalf("got %d accounts, want 1", len(got))
	}
	assertDec(t, "balance", got[0].Balance, "50")
	assertDec(t, "pending", got[0].Pending, "30")
	assertDec(t, "predicted", got[0].Predicted, "80")

	txs[2].IsCompleted = true
	got = p.DerivedSavings(txs, month("2025-03"))
	assertDec(t, "balance after completion", got[0].Balance, "80")
	assertDec(t, "pending after completion", got[0].Pending, "0")
	assertDec(t, "predicted after completion", got[0].Predicted, "80")

	pf := p.SavingsPortfolio(txs, month("2025-03"))
	assertDec(t, "portfolio total", pf.Total, "50")
}

func TestNetWorth_TransfersAreNeutral(t *testing.T) {
	p := NewProjector(nil, core.FixedDate(2025, time.March, 15))
	base := scenarioLedger()

	withTransfer := scenarioLedger()
	withTransfer.Templates = append(withTransfer.Templates, core.RecurringTemplate{
		Name: "ETF", Kind: core.KindSavings, Action: core.ActionDeposit, Amount: dec("400"), IsActive: true, AccountName: "Broker",
	})

	a := p.NetWorth(base, month("2025-03"), 4)
	b := p.NetWorth(withTransfer, month("2025-03"), 4)
	if len(a) != 4 || len(b) != 4 {
		t.Fatalf("lengths %d and %d, want 4", len(a), len(b))
	}
	for i := range a {
		if !a[i].NetWorth.Equal(b[i].NetWorth) {
			t.Errorf("%s: net worth %s vs %s", a[i].Month, a[i].NetWorth, b[i].NetWorth)
		}
	}
	assertDec(t, "start", a[0].NetWorth, "13000")
	assertDec(t, "step", a[1].NetWorth, "15500")
	assertDec(t, "bank with transfer", b[1].Bank, "14100")
	assertDec(t, "savings with transfer", b[1].Savings, "1400")
	if b[3].Month != month("2025-06") {
		t.Errorf("last month = %s", b[3].Month)
	}
}

func TestGoalScenario_AggregateDeduction(t *testing.T) {
	series := []NetWorthPoint{
		{Month: month("2025-03"), NetWorth: dec("1000")},
		{Month: month("2025-04"), NetWorth: dec("1000")},
	}
	items := []core.GoalItem{
		{Meta: meta("i1", at(1)), GoalID: "g", Name: "Bike", EstimatedCost: dec("600"), PlannedMonth: month("2025-03")},
		{Meta: meta("i2", at(1)), GoalID: "g", Name: "Laptop", EstimatedCost: dec("700"), PlannedMonth: month("2025-03")},
		{Meta: meta("i3", at(1)), GoalID: "g", Name: "Helmet", EstimatedCost: dec("50"), PlannedMonth: month("2025-04")},
		{Meta: meta("i4", at(1)), GoalID: "g", Name: "Bought", EstimatedCost: dec("9"), PlannedMonth: month("2025-04"), IsPurchased: true},
	}

	got := GoalScenario(series, items, month("2025-03"))
	if len(got) != 2 {
		t.Fatalf("got %d months, want 2", len(got))
	}
	first := got[0]
	if len(first.Items) != 2 || !first.Items[0].Affordable || !first.Items[1].Affordable {
		t.Errorf("both items must be individually affordable: %+v", first.Items)
	}
	assertDec(t, "first end", first.EndBalance, "-300")
	if !first.Negative {
		t.Error("first month must be flagged negative")
	}

	second := got[1]
	assertDec(t, "second start", second.WithGoals, "-300")
	if len(second.Items) != 1 || second.Items[0].Affordable {
		t.Errorf("helmet must not be affordable: %+v", second.Items)
	}
}

func TestGoalScenario_Edges(t *testing.T) {
	cur := month("2025-03")

	t.Run("no pending items", func(t *testing.T) {
		items := []core.GoalItem{{Name: "done", PlannedMonth: cur, IsPurchased: true}}
		if got := GoalScenario(nil, items, cur); len(got) != 0 {
			t.Errorf("expected empty timeline, got %v", got)
		}
	})

	t.Run("overdue items land in current month", func(t *testing.T) {
		items := []core.GoalItem{{Name: "late", EstimatedCost: dec("10"), PlannedMonth: month("2024-11")}}
		got := GoalScenario([]NetWorthPoint{{Month: cur, NetWorth: dec("5")}}, items, cur)
		if len(got) != 1 || len(got[0].Items) != 1 || !got[0].Items[0].Overdue {
			t.Fatalf("unexpected timeline %+v", got)
		}
		if got[0].Items[0].Affordable {
			t.Error("10 is not affordable from 5")
		}
	})

	t.Run("horizon capped", func(t *testing.T) {
		items := []core.GoalItem{{Name: "house", EstimatedCost: dec("1"), PlannedMonth: month("2031-01")}}
		if h := GoalHorizon(items, cur); h != MaxGoalHorizon {
			t.Errorf("horizon = %d, want %d", h, MaxGoalHorizon)
		}
		got := GoalScenario(nil, items, cur)
		if len(got) != MaxGoalHorizon {
			t.Fatalf("got %d months", len(got))
		}
		for _, gm := range got {
			if len(gm.Items) != 0 {
				t.Errorf("%s: item beyond horizon included", gm.Month)
			}
		}
	})
}

func TestProjectorGoals_Deterministic(t *testing.T) {
	p := NewProjector(nil, core.FixedDate(2025, time.March, 15))
	l := scenarioLedger()
	l.GoalItems = []core.GoalItem{
		{Meta: meta("i1", at(1)), GoalID: "g", Name: "Sofa", EstimatedCost: dec("14000"), PlannedMonth: month("2025-04")},
	}

	a := p.Goals(l, month("2025-03"))
	b := p.Goals(l, month("2025-03"))
	if !reflect.DeepEqual(a, b) {
		t.Fatal("repeated calls differ")
	}
	if len(a) != 2 {
		t.Fatalf("got %d months, want 2", len(a))
	}
	assertDec(t, "april without goals", a[1].WithoutGoals, "15500")
	if !a[1].Items[0].Affordable {
		t.Error("sofa should be affordable in April")
	}
}
