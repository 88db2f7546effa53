package engine

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

// IsActiveIn reports whether t applies to month. EndDate is inclusive and
// may be a month or a day; both compare lexically against the month key.
func IsActiveIn(t core.RecurringTemplate, month core.Month) bool {
	return t.IsActive && (t.EndDate == "" || t.EndDate >= string(month))
}

// ActiveIn keeps the templates active in month, preserving input order.
func ActiveIn(templates []core.RecurringTemplate, month core.Month) []core.RecurringTemplate {
	out := make([]core.RecurringTemplate, 0, len(templates))
	for _, t := range templates {
		if IsActiveIn(t, month) {
			out = append(out, t)
		}
	}
	return out
}

// ContributionTotal sums the base-currency amount of the templates active in
// month that match pred.
func ContributionTotal(templates []core.RecurringTemplate, month core.Month, pred func(core.RecurringTemplate) bool, rates *currency.Normalizer) decimal.Decimal {
	return SumBy(ActiveIn(templates, month), pred, func(t core.RecurringTemplate) decimal.Decimal {
		return rates.ToBase(t.Amount, t.Currency)
	})
}

// RecurringForecast is what the active templates contribute to one month.
type RecurringForecast struct {
	Month              core.Month      `json:"month"`
	Income             decimal.Decimal `json:"income"`
	Payments           decimal.Decimal `json:"payments"`
	BankPayments       decimal.Decimal `json:"bank_payments"`
	CreditCardPayments decimal.Decimal `json:"credit_card_payments"`
	SavingsDeposits    decimal.Decimal `json:"savings_deposits"`
	SavingsWithdrawals decimal.Decimal `json:"savings_withdrawals"`
}

// Net is recurring income minus recurring payments. Savings transfers stay
// inside the tracked pools and do not count.
func (f RecurringForecast) Net() decimal.Decimal {
	return f.Income.Sub(f.Payments)
}

func kindIs(k core.TemplateKind) func(core.RecurringTemplate) bool {
	return func(t core.RecurringTemplate) bool { return t.Kind == k }
}

func savingsIs(a core.SavingsAction) func(core.RecurringTemplate) bool {
	return func(t core.RecurringTemplate) bool { return t.Kind == core.KindSavings && t.Action == a }
}

func paymentVia(card bool) func(core.RecurringTemplate) bool {
	return func(t core.RecurringTemplate) bool {
		return t.Kind == core.KindPayment && (t.PaymentMethod == core.PaymentCreditCard) == card
	}
}

// Forecast splits the contributions of the templates active in month.
func Forecast(templates []core.RecurringTemplate, month core.Month, rates *currency.Normalizer) RecurringForecast {
	active := ActiveIn(templates, month)
	total := func(pred func(core.RecurringTemplate) bool) decimal.Decimal {
		return ContributionTotal(active, month, pred, rates)
	}
	return RecurringForecast{
		Month:              month,
		Income:             total(kindIs(core.KindIncome)),
		Payments:           total(kindIs(core.KindPayment)),
		BankPayments:       total(paymentVia(false)),
		CreditCardPayments: total(paymentVia(true)),
		SavingsDeposits:    total(savingsIs(core.ActionDeposit)),
		SavingsWithdrawals: total(savingsIs(core.ActionWithdrawal)),
	}
}

// RecordedSet holds the templates already materialized for a month, keyed
// by kind, case-folded name and savings action. The caller builds it; the
// engine only reads it.
type RecordedSet map[string]struct{}

func recordedKey(kind core.TemplateKind, name string, action core.SavingsAction) string {
	if kind != core.KindSavings {
		action = ""
	}
	return string(kind) + "|" + NameKey(name) + "|" + string(action)
}

// Add marks a concrete record as present.
func (s RecordedSet) Add(kind core.TemplateKind, name string, action core.SavingsAction) {
	s[recordedKey(kind, name, action)] = struct{}{}
}

// Has reports whether t already has a record.
func (s RecordedSet) Has(t core.RecurringTemplate) bool {
	_, ok := s[recordedKey(t.Kind, TemplateRecordName(t), t.Action)]
	return ok
}

// TemplateRecordName is the name a materialized record carries. Savings
// records are named after their account.
func TemplateRecordName(t core.RecurringTemplate) string {
	if t.Kind == core.KindSavings && t.AccountName != "" {
		return t.AccountName
	}
	return t.Name
}

// PendingTemplates are the templates active in month with no record yet. A
// nil set means nothing is recorded.
func PendingTemplates(templates []core.RecurringTemplate, month core.Month, recorded RecordedSet) []core.RecurringTemplate {
	out := make([]core.RecurringTemplate, 0)
	for _, t := range ActiveIn(templates, month) {
		if !recorded.Has(t) {
			out = append(out, t)
		}
	}
	return out
}
