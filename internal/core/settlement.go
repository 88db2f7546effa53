package core

// SettlementKind says when an expense leaves the bank account.
type SettlementKind int

const (
	// SettleImmediate expenses hit the bank in the month they are recorded.
	SettleImmediate SettlementKind = iota
	// SettleCreditCardPending expenses are card purchases that the bank pays
	// in SettlesIn.
	SettleCreditCardPending
)

// Settlement is the cash timing of an expense.
type Settlement struct {
	Kind      SettlementKind
	SettlesIn Month
}

// IsCreditCardSettlement reports whether the expense is itself the bank
// debit paying off card purchases.
func (e Expense) IsCreditCardSettlement() bool {
	return e.Category == CategoryCreditCardSettlement
}

// Settlement derives the cash timing. A card purchase settles the month
// after it is incurred; everything else, settlement rows included, is
// immediate.
func (e Expense) Settlement() Settlement {
	if e.PaymentMethod == PaymentCreditCard && !e.IsCreditCardSettlement() {
		return Settlement{Kind: SettleCreditCardPending, SettlesIn: e.Month.Next()}
	}
	return Settlement{Kind: SettleImmediate, SettlesIn: e.Month}
}
