package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entity names a record table. The values double as store keys and URL
// segments.
type Entity string

const (
	EntityExpense      Entity = "expenses"
	EntityIncome       Entity = "incomes"
	EntitySavings      Entity = "savings_transactions"
	EntityTemplate     Entity = "recurring_templates"
	EntityBudget       Entity = "budgets"
	EntityGoal         Entity = "goals"
	EntityGoalItem     Entity = "goal_items"
	EntityBankAccount  Entity = "bank_accounts"
	EntityBalanceEntry Entity = "bank_balance_history"
)

// Entities lists every entity in a fixed order.
func Entities() []Entity {
	return []Entity{
		EntityExpense, EntityIncome, EntitySavings, EntityTemplate, EntityBudget,
		EntityGoal, EntityGoalItem, EntityBankAccount, EntityBalanceEntry,
	}
}

// ParseEntity validates an entity name from the outside world.
func ParseEntity(s string) (Entity, error) {
	for _, e := range Entities() {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntity, s)
}

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"

	StatusPaid      ExpenseStatus = "paid"
	StatusPlanned   ExpenseStatus = "planned"
	StatusPredicted ExpenseStatus = "predicted"

	ActionDeposit    SavingsAction = "deposit"
	ActionWithdrawal SavingsAction = "withdrawal"

	KindIncome  TemplateKind = "income"
	KindPayment TemplateKind = "payment"
	KindSavings TemplateKind = "savings"

	// CategoryCreditCardSettlement tags the bank debit that settles a
	// previous month's card purchases.
	CategoryCreditCardSettlement = "debit_from_credit_card"
)

type (
	PaymentMethod string
	ExpenseStatus string
	SavingsAction string
	TemplateKind  string

	// Meta is the bookkeeping every stored record carries.
	Meta struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	BankAccount struct {
		Meta
		Name     string          `json:"name"`
		Currency string          `json:"currency"`
		Balance  decimal.Decimal `json:"balance"` // last known balance
		ClosedAt *time.Time      `json:"closed_at,omitempty"`
	}

	BankBalanceEntry struct {
		Meta
		AccountID string          `json:"account_id"`
		Month     Month           `json:"month"`
		Balance   decimal.Decimal `json:"balance"`
	}

	SavingsTransaction struct {
		Meta
		AccountName string          `json:"name"`
		Month       Month           `json:"month"`
		Date        string          `json:"date,omitempty"`
		Action      SavingsAction   `json:"action"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		Balance     decimal.Decimal `json:"balance"` // running balance after this record
		IsCompleted bool            `json:"is_completed"`
		ClosedAt    *time.Time      `json:"closed_at,omitempty"`
		Note        string          `json:"note,omitempty"`
	}

	Expense struct {
		Meta
		Month         Month           `json:"month"`
		Date          string          `json:"date,omitempty"`
		Name          string          `json:"name"`
		Amount        decimal.Decimal `json:"amount"`
		Category      string          `json:"category"`
		Status        ExpenseStatus   `json:"status"`
		PaymentMethod PaymentMethod   `json:"payment_method"`
		CardID        string          `json:"card_id,omitempty"`
	}

	Income struct {
		Meta
		Month  Month           `json:"month"`
		Date   string          `json:"date,omitempty"`
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
		Source string          `json:"source,omitempty"`
	}

	RecurringTemplate struct {
		Meta
		Name          string          `json:"name"`
		Kind          TemplateKind    `json:"kind"`
		Amount        decimal.Decimal `json:"amount"`
		Currency      string          `json:"currency,omitempty"`
		DayOfMonth    int             `json:"day_of_month"`
		IsActive      bool            `json:"is_active"`
		EndDate       string          `json:"end_date,omitempty"` // inclusive; YYYY-MM or YYYY-MM-DD
		Action        SavingsAction   `json:"action,omitempty"`
		PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
		CardID        string          `json:"card_id,omitempty"`
		Category      string          `json:"category,omitempty"`
		AccountName   string          `json:"account_name,omitempty"`
	}

	Budget struct {
		Meta
		Month       Month           `json:"month"`
		Amount      decimal.Decimal `json:"amount"`
		DaysInMonth int             `json:"days_in_month,omitempty"`
		Notes       string          `json:"notes,omitempty"`
	}

	Goal struct {
		Meta
		Name     string `json:"name"`
		Priority int    `json:"priority"`
		Category string `json:"category,omitempty"`
	}

	GoalItem struct {
		Meta
		GoalID        string          `json:"goal_id"`
		Name          string          `json:"name"`
		EstimatedCost decimal.Decimal `json:"estimated_cost"`
		PlannedMonth  Month           `json:"planned_month"`
		PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
		IsPurchased   bool            `json:"is_purchased"`
		PurchasedAt   *time.Time      `json:"purchased_at,omitempty"`
	}
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidAction    = errors.New("invalid savings action")
	ErrInvalidKind      = errors.New("invalid template kind")
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrInvalidStatus    = errors.New("invalid expense status")
	ErrInvalidPayment   = errors.New("invalid payment method")
	ErrMissingReference = errors.New("missing reference")
	ErrUnknownEntity    = errors.New("unknown entity")
)

// IsValidation reports whether err came from record or key validation.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidMonth, ErrInvalidDate, ErrInvalidAmount, ErrEmptyName,
		ErrInvalidAction, ErrInvalidKind, ErrInvalidDay, ErrInvalidStatus,
		ErrInvalidPayment, ErrMissingReference, ErrUnknownEntity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (m *Meta) Base() *Meta     { return m }
func (m Meta) RecordID() string { return m.ID }
func (m Meta) Stamp() time.Time { return m.UpdatedAt }

func (BankAccount) Entity() Entity        { return EntityBankAccount }
func (BankBalanceEntry) Entity() Entity   { return EntityBalanceEntry }
func (SavingsTransaction) Entity() Entity { return EntitySavings }
func (Expense) Entity() Entity            { return EntityExpense }
func (Income) Entity() Entity             { return EntityIncome }
func (RecurringTemplate) Entity() Entity  { return EntityTemplate }
func (Budget) Entity() Entity             { return EntityBudget }
func (Goal) Entity() Entity               { return EntityGoal }
func (GoalItem) Entity() Entity           { return EntityGoalItem }

// Accounts have no month; they are visible from the beginning of time.
func (BankAccount) RecordMonth() Month          { return "" }
func (e BankBalanceEntry) RecordMonth() Month   { return e.Month }
func (s SavingsTransaction) RecordMonth() Month { return s.Month }
func (e Expense) RecordMonth() Month            { return e.Month }
func (i Income) RecordMonth() Month             { return i.Month }
func (RecurringTemplate) RecordMonth() Month    { return "" }
func (b Budget) RecordMonth() Month             { return b.Month }
func (Goal) RecordMonth() Month                 { return "" }
func (g GoalItem) RecordMonth() Month           { return g.PlannedMonth }

func (s SavingsTransaction) RecordDate() string { return s.Date }
func (e Expense) RecordDate() string            { return e.Date }
func (i Income) RecordDate() string             { return i.Date }

func (a BankAccount) ClosedTime() *time.Time        { return a.ClosedAt }
func (s SavingsTransaction) ClosedTime() *time.Time { return s.ClosedAt }

// SignedAmount is the delta a savings record applies to its account.
func (s SavingsTransaction) SignedAmount() decimal.Decimal {
	if s.Action == ActionWithdrawal {
		return s.Amount.Neg()
	}
	return s.Amount
}

func validateMonthAndDate(m Month, date string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if date == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if Month(date[:7]) != m {
		return fmt.Errorf("%w: %s is outside %s", ErrInvalidDate, date, m)
	}
	return nil
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (a BankAccount) Validate() error {
	return requireName(a.Name)
}

func (e BankBalanceEntry) Validate() error {
	if strings.TrimSpace(e.AccountID) == "" {
		return fmt.Errorf("%w: account_id", ErrMissingReference)
	}
	return e.Month.Validate()
}

func (s SavingsTransaction) Validate() error {
	if err := requireName(s.AccountName); err != nil {
		return err
	}
	if err := validateMonthAndDate(s.Month, s.Date); err != nil {
		return err
	}
	switch s.Action {
	case ActionDeposit, ActionWithdrawal:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, s.Action)
	}
	if s.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := requireName(e.Name); err != nil {
		return err
	}
	if err := validateMonthAndDate(e.Month, e.Date); err != nil {
		return err
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	switch e.Status {
	case "", StatusPaid, StatusPlanned, StatusPredicted:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	return validatePayment(e.PaymentMethod)
}

func (i Income) Validate() error {
	if err := requireName(i.Name); err != nil {
		return err
	}
	if err := validateMonthAndDate(i.Month, i.Date); err != nil {
		return err
	}
	if i.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (t RecurringTemplate) Validate() error {
	if err := requireName(t.Name); err != nil {
		return err
	}
	switch t.Kind {
	case KindIncome, KindPayment:
	case KindSavings:
		switch t.Action {
		case ActionDeposit, ActionWithdrawal:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidAction, t.Action)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if t.DayOfMonth < 1 || t.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	if t.EndDate != "" {
		if _, err := MonthOfDate(t.EndDate); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return validatePayment(t.PaymentMethod)
}

func (b Budget) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if b.DaysInMonth < 0 || b.DaysInMonth > 31 {
		return ErrInvalidDay
	}
	return nil
}

func (g Goal) Validate() error {
	return requireName(g.Name)
}

func (g GoalItem) Validate() error {
	if err := requireName(g.Name); err != nil {
		return err
	}
	if strings.TrimSpace(g.GoalID) == "" {
		return fmt.Errorf("%w: goal_id", ErrMissingReference)
	}
	if err := g.PlannedMonth.Validate(); err != nil {
		return err
	}
	if g.EstimatedCost.IsNegative() {
		return ErrInvalidAmount
	}
	return validatePayment(g.PaymentMethod)
}

func validatePayment(p PaymentMethod) error {
	switch p {
	case "", PaymentBankTransfer, PaymentCreditCard:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPayment, p)
}
