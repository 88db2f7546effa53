package core

import "time"

type (
	// Record is any stored fact. Implemented by pointers to the record
	// structs so stores can stamp ids and timestamps.
	Record interface {
		Entity() Entity
		Base() *Meta
		RecordMonth() Month
		Validate() error
	}

	// Stamped is what the latest-state resolver needs from a record.
	Stamped interface {
		RecordID() string
		Stamp() time.Time
		RecordMonth() Month
	}

	// Dated records belong to a month and optionally carry a day.
	Dated interface {
		RecordMonth() Month
		RecordDate() string
	}

	// Closable records can mark their account closed.
	Closable interface {
		ClosedTime() *time.Time
	}
)

// NewRecord returns an empty record for entity, or nil when unknown.
func NewRecord(e Entity) Record {
	switch e {
	case EntityExpense:
		return &Expense{}
	case EntityIncome:
		return &Income{}
	case EntitySavings:
		return &SavingsTransaction{}
	case EntityTemplate:
		return &RecurringTemplate{}
	case EntityBudget:
		return &Budget{}
	case EntityGoal:
		return &Goal{}
	case EntityGoalItem:
		return &GoalItem{}
	case EntityBankAccount:
		return &BankAccount{}
	case EntityBalanceEntry:
		return &BankBalanceEntry{}
	}
	return nil
}
