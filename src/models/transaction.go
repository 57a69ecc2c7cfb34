package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date format used for every stored date.
const DateLayout = "2006-01-02"

type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Frequency is the recurrence cadence of a transaction. ALL is only meaningful
// as a view filter and never stored.
type Frequency string

const (
	FrequencyAll      Frequency = "ALL"
	FrequencyOnce     Frequency = "ONCE"
	FrequencyDaily    Frequency = "DAILY"
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
)

var storableFrequencies = []Frequency{FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly}

// ParseFrequency accepts any storable frequency, case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range storableFrequencies {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// ParseFrequencyFilter is ParseFrequency plus ALL; an empty string means ALL.
func ParseFrequencyFilter(s string) (Frequency, error) {
	if strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), string(FrequencyAll)) {
		return FrequencyAll, nil
	}
	return ParseFrequency(s)
}

// IsRecurring reports whether rows of this frequency act as projection templates.
func (f Frequency) IsRecurring() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// DisplayName renders "BIWEEKLY" as "Biweekly".
func (f Frequency) DisplayName() string {
	s := strings.ToLower(string(f))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Transaction is a single dated money movement. Recurring rows (frequency other
// than ONCE) are templates for projected occurrences; projected rows carry
// IsGenerated and, once removed by the user, IsDeletedByUser as a tombstone.
type Transaction struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Amount          decimal.Decimal `json:"amount"`
	Type            TransactionType `json:"type"`
	Frequency       Frequency       `json:"frequency"`
	Date            string          `json:"date"` // YYYY-MM-DD
	IsGenerated     bool            `json:"isGenerated"`
	IsDeletedByUser bool            `json:"isDeletedByUser"`
	NextDueDate     *string         `json:"nextDueDate,omitempty"` // informational only
}

// Clone returns a deep copy.
func (t Transaction) Clone() Transaction {
	c := t
	if t.NextDueDate != nil {
		next := *t.NextDueDate
		c.NextDueDate = &next
	}
	return c
}

// SignedAmount is +amount for income and -amount for expenses.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// FamilyKey identifies the recurring family a row belongs to.
func (t Transaction) FamilyKey() string {
	return string(t.Frequency) + "|" + t.Title
}
