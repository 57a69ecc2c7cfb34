package processors

import (
	"time"

	"github.com/username/cashflow/src/models"
)

// RecurrenceProcessor computes the occurrence dates of a recurring transaction.
type RecurrenceProcessor interface {
	Increment(date time.Time, frequency models.Frequency) (time.Time, error)
	Candidates(anchor time.Time, frequency models.Frequency, limit time.Time) (dates []time.Time, truncated bool, err error)
}

// SummaryProcessor computes the income, expense and balance aggregates of a view.
type SummaryProcessor interface {
	Summarize(transactions []models.Transaction, today time.Time) models.Summary
}

// ViewProcessor resolves range labels and filters/sorts a view's rows.
type ViewProcessor interface {
	RangeStart(label string, today time.Time) time.Time
	FilterByFrequency(transactions []models.Transaction, frequency models.Frequency) []models.Transaction
	SortByDateDesc(transactions []models.Transaction)
}
