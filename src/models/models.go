package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type ViewMode string

const (
	ViewPastRange ViewMode = "PAST_RANGE"
	ViewFuture    ViewMode = "FUTURE"
)

// ParseViewMode accepts "past"/"past_range" and "future"; empty means PAST_RANGE.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "PAST", string(ViewPastRange):
		return ViewPastRange, nil
	case string(ViewFuture):
		return ViewFuture, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Range labels understood by the past-range view.
const (
	RangeLast2Weeks   = "Last 2 Weeks"
	RangeLast3Months  = "Last 3 Months"
	RangeLast6Months  = "Last 6 Months"
	RangeLast12Months = "Last 12 Months"
)

var RangeLabels = []string{RangeLast2Weeks, RangeLast3Months, RangeLast6Months, RangeLast12Months}

// ViewParams selects which transactions a view shows.
type ViewParams struct {
	Mode       ViewMode  `json:"mode"`
	RangeLabel string    `json:"range"`
	Frequency  Frequency `json:"frequency"` // FrequencyAll or "" disables the filter
}

func (p ViewParams) CacheKey(today string) string {
	return fmt.Sprintf("view_%s_%s_%s_%s", p.Mode, p.RangeLabel, p.Frequency, today)
}

// View is an assembled, sorted transaction list with its aggregates.
type View struct {
	Params        ViewParams      `json:"params"`
	Today         string          `json:"today"`
	Start         string          `json:"start,omitempty"`
	Transactions  []Transaction   `json:"transactions"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Balance       decimal.Decimal `json:"balance"`
}

// Summary holds the three view aggregates.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Balance       decimal.Decimal `json:"balance"`
}

// TemplateError records why one recurring template could not be projected.
type TemplateError struct {
	TemplateID int64     `json:"templateId"`
	Title      string    `json:"title"`
	Frequency  Frequency `json:"frequency"`
	Message    string    `json:"message"`
}

// ProjectionReport summarises one projector pass.
type ProjectionReport struct {
	Today      string          `json:"today"`
	Horizon    string          `json:"horizon"`
	Templates  int             `json:"templates"`
	Inserted   []Transaction   `json:"inserted"`
	Skipped    int             `json:"skipped"`
	Errors     []TemplateError `json:"errors,omitempty"`
	Truncated  int             `json:"truncated,omitempty"` // templates that hit the iteration cap
	DurationMS int64           `json:"durationMs"`
}
