package processors

import (
	"errors"
	"fmt"
	"time"

	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/utils"
)

// MaxIterations bounds the number of candidates produced for one template in a single pass.
const MaxIterations = 1000

var ErrUnsupportedFrequency = errors.New("frequency has no recurrence increment")

type recurrenceProcessor struct {
	maxIterations int
}

func NewRecurrenceProcessor() RecurrenceProcessor {
	return &recurrenceProcessor{maxIterations: MaxIterations}
}

// Increment advances a date by one period of frequency. MONTHLY clamps to the
// last day of a shorter target month.
func (p *recurrenceProcessor) Increment(date time.Time, frequency models.Frequency) (time.Time, error) {
	switch frequency {
	case models.FrequencyDaily:
		return utils.AddDays(date, 1), nil
	case models.FrequencyWeekly:
		return utils.AddDays(date, 7), nil
	case models.FrequencyBiweekly:
		return utils.AddDays(date, 14), nil
	case models.FrequencyMonthly:
		return utils.AddMonthsClamped(date, 1), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, frequency)
}

// Candidates lists increment(anchor), increment(increment(anchor)), ... up to
// and including limit, stopping after maxIterations. Each step increments the
// previous candidate, so a monthly series that was clamped keeps the clamped day.
// truncated reports that the cap stopped the series before limit.
func (p *recurrenceProcessor) Candidates(anchor time.Time, frequency models.Frequency, limit time.Time) ([]time.Time, bool, error) {
	candidate, err := p.Increment(anchor, frequency)
	if err != nil {
		return nil, false, err
	}

	var dates []time.Time
	for i := 0; i < p.maxIterations; i++ {
		if candidate.After(limit) {
			return dates, false, nil
		}
		dates = append(dates, candidate)
		if candidate, err = p.Increment(candidate, frequency); err != nil {
			return dates, false, err
		}
	}
	return dates, !candidate.After(limit), nil
}
