package processors

import (
	"sort"
	"time"

	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/utils"
)

type viewProcessor struct{}

func NewViewProcessor() ViewProcessor {
	return &viewProcessor{}
}

// RangeStart maps a range label to the first day of the past window. Unknown
// labels fall back to two weeks.
func (p *viewProcessor) RangeStart(label string, today time.Time) time.Time {
	switch label {
	case models.RangeLast3Months:
		return utils.AddMonthsClamped(today, -3)
	case models.RangeLast6Months:
		return utils.AddMonthsClamped(today, -6)
	case models.RangeLast12Months:
		return utils.AddMonthsClamped(today, -12)
	default:
		return utils.AddDays(today, -14)
	}
}

// FilterByFrequency keeps rows whose frequency equals frequency. ALL or empty keeps everything.
func (p *viewProcessor) FilterByFrequency(transactions []models.Transaction, frequency models.Frequency) []models.Transaction {
	if frequency == "" || frequency == models.FrequencyAll {
		return transactions
	}
	filtered := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Frequency == frequency {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// SortByDateDesc orders by date descending, newest id first within a day.
func (p *viewProcessor) SortByDateDesc(transactions []models.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		if transactions[i].Date != transactions[j].Date {
			return transactions[i].Date > transactions[j].Date
		}
		return transactions[i].ID > transactions[j].ID
	})
}
