package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/utils"
)

type summaryProcessor struct{}

func NewSummaryProcessor() SummaryProcessor {
	return &summaryProcessor{}
}

// Summarize totals income and expenses over every row, while the balance only
// counts rows dated today or earlier.
func (p *summaryProcessor) Summarize(transactions []models.Transaction, today time.Time) models.Summary {
	todayStr := utils.FormatDate(today)
	s := models.Summary{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Balance:       decimal.Zero,
	}
	for _, tx := range transactions {
		switch tx.Type {
		case models.Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case models.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
		}
		// ISO dates compare correctly as strings.
		if tx.Date <= todayStr {
			s.Balance = s.Balance.Add(tx.SignedAmount())
		}
	}
	return s
}
