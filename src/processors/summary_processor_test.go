package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/username/cashflow/src/models"
)

func tx(title string, amount string, typ models.TransactionType, d string) models.Transaction {
	return models.Transaction{
		Title:     title,
		Amount:    decimal.RequireFromString(amount),
		Type:      typ,
		Frequency: models.FrequencyOnce,
		Date:      d,
	}
}

func TestSummarize(t *testing.T) {
	p := NewSummaryProcessor()
	today := date(t, "2024-05-10")
	rows := []models.Transaction{
		tx("Salary", "100", models.Income, "2024-05-09"),
		tx("Groceries", "30", models.Expense, "2024-05-10"),
		tx("Rent", "50", models.Expense, "2024-05-11"),
	}

	s := p.Summarize(rows, today)
	if !s.TotalIncome.Equal(decimal.NewFromInt(100)) {
		t.Errorf("TotalIncome = %s", s.TotalIncome)
	}
	if !s.TotalExpenses.Equal(decimal.NewFromInt(80)) {
		t.Errorf("TotalExpenses = %s", s.TotalExpenses)
	}
	if !s.Balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Balance = %s, want 70", s.Balance)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := NewSummaryProcessor().Summarize(nil, date(t, "2024-05-10"))
	if !s.TotalIncome.IsZero() || !s.TotalExpenses.IsZero() || !s.Balance.IsZero() {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestSummarizeKeepsDecimalPrecision(t *testing.T) {
	rows := []models.Transaction{
		tx("a", "0.1", models.Income, "2024-01-01"),
		tx("b", "0.2", models.Income, "2024-01-01"),
	}
	s := NewSummaryProcessor().Summarize(rows, date(t, "2024-01-01"))
	if !s.TotalIncome.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("TotalIncome = %s, want 0.3", s.TotalIncome)
	}
}
