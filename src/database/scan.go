package database

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/cashflow/src/models"
)

const transactionColumns = "id, title, amount, type, frequency, date, is_generated, is_deleted_by_user, next_due_date"

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		tx        models.Transaction
		amountStr string
		txType    string
		frequency string
	)
	if err := row.Scan(&tx.ID, &tx.Title, &amountStr, &txType, &frequency, &tx.Date,
		&tx.IsGenerated, &tx.IsDeletedByUser, &tx.NextDueDate); err != nil {
		return tx, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return tx, fmt.Errorf("invalid amount %q for transaction %d: %w", amountStr, tx.ID, err)
	}
	tx.Amount = amount
	tx.Type = models.TransactionType(txType)
	tx.Frequency = models.Frequency(frequency)
	return tx, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
