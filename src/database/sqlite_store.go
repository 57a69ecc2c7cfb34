package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/services"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists transactions in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(databasePath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(databasePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}
	// One connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database at %s: %w", databasePath, err)
	}

	logger.L.Info("Checking database migrations", "databasePath", databasePath)
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)"
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (s *SQLiteStore) Insert(ctx context.Context, tx models.Transaction) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO transactions
		(title, amount, type, frequency, date, is_generated, is_deleted_by_user, next_due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Title, tx.Amount.String(), string(tx.Type), string(tx.Frequency), tx.Date,
		boolToInt(tx.IsGenerated), boolToInt(tx.IsDeletedByUser), tx.NextDueDate)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s %s on %s", services.ErrDuplicateOccurrence, tx.Frequency, tx.Title, tx.Date)
		}
		return 0, fmt.Errorf("error inserting transaction %q: %w", tx.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading inserted id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Update(ctx context.Context, tx models.Transaction) error {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET
		title = ?, amount = ?, type = ?, frequency = ?, date = ?,
		is_generated = ?, is_deleted_by_user = ?, next_due_date = ?
		WHERE id = ?`,
		tx.Title, tx.Amount.String(), string(tx.Type), string(tx.Frequency), tx.Date,
		boolToInt(tx.IsGenerated), boolToInt(tx.IsDeletedByUser), tx.NextDueDate, tx.ID)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s on %s", services.ErrDuplicateOccurrence, tx.Frequency, tx.Title, tx.Date)
		}
		return fmt.Errorf("error updating transaction %d: %w", tx.ID, err)
	}
	return expectOneRow(res, tx.ID)
}

func (s *SQLiteStore) Delete(ctx context.Context, tx models.Transaction) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", tx.ID)
	if err != nil {
		return fmt.Errorf("error deleting transaction %d: %w", tx.ID, err)
	}
	return expectOneRow(res, tx.ID)
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", services.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, err := s.queryOne(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: id %d", services.ErrNotFound, id)
	}
	return tx, nil
}

func (s *SQLiteStore) FindExact(ctx context.Context, date, title string, frequency models.Frequency, includeSoftDeleted bool) (*models.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE date = ? AND title = ? AND frequency = ?"
	if !includeSoftDeleted {
		query += " AND is_deleted_by_user = 0"
	}
	return s.queryOne(ctx, query+" ORDER BY id LIMIT 1", date, title, string(frequency))
}

func (s *SQLiteStore) LatestGenerated(ctx context.Context, title string, frequency models.Frequency) (*models.Transaction, error) {
	return s.queryOne(ctx, "SELECT "+transactionColumns+` FROM transactions
		WHERE title = ? AND frequency = ? AND is_generated = 1
		ORDER BY date DESC, id DESC LIMIT 1`, title, string(frequency))
}

func (s *SQLiteStore) QueryRange(ctx context.Context, start, end string, excludeSoftDeleted bool) ([]models.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE date BETWEEN ? AND ?"
	if excludeSoftDeleted {
		query += " AND is_deleted_by_user = 0"
	}
	return s.queryMany(ctx, query+" ORDER BY date DESC, id DESC", start, end)
}

func (s *SQLiteStore) QueryFuture(ctx context.Context, today string, excludeSoftDeleted bool) ([]models.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE date > ?"
	if excludeSoftDeleted {
		query += " AND is_deleted_by_user = 0"
	}
	return s.queryMany(ctx, query+" ORDER BY date ASC, id ASC", today)
}

func (s *SQLiteStore) QueryRecurring(ctx context.Context) ([]models.Transaction, error) {
	return s.queryMany(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE frequency != ? ORDER BY id",
		string(models.FrequencyOnce))
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, args ...any) (*models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying transaction: %w", err)
	}
	return &tx, nil
}

func (s *SQLiteStore) queryMany(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return out, nil
}
