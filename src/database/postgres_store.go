package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/services"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		type TEXT NOT NULL,
		frequency TEXT NOT NULL,
		date TEXT NOT NULL,
		is_generated BOOLEAN NOT NULL DEFAULT FALSE,
		next_due_date TEXT
	);

	ALTER TABLE transactions ADD COLUMN IF NOT EXISTS is_deleted_by_user BOOLEAN NOT NULL DEFAULT FALSE;

	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
	CREATE INDEX IF NOT EXISTS idx_transactions_family ON transactions(title, frequency, date);
	CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_generated_occurrence
		ON transactions(title, frequency, date) WHERE is_generated;
	`

// Postgres reads amount back as text so it parses into decimal without float rounding.
const postgresColumns = "id, title, amount::text, type, frequency, date, is_generated, is_deleted_by_user, next_due_date"

// PostgresStore persists transactions in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	logger.L.Info("Postgres tables ensured/created.")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) Insert(ctx context.Context, tx models.Transaction) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `INSERT INTO transactions
		(title, amount, type, frequency, date, is_generated, is_deleted_by_user, next_due_date)
		VALUES ($1, CAST($2::text AS NUMERIC), $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		tx.Title, tx.Amount.String(), string(tx.Type), string(tx.Frequency), tx.Date,
		tx.IsGenerated, tx.IsDeletedByUser, tx.NextDueDate).Scan(&id)
	if err != nil {
		if isPgUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s %s on %s", services.ErrDuplicateOccurrence, tx.Frequency, tx.Title, tx.Date)
		}
		return 0, fmt.Errorf("error inserting transaction %q: %w", tx.Title, err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, tx models.Transaction) error {
	tag, err := s.pool.Exec(ctx, `UPDATE transactions SET
		title = $1, amount = CAST($2::text AS NUMERIC), type = $3, frequency = $4, date = $5,
		is_generated = $6, is_deleted_by_user = $7, next_due_date = $8
		WHERE id = $9`,
		tx.Title, tx.Amount.String(), string(tx.Type), string(tx.Frequency), tx.Date,
		tx.IsGenerated, tx.IsDeletedByUser, tx.NextDueDate, tx.ID)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s on %s", services.ErrDuplicateOccurrence, tx.Frequency, tx.Title, tx.Date)
		}
		return fmt.Errorf("error updating transaction %d: %w", tx.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", services.ErrNotFound, tx.ID)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, tx models.Transaction) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM transactions WHERE id = $1", tx.ID)
	if err != nil {
		return fmt.Errorf("error deleting transaction %d: %w", tx.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", services.ErrNotFound, tx.ID)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, err := s.queryOne(ctx, "SELECT "+postgresColumns+" FROM transactions WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: id %d", services.ErrNotFound, id)
	}
	return tx, nil
}

func (s *PostgresStore) FindExact(ctx context.Context, date, title string, frequency models.Frequency, includeSoftDeleted bool) (*models.Transaction, error) {
	query := "SELECT " + postgresColumns + " FROM transactions WHERE date = $1 AND title = $2 AND frequency = $3"
	if !includeSoftDeleted {
		query += " AND NOT is_deleted_by_user"
	}
	return s.queryOne(ctx, query+" ORDER BY id LIMIT 1", date, title, string(frequency))
}

func (s *PostgresStore) LatestGenerated(ctx context.Context, title string, frequency models.Frequency) (*models.Transaction, error) {
	return s.queryOne(ctx, "SELECT "+postgresColumns+` FROM transactions
		WHERE title = $1 AND frequency = $2 AND is_generated
		ORDER BY date DESC, id DESC LIMIT 1`, title, string(frequency))
}

func (s *PostgresStore) QueryRange(ctx context.Context, start, end string, excludeSoftDeleted bool) ([]models.Transaction, error) {
	query := "SELECT " + postgresColumns + " FROM transactions WHERE date BETWEEN $1 AND $2"
	if excludeSoftDeleted {
		query += " AND NOT is_deleted_by_user"
	}
	return s.queryMany(ctx, query+" ORDER BY date DESC, id DESC", start, end)
}

func (s *PostgresStore) QueryFuture(ctx context.Context, today string, excludeSoftDeleted bool) ([]models.Transaction, error) {
	query := "SELECT " + postgresColumns + " FROM transactions WHERE date > $1"
	if excludeSoftDeleted {
		query += " AND NOT is_deleted_by_user"
	}
	return s.queryMany(ctx, query+" ORDER BY date ASC, id ASC", today)
}

func (s *PostgresStore) QueryRecurring(ctx context.Context) ([]models.Transaction, error) {
	return s.queryMany(ctx, "SELECT "+postgresColumns+" FROM transactions WHERE frequency <> $1 ORDER BY id",
		string(models.FrequencyOnce))
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (*models.Transaction, error) {
	tx, err := scanTransaction(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying transaction: %w", err)
	}
	return &tx, nil
}

func (s *PostgresStore) queryMany(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
