package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/cashflow/src/logger"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		frequency TEXT NOT NULL,
		date TEXT NOT NULL,
		is_generated INTEGER NOT NULL DEFAULT 0,
		is_deleted_by_user INTEGER NOT NULL DEFAULT 0,
		next_due_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
	CREATE INDEX IF NOT EXISTS idx_transactions_family ON transactions(title, frequency, date);
	`

// Backstop against two concurrent projector passes inserting the same occurrence.
const sqliteGeneratedUniqueIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_generated_occurrence
	ON transactions(title, frequency, date) WHERE is_generated = 1`

func migrateSQLite(db *sql.DB) error {
	if err := migrateTransactionsTable(db); err != nil {
		return err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		logger.L.Error("failed to create tables", "error", err)
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := db.Exec(sqliteGeneratedUniqueIndex); err != nil {
		// Databases that already hold duplicate occurrences keep working without the backstop.
		logger.L.Warn("Could not create unique index on generated occurrences", "error", err)
	}
	if err := migrateLegacyTombstones(db); err != nil {
		return err
	}
	logger.L.Info("Database tables ensured/created.")
	return nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking for table %s: %w", name, err)
	}
	return true, nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return nil, fmt.Errorf("error querying table schema for %s: %w", table, err)
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("error scanning column info for %s: %w", table, err)
		}
		columnExists[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over column info for %s: %w", table, err)
	}
	return columnExists, nil
}

// migrateTransactionsTable brings a transactions table created by an older
// schema up to date. New databases are created by sqliteSchema instead.
func migrateTransactionsTable(db *sql.DB) error {
	exists, err := tableExists(db, "transactions")
	if err != nil {
		return err
	}
	if !exists {
		logger.L.Info("transactions table does not exist, no migration needed as table will be created.")
		return nil
	}

	columnExists, err := tableColumns(db, "transactions")
	if err != nil {
		return err
	}

	// Rows written before user deletions were tombstoned are all live.
	if !columnExists["is_deleted_by_user"] {
		if _, err := db.Exec("ALTER TABLE transactions ADD COLUMN is_deleted_by_user INTEGER NOT NULL DEFAULT 0"); err != nil {
			return fmt.Errorf("error adding is_deleted_by_user column: %w", err)
		}
		logger.L.Info("Added is_deleted_by_user column to transactions table")
	}
	if !columnExists["next_due_date"] {
		if _, err := db.Exec("ALTER TABLE transactions ADD COLUMN next_due_date TEXT"); err != nil {
			return fmt.Errorf("error adding next_due_date column: %w", err)
		}
		logger.L.Info("Added next_due_date column to transactions table")
	}
	return nil
}

// migrateLegacyTombstones folds the old deleted_instances (title, date) table
// into is_deleted_by_user and drops it.
func migrateLegacyTombstones(db *sql.DB) error {
	exists, err := tableExists(db, "deleted_instances")
	if err != nil || !exists {
		return err
	}

	res, err := db.Exec(`UPDATE transactions SET is_deleted_by_user = 1
		WHERE is_generated = 1 AND EXISTS (
			SELECT 1 FROM deleted_instances d
			WHERE d.title = transactions.title AND d.date = transactions.date)`)
	if err != nil {
		return fmt.Errorf("error migrating deleted_instances: %w", err)
	}
	n, _ := res.RowsAffected()

	// Deleted instances whose row is gone become tombstones cloned from the family's oldest row.
	res, err = db.Exec(`INSERT OR IGNORE INTO transactions
		(title, amount, type, frequency, date, is_generated, is_deleted_by_user)
		SELECT DISTINCT t.title, t.amount, t.type, t.frequency, d.date, 1, 1
		FROM deleted_instances d
		JOIN transactions t ON t.id = (
			SELECT MIN(x.id) FROM transactions x WHERE x.title = d.title AND x.frequency != 'ONCE')
		WHERE NOT EXISTS (
			SELECT 1 FROM transactions y WHERE y.title = d.title AND y.date = d.date)`)
	if err != nil {
		return fmt.Errorf("error inserting tombstones from deleted_instances: %w", err)
	}
	inserted, _ := res.RowsAffected()
	n += inserted
	if _, err := db.Exec("DROP TABLE deleted_instances"); err != nil {
		return fmt.Errorf("error dropping deleted_instances: %w", err)
	}
	logger.L.Info("Migrated legacy deleted_instances into tombstones", "rows", n)
	return nil
}
