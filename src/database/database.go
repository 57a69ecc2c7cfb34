package database

import (
	"context"
	"fmt"

	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/services"
)

// Options selects and configures a store backend.
type Options struct {
	Driver       string // sqlite, postgres or memory
	DatabasePath string
	DatabaseURL  string
}

// Open returns the store for opts.Driver. The caller owns the store and must Close it.
func Open(ctx context.Context, opts Options) (services.TransactionStore, error) {
	logger.L.Info("Opening transaction store", "driver", opts.Driver)
	switch opts.Driver {
	case "", "sqlite":
		return NewSQLiteStore(opts.DatabasePath)
	case "postgres":
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
}
