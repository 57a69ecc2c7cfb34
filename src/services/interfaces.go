package services

import (
	"context"
	"errors"

	"github.com/username/cashflow/src/models"
)

var (
	ErrNotFound = errors.New("transaction not found")
	// ErrDuplicateOccurrence is returned by a store when a generated occurrence
	// for the same (title, frequency, date) already exists.
	ErrDuplicateOccurrence = errors.New("generated occurrence already exists")
	ErrSuperseded          = errors.New("refresh superseded by a newer request")
)

// TransactionStore is the persistence contract shared by every backend.
// Dates are YYYY-MM-DD strings.
type TransactionStore interface {
	Insert(ctx context.Context, tx models.Transaction) (int64, error)
	Update(ctx context.Context, tx models.Transaction) error
	Delete(ctx context.Context, tx models.Transaction) error
	Get(ctx context.Context, id int64) (*models.Transaction, error)

	// FindExact returns the row matching (date, title, frequency) or nil.
	FindExact(ctx context.Context, date, title string, frequency models.Frequency, includeSoftDeleted bool) (*models.Transaction, error)
	// LatestGenerated returns the generated row of the family with the greatest date, or nil.
	LatestGenerated(ctx context.Context, title string, frequency models.Frequency) (*models.Transaction, error)

	QueryRange(ctx context.Context, start, end string, excludeSoftDeleted bool) ([]models.Transaction, error)
	QueryFuture(ctx context.Context, today string, excludeSoftDeleted bool) ([]models.Transaction, error)
	QueryRecurring(ctx context.Context) ([]models.Transaction, error)

	Close() error
}

// EventPublisher receives a notification after every store mutation.
type EventPublisher interface {
	Publish(event models.Event)
}

// ProjectionService materialises recurring occurrences up to a horizon.
type ProjectionService interface {
	Project(ctx context.Context, horizonDays int) (*models.ProjectionReport, error)
}

// ViewInvalidator drops cached views after the store changes.
type ViewInvalidator interface {
	Invalidate()
}

// ViewService assembles the presentation's view of the store.
type ViewService interface {
	LoadView(ctx context.Context, params models.ViewParams) (*models.View, error)
	ViewInvalidator
}

// TransactionService implements the user-facing mutations.
type TransactionService interface {
	Add(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	Update(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	Delete(ctx context.Context, id int64) (*models.Transaction, error)
	Get(ctx context.Context, id int64) (*models.Transaction, error)
}

// NotificationService sends the digest of newly projected occurrences.
type NotificationService interface {
	SendUpcomingDigest(ctx context.Context, occurrences []models.Transaction) error
}
