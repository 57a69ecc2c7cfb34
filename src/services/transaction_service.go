package services

import (
	"context"
	"fmt"
	"time"

	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
)

type transactionServiceImpl struct {
	store     TransactionStore
	views     ViewService
	publisher EventPublisher
	clock     func() time.Time
}

func NewTransactionService(store TransactionStore, views ViewService, publisher EventPublisher, clock func() time.Time) TransactionService {
	if clock == nil {
		clock = time.Now
	}
	return &transactionServiceImpl{
		store:     store,
		views:     views,
		publisher: publisher,
		clock:     clock,
	}
}

// Add stores a user-entered transaction. Callers validate the fields; the
// generated and deleted flags are always cleared.
func (s *transactionServiceImpl) Add(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	tx.ID = 0
	tx.IsGenerated = false
	tx.IsDeletedByUser = false

	id, err := s.store.Insert(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("error adding transaction: %w", err)
	}
	tx.ID = id

	logger.FromContext(ctx).Info("Transaction added", "transactionID", id, "title", tx.Title, "frequency", tx.Frequency, "date", tx.Date)
	s.changed(models.EventTransactionAdded, tx)
	return &tx, nil
}

// Update overwrites the stored row with tx's fields, flags included.
func (s *transactionServiceImpl) Update(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	if err := s.store.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("error updating transaction %d: %w", tx.ID, err)
	}

	logger.FromContext(ctx).Info("Transaction updated", "transactionID", tx.ID, "title", tx.Title)
	s.changed(models.EventTransactionUpdated, tx)
	return &tx, nil
}

// Delete tombstones a generated occurrence so it is never projected again and
// physically removes a user-entered row. It returns the row as it was before
// a hard delete, or as tombstoned.
func (s *transactionServiceImpl) Delete(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading transaction %d: %w", id, err)
	}
	log := logger.FromContext(ctx)

	if tx.IsGenerated {
		tx.IsDeletedByUser = true
		if err := s.store.Update(ctx, *tx); err != nil {
			return nil, fmt.Errorf("error soft-deleting transaction %d: %w", id, err)
		}
		log.Info("Generated occurrence soft-deleted", "transactionID", id, "title", tx.Title, "date", tx.Date)
		s.changed(models.EventTransactionSoftDeleted, *tx)
		return tx, nil
	}

	if err := s.store.Delete(ctx, *tx); err != nil {
		return nil, fmt.Errorf("error deleting transaction %d: %w", id, err)
	}
	log.Info("Transaction deleted", "transactionID", id, "title", tx.Title)
	s.changed(models.EventTransactionDeleted, *tx)
	return tx, nil
}

func (s *transactionServiceImpl) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.store.Get(ctx, id)
}

// changed invalidates cached views before announcing the mutation, so
// listeners that reload see the new state.
func (s *transactionServiceImpl) changed(kind models.EventKind, tx models.Transaction) {
	if s.views != nil {
		s.views.Invalidate()
	}
	if s.publisher != nil {
		s.publisher.Publish(models.Event{
			Kind:          kind,
			TransactionID: tx.ID,
			Title:         tx.Title,
			Date:          tx.Date,
			At:            s.clock(),
		})
	}
}
