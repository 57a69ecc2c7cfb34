package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/services"
)

// MemoryStore is an in-memory TransactionStore. It is safe for concurrent use
// and enforces the same generated-occurrence uniqueness as the SQL stores.
// Data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]models.Transaction
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[int64]models.Transaction),
		nextID: 1,
	}
}

func (s *MemoryStore) Close() error { return nil }

// conflicts reports whether another generated row occupies tx's occurrence slot. Caller holds mu.
func (s *MemoryStore) conflicts(tx models.Transaction) bool {
	if !tx.IsGenerated {
		return false
	}
	for id, row := range s.rows {
		if id != tx.ID && row.IsGenerated && row.Title == tx.Title && row.Frequency == tx.Frequency && row.Date == tx.Date {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Insert(ctx context.Context, tx models.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = 0
	if s.conflicts(tx) {
		return 0, fmt.Errorf("%w: %s %s on %s", services.ErrDuplicateOccurrence, tx.Frequency, tx.Title, tx.Date)
	}
	tx.ID = s.nextID
	s.nextID++
	s.rows[tx.ID] = tx.Clone()
	return tx.ID, nil
}

func (s *MemoryStore) Update(ctx context.Context, tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[tx.ID]; !ok {
		return fmt.Errorf("%w: id %d", services.ErrNotFound, tx.ID)
	}
	if s.conflicts(tx) {
		return fmt.Errorf("%w: %s %s on %s", services.ErrDuplicateOccurrence, tx.Frequency, tx.Title, tx.Date)
	}
	s.rows[tx.ID] = tx.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[tx.ID]; !ok {
		return fmt.Errorf("%w: id %d", services.ErrNotFound, tx.ID)
	}
	delete(s.rows, tx.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", services.ErrNotFound, id)
	}
	c := row.Clone()
	return &c, nil
}

func (s *MemoryStore) FindExact(ctx context.Context, date, title string, frequency models.Frequency, includeSoftDeleted bool) (*models.Transaction, error) {
	matches := s.collect(func(row models.Transaction) bool {
		return row.Date == date && row.Title == title && row.Frequency == frequency &&
			(includeSoftDeleted || !row.IsDeletedByUser)
	})
	if len(matches) == 0 {
		return nil, nil
	}
	sortByID(matches)
	return &matches[0], nil
}

func (s *MemoryStore) LatestGenerated(ctx context.Context, title string, frequency models.Frequency) (*models.Transaction, error) {
	matches := s.collect(func(row models.Transaction) bool {
		return row.IsGenerated && row.Title == title && row.Frequency == frequency
	})
	if len(matches) == 0 {
		return nil, nil
	}
	sortByDate(matches, true)
	return &matches[0], nil
}

func (s *MemoryStore) QueryRange(ctx context.Context, start, end string, excludeSoftDeleted bool) ([]models.Transaction, error) {
	matches := s.collect(func(row models.Transaction) bool {
		return row.Date >= start && row.Date <= end && !(excludeSoftDeleted && row.IsDeletedByUser)
	})
	sortByDate(matches, true)
	return matches, nil
}

func (s *MemoryStore) QueryFuture(ctx context.Context, today string, excludeSoftDeleted bool) ([]models.Transaction, error) {
	matches := s.collect(func(row models.Transaction) bool {
		return row.Date > today && !(excludeSoftDeleted && row.IsDeletedByUser)
	})
	sortByDate(matches, false)
	return matches, nil
}

func (s *MemoryStore) QueryRecurring(ctx context.Context) ([]models.Transaction, error) {
	matches := s.collect(func(row models.Transaction) bool {
		return row.Frequency != models.FrequencyOnce
	})
	sortByID(matches)
	return matches, nil
}

// collect returns copies of every row matching keep.
func (s *MemoryStore) collect(keep func(models.Transaction) bool) []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	for _, row := range s.rows {
		if keep(row) {
			out = append(out, row.Clone())
		}
	}
	return out
}

func sortByID(rows []models.Transaction) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
}

func sortByDate(rows []models.Transaction, desc bool) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			if desc {
				return rows[i].Date > rows[j].Date
			}
			return rows[i].Date < rows[j].Date
		}
		if desc {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].ID < rows[j].ID
	})
}
