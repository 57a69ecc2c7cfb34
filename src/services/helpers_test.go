package services_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cashflow/src/database"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/processors"
	"github.com/username/cashflow/src/services"
)

func fixedClock(date string) func() time.Time {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		panic(err)
	}
	t = t.Add(15 * time.Hour)
	return func() time.Time { return t }
}

func newRow(title, amount string, typ models.TransactionType, freq models.Frequency, date string) models.Transaction {
	return models.Transaction{
		Title:     title,
		Amount:    decimal.RequireFromString(amount),
		Type:      typ,
		Frequency: freq,
		Date:      date,
	}
}

func insert(t *testing.T, store services.TransactionStore, tx models.Transaction) models.Transaction {
	t.Helper()
	id, err := store.Insert(context.Background(), tx)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	tx.ID = id
	return tx
}

func newSQLiteStore(t *testing.T) services.TransactionStore {
	t.Helper()
	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var testStores = map[string]func(t *testing.T) services.TransactionStore{
	"memory": func(t *testing.T) services.TransactionStore { return database.NewMemoryStore() },
	"sqlite": newSQLiteStore,
}

func newProjector(store services.TransactionStore, pub services.EventPublisher, clock func() time.Time) services.ProjectionService {
	return services.NewProjectionService(store, processors.NewRecurrenceProcessor(), nil, pub, clock, 4)
}

func newViews(store services.TransactionStore, clock func() time.Time) services.ViewService {
	return services.NewViewService(store, processors.NewViewProcessor(), processors.NewSummaryProcessor(), nil, clock)
}

// allRows returns every row in the store, soft-deleted included.
func allRows(t *testing.T, store services.TransactionStore) []models.Transaction {
	t.Helper()
	rows, err := store.QueryRange(context.Background(), "0000-01-01", "9999-12-31", false)
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	return rows
}

func generatedRows(t *testing.T, store services.TransactionStore) []models.Transaction {
	var out []models.Transaction
	for _, r := range allRows(t, store) {
		if r.IsGenerated {
			out = append(out, r)
		}
	}
	return out
}

func assertNoDuplicateOccurrences(t *testing.T, store services.TransactionStore) {
	t.Helper()
	seen := make(map[string]bool)
	for _, r := range generatedRows(t, store) {
		key := r.Title + "|" + string(r.Frequency) + "|" + r.Date
		if seen[key] {
			t.Errorf("duplicate generated occurrence %s", key)
		}
		seen[key] = true
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(ev models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) count(kind models.EventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

var errInjected = errors.New("injected failure")

// failingStore fails FindExact for one title.
type failingStore struct {
	services.TransactionStore
	failTitle string
}

func (s *failingStore) FindExact(ctx context.Context, date, title string, frequency models.Frequency, includeSoftDeleted bool) (*models.Transaction, error) {
	if title == s.failTitle {
		return nil, errInjected
	}
	return s.TransactionStore.FindExact(ctx, date, title, frequency, includeSoftDeleted)
}
