package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/username/cashflow/src/database"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/services"
)

func seedViewRows(t *testing.T, store services.TransactionStore) {
	insert(t, store, newRow("Salary", "100", models.Income, models.FrequencyMonthly, "2024-05-09"))
	insert(t, store, newRow("Groceries", "30", models.Expense, models.FrequencyOnce, "2024-05-10"))
	insert(t, store, newRow("Rent", "50", models.Expense, models.FrequencyMonthly, "2024-05-11"))
	insert(t, store, newRow("Old", "7", models.Expense, models.FrequencyOnce, "2024-03-01"))
	insert(t, store, newRow("Later", "20", models.Income, models.FrequencyWeekly, "2024-06-01"))
	tomb := newRow("Rent", "50", models.Expense, models.FrequencyMonthly, "2024-05-01")
	tomb.IsGenerated = true
	tomb.IsDeletedByUser = true
	insert(t, store, tomb)
}

func titles(v *models.View) []string {
	out := make([]string, len(v.Transactions))
	for i, tx := range v.Transactions {
		out[i] = tx.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadViewPastRange(t *testing.T) {
	for name, newStore := range testStores {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			seedViewRows(t, store)
			views := newViews(store, fixedClock("2024-05-10"))

			view, err := views.LoadView(context.Background(), models.ViewParams{})
			if err != nil {
				t.Fatal(err)
			}
			if view.Params.Mode != models.ViewPastRange || view.Params.RangeLabel != models.RangeLast2Weeks {
				t.Errorf("defaults not applied: %+v", view.Params)
			}
			if view.Start != "2024-04-26" {
				t.Errorf("Start = %s", view.Start)
			}
			if want := []string{"Groceries", "Salary"}; !equalStrings(titles(view), want) {
				t.Errorf("titles = %v, want %v", titles(view), want)
			}
			if !view.TotalIncome.Equal(decimal.NewFromInt(100)) || !view.TotalExpenses.Equal(decimal.NewFromInt(30)) {
				t.Errorf("totals = %s / %s", view.TotalIncome, view.TotalExpenses)
			}
			if !view.Balance.Equal(decimal.NewFromInt(70)) {
				t.Errorf("Balance = %s, want 70", view.Balance)
			}

			long, err := views.LoadView(context.Background(), models.ViewParams{Mode: models.ViewPastRange, RangeLabel: models.RangeLast3Months})
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"Groceries", "Salary", "Old"}; !equalStrings(titles(long), want) {
				t.Errorf("3 month titles = %v, want %v", titles(long), want)
			}
		})
	}
}

func TestLoadViewFuture(t *testing.T) {
	for name, newStore := range testStores {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			seedViewRows(t, store)
			views := newViews(store, fixedClock("2024-05-10"))

			view, err := views.LoadView(context.Background(), models.ViewParams{Mode: models.ViewFuture, RangeLabel: models.RangeLast6Months})
			if err != nil {
				t.Fatal(err)
			}
			if view.Params.RangeLabel != "" {
				t.Errorf("future view should ignore the range label, got %q", view.Params.RangeLabel)
			}
			if want := []string{"Later", "Rent"}; !equalStrings(titles(view), want) {
				t.Errorf("titles = %v, want %v", titles(view), want)
			}
			if !view.TotalIncome.Equal(decimal.NewFromInt(20)) || !view.TotalExpenses.Equal(decimal.NewFromInt(50)) {
				t.Errorf("totals = %s / %s", view.TotalIncome, view.TotalExpenses)
			}
			if !view.Balance.IsZero() {
				t.Errorf("future rows must not count toward the balance, got %s", view.Balance)
			}
		})
	}
}

func TestLoadViewFrequencyFilter(t *testing.T) {
	store := database.NewMemoryStore()
	seedViewRows(t, store)
	views := newViews(store, fixedClock("2024-05-10"))

	view, err := views.LoadView(context.Background(), models.ViewParams{Mode: models.ViewFuture, Frequency: models.FrequencyMonthly})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Rent"}; !equalStrings(titles(view), want) {
		t.Errorf("titles = %v, want %v", titles(view), want)
	}
	if !view.TotalIncome.IsZero() || !view.TotalExpenses.Equal(decimal.NewFromInt(50)) {
		t.Errorf("aggregates should follow the filter: %s / %s", view.TotalIncome, view.TotalExpenses)
	}

	past, err := views.LoadView(context.Background(), models.ViewParams{Frequency: models.FrequencyOnce})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Groceries"}; !equalStrings(titles(past), want) {
		t.Errorf("past ONCE titles = %v, want %v", titles(past), want)
	}
}

func TestLoadViewCachesUntilInvalidated(t *testing.T) {
	store := database.NewMemoryStore()
	seedViewRows(t, store)
	views := newViews(store, fixedClock("2024-05-10"))
	ctx := context.Background()

	first, err := views.LoadView(ctx, models.ViewParams{})
	if err != nil {
		t.Fatal(err)
	}
	first.Transactions[0].Title = "mutated by caller"

	insert(t, store, newRow("Lunch", "12", models.Expense, models.FrequencyOnce, "2024-05-10"))
	cached, _ := views.LoadView(ctx, models.ViewParams{})
	if len(cached.Transactions) != 2 {
		t.Errorf("expected cached view with 2 rows, got %d", len(cached.Transactions))
	}
	if cached.Transactions[0].Title == "mutated by caller" {
		t.Error("callers must not share the cached slice")
	}

	views.Invalidate()
	fresh, _ := views.LoadView(ctx, models.ViewParams{})
	if len(fresh.Transactions) != 3 {
		t.Errorf("expected 3 rows after invalidation, got %d", len(fresh.Transactions))
	}
}

func TestLoadViewEmptyStore(t *testing.T) {
	view, err := newViews(database.NewMemoryStore(), fixedClock("2024-05-10")).LoadView(context.Background(), models.ViewParams{})
	if err != nil {
		t.Fatal(err)
	}
	if view.Transactions == nil || len(view.Transactions) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", view.Transactions)
	}
	if !view.Balance.IsZero() {
		t.Errorf("Balance = %s", view.Balance)
	}
}
