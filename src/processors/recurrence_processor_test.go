package processors

import (
	"errors"
	"testing"
	"time"

	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/utils"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := utils.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func formatAll(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = utils.FormatDate(d)
	}
	return out
}

func TestIncrement(t *testing.T) {
	p := NewRecurrenceProcessor()
	tests := []struct {
		from string
		freq models.Frequency
		want string
	}{
		{"2024-01-10", models.FrequencyDaily, "2024-01-11"},
		{"2024-12-31", models.FrequencyDaily, "2025-01-01"},
		{"2024-01-10", models.FrequencyWeekly, "2024-01-17"},
		{"2024-01-10", models.FrequencyBiweekly, "2024-01-24"},
		{"2024-01-10", models.FrequencyMonthly, "2024-02-10"},
		{"2024-01-31", models.FrequencyMonthly, "2024-02-29"},
		{"2023-01-31", models.FrequencyMonthly, "2023-02-28"},
	}
	for _, tt := range tests {
		got, err := p.Increment(date(t, tt.from), tt.freq)
		if err != nil {
			t.Fatalf("Increment(%s, %s): %v", tt.from, tt.freq, err)
		}
		if utils.FormatDate(got) != tt.want {
			t.Errorf("Increment(%s, %s) = %s, want %s", tt.from, tt.freq, utils.FormatDate(got), tt.want)
		}
	}
}

func TestIncrementRejectsNonRecurring(t *testing.T) {
	p := NewRecurrenceProcessor()
	for _, f := range []models.Frequency{models.FrequencyOnce, models.FrequencyAll, "YEARLY"} {
		if _, err := p.Increment(date(t, "2024-01-01"), f); !errors.Is(err, ErrUnsupportedFrequency) {
			t.Errorf("Increment with %s: expected ErrUnsupportedFrequency, got %v", f, err)
		}
	}
}

func TestCandidatesMonthlyUpToLimit(t *testing.T) {
	p := NewRecurrenceProcessor()
	dates, truncated, err := p.Candidates(date(t, "2024-01-15"), models.FrequencyMonthly, date(t, "2024-04-14"))
	if err != nil {
		t.Fatal(err)
	}
	if truncated {
		t.Error("series should not be truncated")
	}
	want := []string{"2024-02-15", "2024-03-15"}
	got := formatAll(dates)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCandidatesLimitIsInclusive(t *testing.T) {
	p := NewRecurrenceProcessor()
	dates, _, err := p.Candidates(date(t, "2024-01-01"), models.FrequencyWeekly, date(t, "2024-01-15"))
	if err != nil {
		t.Fatal(err)
	}
	got := formatAll(dates)
	if len(got) != 2 || got[0] != "2024-01-08" || got[1] != "2024-01-15" {
		t.Errorf("got %v", got)
	}
}

func TestCandidatesAnchorBeyondLimit(t *testing.T) {
	p := NewRecurrenceProcessor()
	dates, truncated, err := p.Candidates(date(t, "2024-06-01"), models.FrequencyDaily, date(t, "2024-05-01"))
	if err != nil || truncated || len(dates) != 0 {
		t.Errorf("expected no candidates, got %v truncated=%v err=%v", dates, truncated, err)
	}
}

func TestCandidatesClampedMonthlyChain(t *testing.T) {
	p := NewRecurrenceProcessor()
	dates, _, err := p.Candidates(date(t, "2024-01-31"), models.FrequencyMonthly, date(t, "2024-04-30"))
	if err != nil {
		t.Fatal(err)
	}
	got := formatAll(dates)
	want := []string{"2024-02-29", "2024-03-29", "2024-04-29"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCandidatesIterationCap(t *testing.T) {
	p := NewRecurrenceProcessor()
	dates, truncated, err := p.Candidates(date(t, "2000-01-01"), models.FrequencyDaily, date(t, "2024-01-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != MaxIterations {
		t.Errorf("expected %d candidates, got %d", MaxIterations, len(dates))
	}
	if !truncated {
		t.Error("expected truncated series")
	}
	if got := utils.FormatDate(dates[0]); got != "2000-01-02" {
		t.Errorf("first candidate = %s", got)
	}
}

func TestCandidatesExactlyCapNotTruncated(t *testing.T) {
	p := &recurrenceProcessor{maxIterations: 3}
	dates, truncated, err := p.Candidates(date(t, "2024-01-01"), models.FrequencyDaily, date(t, "2024-01-04"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 3 || truncated {
		t.Errorf("got %v truncated=%v", formatAll(dates), truncated)
	}
}
