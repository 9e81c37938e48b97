package recurrence

import (
	"errors"
	"testing"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		interval models.RecurringInterval
		want     time.Time
	}{
		{"daily", date(2024, time.March, 31), models.IntervalDaily, date(2024, time.April, 1)},
		{"weekly", date(2024, time.December, 28), models.IntervalWeekly, date(2025, time.January, 4)},
		{"monthly plain", date(2024, time.March, 15), models.IntervalMonthly, date(2024, time.April, 15)},
		{"monthly jan 31 non-leap", date(2023, time.January, 31), models.IntervalMonthly, date(2023, time.February, 28)},
		{"monthly jan 31 leap", date(2024, time.January, 31), models.IntervalMonthly, date(2024, time.February, 29)},
		{"monthly may 31", date(2024, time.May, 31), models.IntervalMonthly, date(2024, time.June, 30)},
		{"monthly december", date(2024, time.December, 31), models.IntervalMonthly, date(2025, time.January, 31)},
		{"yearly plain", date(2024, time.July, 4), models.IntervalYearly, date(2025, time.July, 4)},
		{"yearly feb 29", date(2024, time.February, 29), models.IntervalYearly, date(2025, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.from, tt.interval)
			if err != nil {
				t.Fatalf("NextOccurrence failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTwelveMonthlyStepsReturnToSameDay(t *testing.T) {
	for _, start := range []time.Time{
		date(2023, time.January, 15),
		date(2023, time.March, 28),
		date(2024, time.June, 1),
		date(2024, time.November, 27),
	} {
		next := start
		for i := 0; i < 12; i++ {
			var err error
			if next, err = NextOccurrence(next, models.IntervalMonthly); err != nil {
				t.Fatalf("NextOccurrence failed: %v", err)
			}
		}
		want := start.AddDate(1, 0, 0)
		if !next.Equal(want) {
			t.Errorf("12 monthly steps from %s: expected %s, got %s", start, want, next)
		}
	}
}

func TestNextOccurrencePreservesClock(t *testing.T) {
	from := time.Date(2024, time.January, 31, 23, 15, 7, 500, time.UTC)
	got, err := NextOccurrence(from, models.IntervalMonthly)
	if err != nil {
		t.Fatalf("NextOccurrence failed: %v", err)
	}
	if got.Hour() != 23 || got.Minute() != 15 || got.Second() != 7 || got.Nanosecond() != 500 {
		t.Errorf("Expected clock to be preserved, got %s", got)
	}
}

func TestNextOccurrenceRejectsUnknownInterval(t *testing.T) {
	_, err := NextOccurrence(date(2024, time.January, 1), "HOURLY")
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestNextAfter(t *testing.T) {
	asOf := date(2024, time.April, 10)

	got, err := NextAfter(date(2024, time.January, 5), models.IntervalMonthly, asOf)
	if err != nil {
		t.Fatalf("NextAfter failed: %v", err)
	}
	if want := date(2024, time.May, 5); !got.Equal(want) {
		t.Errorf("Expected %s, got %s", want, got)
	}

	got, err = NextAfter(date(2024, time.April, 9), models.IntervalDaily, asOf)
	if err != nil {
		t.Fatalf("NextAfter failed: %v", err)
	}
	if want := date(2024, time.April, 11); !got.Equal(want) {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestNextAfter_KeepsAnchorDay(t *testing.T) {
	anchor := date(2025, time.January, 31)

	tests := []struct {
		name     string
		interval models.RecurringInterval
		anchor   time.Time
		asOf     time.Time
		want     time.Time
	}{
		{"clamped month", models.IntervalMonthly, anchor, date(2025, time.February, 1), date(2025, time.February, 28)},
		{"restored after february", models.IntervalMonthly, anchor, date(2025, time.February, 28), date(2025, time.March, 31)},
		{"thirty day month", models.IntervalMonthly, anchor, date(2025, time.March, 31), date(2025, time.April, 30)},
		{"leap day yearly", models.IntervalYearly, date(2024, time.February, 29), date(2027, time.March, 1), date(2028, time.February, 29)},
		{"weekly", models.IntervalWeekly, anchor, date(2025, time.February, 14), date(2025, time.February, 21)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextAfter(tt.anchor, tt.interval, tt.asOf)
			if err != nil {
				t.Fatalf("NextAfter failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestIsDue(t *testing.T) {
	asOf := date(2024, time.April, 10)
	past := date(2024, time.April, 9)
	same := asOf
	future := date(2024, time.April, 11)

	tests := []struct {
		name string
		tx   models.Transaction
		want bool
	}{
		{"past due", models.Transaction{IsRecurring: true, NextRecurringDate: &past}, true},
		{"due exactly now", models.Transaction{IsRecurring: true, NextRecurringDate: &same}, true},
		{"not yet due", models.Transaction{IsRecurring: true, NextRecurringDate: &future}, false},
		{"not recurring", models.Transaction{IsRecurring: false, NextRecurringDate: &past}, false},
		{"no next date", models.Transaction{IsRecurring: true}, false},
	}
	for _, tt := range tests {
		if got := IsDue(tt.tx, asOf); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
