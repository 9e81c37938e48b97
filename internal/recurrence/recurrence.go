// Package recurrence computes occurrence dates for recurring transactions.
// Everything here is pure and deterministic.
package recurrence

import (
	"fmt"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"
)

// ValidateInterval rejects anything outside DAILY, WEEKLY, MONTHLY, YEARLY
func ValidateInterval(interval models.RecurringInterval) error {
	switch interval {
	case models.IntervalDaily, models.IntervalWeekly, models.IntervalMonthly, models.IntervalYearly:
		return nil
	}
	return fmt.Errorf("%w: unsupported recurring interval %q", store.ErrValidation, interval)
}

// NextOccurrence returns the occurrence following date. Month and year steps
// keep the day of month, clamped to the last valid day of the target month.
func NextOccurrence(date time.Time, interval models.RecurringInterval) (time.Time, error) {
	return occurrence(date, interval, 1)
}

// NextAfter returns the first occurrence of the schedule anchored at date that
// is strictly after asOf. Steps are counted from the anchor, so a day lost to
// clamping (Jan 31 -> Feb 28) is restored in longer months.
func NextAfter(date time.Time, interval models.RecurringInterval, asOf time.Time) (time.Time, error) {
	for n := 1; ; n++ {
		next, err := occurrence(date, interval, n)
		if err != nil {
			return time.Time{}, err
		}
		if next.After(asOf) {
			return next, nil
		}
	}
}

func occurrence(anchor time.Time, interval models.RecurringInterval, n int) (time.Time, error) {
	switch interval {
	case models.IntervalDaily:
		return anchor.AddDate(0, 0, n), nil
	case models.IntervalWeekly:
		return anchor.AddDate(0, 0, 7*n), nil
	case models.IntervalMonthly:
		return addMonthsClamped(anchor, n), nil
	case models.IntervalYearly:
		return addMonthsClamped(anchor, 12*n), nil
	}
	return time.Time{}, ValidateInterval(interval)
}

// IsDue reports whether a recurring transaction should be materialized at asOf
func IsDue(tx models.Transaction, asOf time.Time) bool {
	return tx.IsRecurring && tx.NextRecurringDate != nil && !tx.NextRecurringDate.After(asOf)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
