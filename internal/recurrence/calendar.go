package recurrence

import "time"

// MonthBounds returns [start, end) of the calendar month containing t in loc
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// PreviousMonthBounds returns [start, end) of the month before the one containing t
func PreviousMonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start, _ := MonthBounds(t, loc)
	return start.AddDate(0, -1, 0), start
}
