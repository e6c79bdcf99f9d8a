package utils

import "time"

// DayStart truncates t to midnight in the given location.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayEnd returns the last representable instant of t's calendar day.
func DayEnd(t time.Time, loc *time.Location) time.Time {
	return DayStart(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly formats t as the venue-facing calendar date.
func DateOnly(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
