package domain

import "time"

// IsBusinessDay is false on Saturday and Sunday in t's location. There is no
// holiday calendar.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// AdvanceToBusinessDay returns t unchanged on a business day, otherwise the
// first following business day at the same wall-clock time.
func AdvanceToBusinessDay(t time.Time) time.Time {
	for !IsBusinessDay(t) {
		t = AddDays(t, 1)
	}
	return t
}
