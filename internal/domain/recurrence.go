package domain

import (
	"regexp"
	"time"
)

type IntervalType string

const (
	IntervalWeekly   IntervalType = "weekly"
	IntervalBiweekly IntervalType = "biweekly"
	IntervalMonthly  IntervalType = "monthly"
)

func (t IntervalType) Valid() bool {
	switch t {
	case IntervalWeekly, IntervalBiweekly, IntervalMonthly:
		return true
	}
	return false
}

// DefaultMaxOccurrences bounds every generated sequence, including the ones
// limited only by an until date.
const DefaultMaxOccurrences = 52

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// RecurrenceRule is the transient description of a series request. Dates and
// times are local wall-clock values in the generator's location.
type RecurrenceRule struct {
	StartDate string
	Time      string
	Interval  IntervalType
	Count     *int
	UntilDate *string
}

// ParseLocalDate parses a YYYY-MM-DD string as midnight in loc.
func ParseLocalDate(date string, loc *time.Location) (time.Time, error) {
	if !datePattern.MatchString(date) {
		return time.Time{}, NewValidationError("date", "date must be YYYY-MM-DD")
	}
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, NewValidationError("date", "date must be a valid calendar date")
	}
	return t, nil
}

// ParseLocalDateTime combines a YYYY-MM-DD date and an HH:mm time in loc.
func ParseLocalDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseLocalDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !timePattern.MatchString(clock) {
		return time.Time{}, NewValidationError("time", "time must be HH:mm")
	}
	c, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return time.Time{}, NewValidationError("time", "time must be a valid 24h time")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}

// OccurrenceGenerator expands recurrence rules into business-day instants.
type OccurrenceGenerator struct {
	location       *time.Location
	maxOccurrences int
}

// NewOccurrenceGenerator returns a generator working in loc (time.Local when
// nil) that never yields more than maxOccurrences items (DefaultMaxOccurrences
// when not positive).
func NewOccurrenceGenerator(loc *time.Location, maxOccurrences int) *OccurrenceGenerator {
	if loc == nil {
		loc = time.Local
	}
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &OccurrenceGenerator{location: loc, maxOccurrences: maxOccurrences}
}

func (g *OccurrenceGenerator) Location() *time.Location {
	return g.location
}

func (g *OccurrenceGenerator) MaxOccurrences() int {
	return g.maxOccurrences
}

// Occurrences validates rule and returns a fresh iterator over its instants.
func (g *OccurrenceGenerator) Occurrences(rule RecurrenceRule) (*OccurrenceIterator, error) {
	if !rule.Interval.Valid() {
		return nil, NewValidationError("intervalType", "intervalType must be one of weekly, biweekly, monthly")
	}
	first, err := ParseLocalDateTime(rule.StartDate, rule.Time, g.location)
	if err != nil {
		return nil, err
	}

	it := &OccurrenceIterator{
		current:   AdvanceToBusinessDay(first),
		interval:  rule.Interval,
		remaining: g.maxOccurrences,
	}
	if rule.Count != nil && *rule.Count < it.remaining {
		it.remaining = max(*rule.Count, 0)
	}
	if rule.UntilDate != nil {
		until, err := ParseLocalDate(*rule.UntilDate, g.location)
		if err != nil {
			return nil, NewValidationError("untilDate", "untilDate must be a valid YYYY-MM-DD date")
		}
		u := civilDate(until)
		it.until = &u
	}
	return it, nil
}

// OccurrenceIterator is a forward-only, single-use sequence of occurrence
// start instants. Every yielded instant falls on a business day.
type OccurrenceIterator struct {
	current   time.Time
	interval  IntervalType
	remaining int
	until     *time.Time
}

// Next returns the following occurrence, or false once the sequence is
// exhausted. An exhausted iterator stays exhausted.
func (it *OccurrenceIterator) Next() (time.Time, bool) {
	if it.remaining <= 0 {
		return time.Time{}, false
	}
	if it.until != nil && civilDate(it.current).After(*it.until) {
		it.remaining = 0
		return time.Time{}, false
	}

	out := it.current
	it.remaining--
	it.current = AdvanceToBusinessDay(step(it.current, it.interval))
	return out, true
}

// Collect drains the iterator.
func (it *OccurrenceIterator) Collect() []time.Time {
	var out []time.Time
	for {
		t, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

func step(t time.Time, interval IntervalType) time.Time {
	switch interval {
	case IntervalBiweekly:
		return AddDays(t, 14)
	case IntervalMonthly:
		// Day-of-month overflow rolls into the next month (Jan 31 -> Mar 3).
		return time.Date(t.Year(), t.Month()+1, t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	default:
		return AddDays(t, 7)
	}
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
