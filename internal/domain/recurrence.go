package domain

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Recurrence tags how an event repeats.
type Recurrence string

const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

// ParseRecurrence maps a stored tag to a Recurrence, treating empty and
// unknown values as none.
func ParseRecurrence(s string) Recurrence {
	switch Recurrence(s) {
	case RecurDaily, RecurWeekly, RecurMonthly:
		return Recurrence(s)
	default:
		return RecurNone
	}
}

func (r Recurrence) freq() (rrule.Frequency, bool) {
	switch r {
	case RecurDaily:
		return rrule.DAILY, true
	case RecurWeekly:
		return rrule.WEEKLY, true
	case RecurMonthly:
		return rrule.MONTHLY, true
	default:
		return 0, false
	}
}

// NextOccurrence returns the first occurrence of the event strictly after
// `after`, given its stored canonical instant and recurrence tag. For
// non-recurring events the stored instant is returned as-is with ok=false
// when it is not after `after`.
func NextOccurrence(at time.Time, r Recurrence, after time.Time) (time.Time, bool) {
	if at.After(after) {
		return at, true
	}
	freq, ok := r.freq()
	if !ok {
		return at, false
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: at.UTC(),
	})
	if err != nil {
		return at, false
	}
	next := rule.After(after.UTC(), false)
	if next.IsZero() {
		return at, false
	}
	return next, true
}
