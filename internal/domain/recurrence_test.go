package domain

import (
	"testing"
	"time"
)

func TestParseRecurrence(t *testing.T) {
	if ParseRecurrence("weekly") != RecurWeekly {
		t.Fatalf("weekly not recognized")
	}
	if ParseRecurrence("") != RecurNone {
		t.Fatalf("empty should be none")
	}
	if ParseRecurrence("hourly") != RecurNone {
		t.Fatalf("unknown tag should collapse to none")
	}
}

func TestNextOccurrence_FutureAsIs(t *testing.T) {
	at := time.Date(2025, time.June, 10, 11, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	got, ok := NextOccurrence(at, RecurNone, now)
	if !ok || !got.Equal(at) {
		t.Fatalf("future non-recurring: got %v, %v", got, ok)
	}
}

func TestNextOccurrence_PastNonRecurring(t *testing.T) {
	at := time.Date(2025, time.May, 1, 11, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	if _, ok := NextOccurrence(at, RecurNone, now); ok {
		t.Fatalf("past non-recurring event must have no next occurrence")
	}
}

func TestNextOccurrence_Daily(t *testing.T) {
	at := time.Date(2025, time.May, 1, 11, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	got, ok := NextOccurrence(at, RecurDaily, now)
	if !ok {
		t.Fatalf("daily: no occurrence")
	}
	want := time.Date(2025, time.June, 2, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("daily: want %v, got %v", want, got)
	}
}

func TestNextOccurrence_Weekly(t *testing.T) {
	// Thursday May 1st, repeating weekly; from June 1st (Sunday) the next is
	// Thursday June 5th.
	at := time.Date(2025, time.May, 1, 9, 30, 0, 0, time.UTC)
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	got, ok := NextOccurrence(at, RecurWeekly, now)
	if !ok {
		t.Fatalf("weekly: no occurrence")
	}
	want := time.Date(2025, time.June, 5, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("weekly: want %v, got %v", want, got)
	}
}

func TestNextOccurrence_Monthly(t *testing.T) {
	at := time.Date(2025, time.January, 15, 8, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC)
	got, ok := NextOccurrence(at, RecurMonthly, now)
	if !ok {
		t.Fatalf("monthly: no occurrence")
	}
	want := time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("monthly: want %v, got %v", want, got)
	}
}
