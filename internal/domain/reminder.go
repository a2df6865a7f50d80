package domain

import (
	"errors"
	"fmt"
	"time"
)

// LeadTime identifies one of the supported reminder offsets before an event.
type LeadTime int

const (
	Lead7Days LeadTime = iota
	Lead3Days
	Lead2Days
	Lead1Day
	Lead6Hours
	Lead2Hours
	Lead1Hour
	Lead45Min
	Lead30Min
	Lead15Min
)

// LeadTimes lists every supported lead time in descending offset order.
var LeadTimes = []LeadTime{
	Lead7Days, Lead3Days, Lead2Days, Lead1Day, Lead6Hours,
	Lead2Hours, Lead1Hour, Lead45Min, Lead30Min, Lead15Min,
}

var leadOffsets = map[LeadTime]time.Duration{
	Lead7Days:  7 * 24 * time.Hour,
	Lead3Days:  3 * 24 * time.Hour,
	Lead2Days:  2 * 24 * time.Hour,
	Lead1Day:   24 * time.Hour,
	Lead6Hours: 6 * time.Hour,
	Lead2Hours: 2 * time.Hour,
	Lead1Hour:  time.Hour,
	Lead45Min:  45 * time.Minute,
	Lead30Min:  30 * time.Minute,
	Lead15Min:  15 * time.Minute,
}

var leadLabels = map[LeadTime]string{
	Lead7Days:  "7 days",
	Lead3Days:  "3 days",
	Lead2Days:  "2 days",
	Lead1Day:   "1 day",
	Lead6Hours: "6 hours",
	Lead2Hours: "2 hours",
	Lead1Hour:  "1 hour",
	Lead45Min:  "45 min",
	Lead30Min:  "30 min",
	Lead15Min:  "15 min",
}

// Offset returns the duration before the event at which this reminder fires.
func (lt LeadTime) Offset() time.Duration { return leadOffsets[lt] }

func (lt LeadTime) String() string { return leadLabels[lt] }

// Valid reports whether lt is one of the supported lead times.
func (lt LeadTime) Valid() bool {
	_, ok := leadOffsets[lt]
	return ok
}

// FlagState is the explicit two-state reminder flag: Armed means a dispatch is
// still owed for that lead time; Resolved means none is (disabled or already
// sent by the downstream dispatcher).
type FlagState int

const (
	Resolved FlagState = iota
	Armed
)

// FlagSet holds one flag per supported lead time. The zero value has every
// flag Resolved, which is the state a freshly persisted event starts in.
type FlagSet map[LeadTime]FlagState

// NewFlagSet returns a set with every supported lead time Resolved.
func NewFlagSet() FlagSet {
	fs := make(FlagSet, len(LeadTimes))
	for _, lt := range LeadTimes {
		fs[lt] = Resolved
	}
	return fs
}

// ArmedCount returns the number of Armed flags.
func (fs FlagSet) ArmedCount() int {
	n := 0
	for _, s := range fs {
		if s == Armed {
			n++
		}
	}
	return n
}

// ErrTierLimitExceeded is returned when selecting a reminder would exceed the
// subscription tier's armed-flag cap.
var ErrTierLimitExceeded = errors.New("reminder tier limit exceeded")

// ErrUnknownLeadTime is returned for a lead time outside the supported set.
var ErrUnknownLeadTime = errors.New("unknown lead time")

// ReminderDraft accumulates the lead times a user selects during the
// conversation's reminder loop. It only ever records Armed choices; Finalize
// fills in the Resolved remainder.
type ReminderDraft struct {
	armed map[LeadTime]struct{}
}

// NewReminderDraft returns an empty draft.
func NewReminderDraft() *ReminderDraft {
	return &ReminderDraft{armed: make(map[LeadTime]struct{})}
}

// Select arms the given lead time. Selecting an already-armed lead time is a
// no-op. Arming a new one when the armed count already equals limit fails with
// ErrTierLimitExceeded and leaves the draft unchanged.
func (d *ReminderDraft) Select(lt LeadTime, limit int) error {
	if !lt.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownLeadTime, int(lt))
	}
	if _, ok := d.armed[lt]; ok {
		return nil
	}
	if len(d.armed) >= limit {
		return fmt.Errorf("%w: limit %d", ErrTierLimitExceeded, limit)
	}
	d.armed[lt] = struct{}{}
	return nil
}

// ArmedCount returns how many lead times are currently armed in the draft.
func (d *ReminderDraft) ArmedCount() int { return len(d.armed) }

// Finalize materializes the full flag set: selected lead times Armed, every
// other supported lead time Resolved. An empty draft yields an all-Resolved
// set, which is a valid outcome (no reminders owed).
func (d *ReminderDraft) Finalize() FlagSet {
	fs := NewFlagSet()
	for lt := range d.armed {
		fs[lt] = Armed
	}
	return fs
}
