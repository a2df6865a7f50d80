package domain

import (
	"errors"
	"fmt"
	"time"
)

// CanonicalLayout is the minute-granularity wall-clock form users enter and see.
const CanonicalLayout = "2006-01-02 15:04"

// ErrInvalidTimeSpec is returned when a local date/time string cannot be parsed
// or the timezone identifier is not a recognized IANA location.
var ErrInvalidTimeSpec = errors.New("invalid time spec")

// ToCanonical converts a local wall-clock string ("2006-01-02 15:04") in the
// given zone to the canonical UTC instant. Events are only ever persisted in
// this form; local time is a derived view.
//
// A local time that does not exist or exists twice around a DST transition is
// resolved by time.Date normalization: nonexistent times roll forward past the
// gap, ambiguous times take the first (earlier) offset. Applied consistently
// everywhere, including the Rescheduler.
func ToCanonical(local, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unknown zone %q", ErrInvalidTimeSpec, zone)
	}
	t, err := time.ParseInLocation(CanonicalLayout, local, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeSpec, local)
	}
	return t.UTC(), nil
}

// ToLocal renders a canonical UTC instant as a local wall-clock string in the
// given zone. It fails only when the zone itself is unknown.
func ToLocal(t time.Time, zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("%w: unknown zone %q", ErrInvalidTimeSpec, zone)
	}
	return t.In(loc).Format(CanonicalLayout), nil
}

// ValidateZone checks that zone is a valid IANA location and returns its
// normalized name.
func ValidateZone(zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("%w: unknown zone %q", ErrInvalidTimeSpec, zone)
	}
	return loc.String(), nil
}
