package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field bounds for the event creation flow.
const (
	TitleMaxLen = 100
	DescMaxLen  = 500
	YearMin     = 2020
	YearMax     = 2100
)

// ErrInvalidInput marks recoverable input validation failures; the
// conversation re-prompts the same state without losing collected fields.
var ErrInvalidInput = errors.New("invalid input")

// ValidateTitle trims and bounds an event title.
func ValidateTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty title", ErrInvalidInput)
	}
	if len([]rune(s)) > TitleMaxLen {
		return "", fmt.Errorf("%w: title longer than %d characters", ErrInvalidInput, TitleMaxLen)
	}
	return s, nil
}

// ValidateDescription trims and bounds an event description.
func ValidateDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty description", ErrInvalidInput)
	}
	if len([]rune(s)) > DescMaxLen {
		return "", fmt.Errorf("%w: description longer than %d characters", ErrInvalidInput, DescMaxLen)
	}
	return s, nil
}

// ParseYear accepts years within the configured bounded range.
func ParseYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < YearMin || y > YearMax {
		return 0, fmt.Errorf("%w: year must be %d..%d", ErrInvalidInput, YearMin, YearMax)
	}
	return y, nil
}

// ParseMonth accepts 1..12, with or without a leading zero.
func ParseMonth(s string) (int, error) {
	m, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || m < 1 || m > 12 {
		return 0, fmt.Errorf("%w: month must be 1..12", ErrInvalidInput)
	}
	return m, nil
}

// DaysInMonth returns the number of days in the given month, leap years
// included.
func DaysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDay accepts a day bounded by the actual length of the chosen month.
func ParseDay(s string, year, month int) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(s))
	max := DaysInMonth(year, month)
	if err != nil || d < 1 || d > max {
		return 0, fmt.Errorf("%w: day must be 1..%d", ErrInvalidInput, max)
	}
	return d, nil
}

// ParseHourMinute accepts a 24-hour "HH:MM" pair and returns it normalized.
func ParseHourMinute(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected HH:MM", ErrInvalidInput)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour must be 00..23", ErrInvalidInput)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute must be 00..59", ErrInvalidInput)
	}
	return hour, minute, nil
}

// LocalDateTime assembles the collected calendar fields into the wall-clock
// form ToCanonical expects.
func LocalDateTime(year, month, day, hour, minute int) string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", year, month, day, hour, minute)
}
