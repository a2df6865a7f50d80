package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTitle(t *testing.T) {
	if _, err := ValidateTitle("  Standup  "); err != nil {
		t.Fatalf("valid title rejected: %v", err)
	}
	if _, err := ValidateTitle(strings.Repeat("x", TitleMaxLen+1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("overlong title accepted")
	}
	if _, err := ValidateTitle("   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank title accepted")
	}
}

func TestValidateDescription(t *testing.T) {
	if _, err := ValidateDescription(strings.Repeat("y", DescMaxLen)); err != nil {
		t.Fatalf("max-length description rejected: %v", err)
	}
	if _, err := ValidateDescription(strings.Repeat("y", DescMaxLen+1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("overlong description accepted")
	}
}

func TestParseYear(t *testing.T) {
	if y, err := ParseYear("2025"); err != nil || y != 2025 {
		t.Fatalf("2025: got %d, %v", y, err)
	}
	for _, s := range []string{"2019", "2101", "soon", ""} {
		if _, err := ParseYear(s); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q accepted", s)
		}
	}
}

func TestParseMonth(t *testing.T) {
	if m, err := ParseMonth("02"); err != nil || m != 2 {
		t.Fatalf("02: got %d, %v", m, err)
	}
	for _, s := range []string{"0", "13", "feb"} {
		if _, err := ParseMonth(s); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q accepted", s)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct{ y, m, want int }{
		{2025, 4, 30},
		{2025, 1, 31},
		{2025, 2, 28},
		{2024, 2, 29}, // leap
		{2100, 2, 28}, // century, not leap
		{2000, 2, 29}, // 400-year leap
	}
	for _, c := range cases {
		if got := DaysInMonth(c.y, c.m); got != c.want {
			t.Fatalf("%d-%02d: want %d, got %d", c.y, c.m, c.want, got)
		}
	}
}

func TestParseDay_BoundedByMonth(t *testing.T) {
	// April 2025 has 30 days; 31 must be rejected.
	if _, err := ParseDay("31", 2025, 4); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("April 31 accepted")
	}
	if d, err := ParseDay("30", 2025, 4); err != nil || d != 30 {
		t.Fatalf("April 30: got %d, %v", d, err)
	}
	if d, err := ParseDay("29", 2024, 2); err != nil || d != 29 {
		t.Fatalf("leap Feb 29: got %d, %v", d, err)
	}
	if _, err := ParseDay("29", 2025, 2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("non-leap Feb 29 accepted")
	}
}

func TestParseHourMinute(t *testing.T) {
	h, m, err := ParseHourMinute("14:30")
	if err != nil || h != 14 || m != 30 {
		t.Fatalf("14:30: got %d:%d, %v", h, m, err)
	}
	for _, s := range []string{"24:00", "12:60", "noon", "12", "12:3:4"} {
		if _, _, err := ParseHourMinute(s); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q accepted", s)
		}
	}
}

func TestLocalDateTime(t *testing.T) {
	if got := LocalDateTime(2025, 6, 1, 9, 5); got != "2025-06-01 09:05" {
		t.Fatalf("got %q", got)
	}
}

func TestNearestZone(t *testing.T) {
	tz, city := NearestZone(55.75, 37.62)
	if tz != "Europe/Moscow" || city != "Moscow" {
		t.Fatalf("got %s / %s", tz, city)
	}
	tz, _ = NearestZone(43.0, 132.0)
	if tz != "Asia/Vladivostok" {
		t.Fatalf("got %s", tz)
	}
}
