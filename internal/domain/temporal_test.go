package domain

import (
	"errors"
	"testing"
	"time"
)

func TestToCanonical_MoscowAfternoon(t *testing.T) {
	// 14:30 in Moscow (UTC+3, no DST) is 11:30 UTC.
	got, err := ToCanonical("2025-06-01 14:30", "Europe/Moscow")
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	want := time.Date(2025, time.June, 1, 11, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestToCanonical_RoundTrip(t *testing.T) {
	cases := []struct {
		local string
		zone  string
	}{
		{"2025-06-01 14:30", "Europe/Moscow"},
		{"2025-01-15 00:00", "Asia/Kamchatka"},
		{"2026-12-31 23:59", "Europe/Kaliningrad"},
		{"2025-07-04 09:05", "UTC"},
	}
	for _, c := range cases {
		utc, err := ToCanonical(c.local, c.zone)
		if err != nil {
			t.Fatalf("ToCanonical(%q, %q): %v", c.local, c.zone, err)
		}
		back, err := ToLocal(utc, c.zone)
		if err != nil {
			t.Fatalf("ToLocal: %v", err)
		}
		if back != c.local {
			t.Fatalf("round trip %q in %q: got %q", c.local, c.zone, back)
		}
	}
}

func TestToCanonical_Invalid(t *testing.T) {
	if _, err := ToCanonical("tomorrow at noon", "Europe/Moscow"); !errors.Is(err, ErrInvalidTimeSpec) {
		t.Fatalf("want ErrInvalidTimeSpec, got %v", err)
	}
	if _, err := ToCanonical("2025-06-01 14:30", "Mars/Olympus"); !errors.Is(err, ErrInvalidTimeSpec) {
		t.Fatalf("want ErrInvalidTimeSpec for bad zone, got %v", err)
	}
}

func TestToCanonical_SameSpecAcrossZones(t *testing.T) {
	// The same wall clock normalized in Yekaterinburg (+5) lands two hours
	// earlier in UTC than in Moscow (+3).
	msk, err := ToCanonical("2025-06-01 14:30", "Europe/Moscow")
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	ekb, err := ToCanonical("2025-06-01 14:30", "Asia/Yekaterinburg")
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	if want := time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC); !ekb.Equal(want) {
		t.Fatalf("want %v UTC, got %v", want, ekb)
	}
	if got := msk.Sub(ekb); got != -2*time.Hour {
		t.Fatalf("zone delta: want -2h, got %v", got)
	}
}

func TestValidateZone(t *testing.T) {
	if _, err := ValidateZone("Europe/Moscow"); err != nil {
		t.Fatalf("valid zone rejected: %v", err)
	}
	if _, err := ValidateZone("Nowhere/Nothing"); !errors.Is(err, ErrInvalidTimeSpec) {
		t.Fatalf("want ErrInvalidTimeSpec, got %v", err)
	}
}
