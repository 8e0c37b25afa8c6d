package calendar

import (
	"testing"
	"time"
)

func TestFloorMod(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b, want int
	}{
		{0, 18, 0},
		{17, 18, 17},
		{18, 18, 0},
		{19, 18, 1},
		{-1, 18, 17},
		{-18, 18, 0},
		{-19, 18, 17},
		{-37, 18, 17},
		{5, 1, 0},
	}
	for _, tt := range tests {
		if got := FloorMod(tt.a, tt.b); got != tt.want {
			t.Fatalf("FloorMod(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCyclePositionBeforeStart(t *testing.T) {
	t.Parallel()
	start := NewDate(2024, time.January, 1)

	// The day before the start of an 18-day cycle is the last position, never -1.
	if got := CyclePosition(NewDate(2023, time.December, 31), start, 18); got != 17 {
		t.Fatalf("CyclePosition(2023-12-31) = %d, want 17", got)
	}
	if got := CyclePosition(start, start, 18); got != 0 {
		t.Fatalf("CyclePosition(start) = %d, want 0", got)
	}
	if got := CyclePosition(NewDate(2024, time.January, 19), start, 18); got != 0 {
		t.Fatalf("CyclePosition(start+18) = %d, want 0", got)
	}
}

func TestCyclePositionAlwaysInRange(t *testing.T) {
	t.Parallel()
	start := NewDate(2018, time.November, 7)
	for _, cycle := range []int{1, 2, 5, 18, 28} {
		d := start.AddDays(-400)
		for i := 0; i < 900; i++ {
			pos := CyclePosition(d, start, cycle)
			if pos < 0 || pos >= cycle {
				t.Fatalf("CyclePosition(%s, cycle=%d) = %d, out of range", d, cycle, pos)
			}
			d = d.AddDays(1)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b Date
		want int
	}{
		{NewDate(2024, time.January, 1), NewDate(2024, time.January, 1), 0},
		{NewDate(2024, time.January, 1), NewDate(2024, time.January, 31), 30},
		{NewDate(2024, time.January, 31), NewDate(2024, time.January, 1), -30},
		// 2024 is a leap year.
		{NewDate(2024, time.February, 28), NewDate(2024, time.March, 1), 2},
		{NewDate(2023, time.February, 28), NewDate(2023, time.March, 1), 1},
		{NewDate(2018, time.November, 7), NewDate(2018, time.November, 25), 18},
	}
	for _, tt := range tests {
		if got := DaysBetween(tt.a, tt.b); got != tt.want {
			t.Fatalf("DaysBetween(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	t.Parallel()
	d, err := ParseDate("2018-11-07")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if d != NewDate(2018, time.November, 7) {
		t.Fatalf("ParseDate = %v", d)
	}
	if d.String() != "2018-11-07" {
		t.Fatalf("String = %q", d.String())
	}
	if _, err := ParseDate("2018-13-07"); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func TestCheckRange(t *testing.T) {
	t.Parallel()
	if err := CheckRange(NewDate(2024, time.June, 15)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckRange(NewDate(1899, time.December, 31)); err == nil {
		t.Fatal("expected out-of-range error before MinYear")
	}
	if err := CheckRange(NewDate(2201, time.January, 1)); err == nil {
		t.Fatal("expected out-of-range error after MaxYear")
	}
	// Non-normalized dates are rejected, not silently rolled over.
	if err := CheckRange(NewDate(2023, time.February, 29)); err == nil {
		t.Fatal("expected error for 2023-02-29")
	}
}

func TestAddDaysAcrossYearBoundary(t *testing.T) {
	t.Parallel()
	d := NewDate(2018, time.December, 30).AddDays(3)
	if d != NewDate(2019, time.January, 2) {
		t.Fatalf("AddDays = %v", d)
	}
}
