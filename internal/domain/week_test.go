package domain

import (
	"testing"
	"time"
)

func TestISOWeekOf_YearBoundary(t *testing.T) {
	// 2024-12-30 is a Monday belonging to ISO week 1 of 2025.
	year, week := ISOWeekOf(time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC))
	if year != 2025 || week != 1 {
		t.Errorf("ISOWeekOf(2024-12-30) = (%d, %d), want (2025, 1)", year, week)
	}

	// 2027-01-01 is a Friday still in ISO week 53 of 2026.
	year, week = ISOWeekOf(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	if year != 2026 || week != 53 {
		t.Errorf("ISOWeekOf(2027-01-01) = (%d, %d), want (2026, 53)", year, week)
	}
}

func TestPreviousISOWeek_AcrossYearBoundary(t *testing.T) {
	// The week before ISO week 1 of 2025 is week 52 of 2024.
	year, week := PreviousISOWeek(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))
	if year != 2024 || week != 52 {
		t.Errorf("PreviousISOWeek = (%d, %d), want (2024, 52)", year, week)
	}
}

func TestSameISOWeek(t *testing.T) {
	if !SameISOWeek(2025, 10, 2025, 10) {
		t.Error("identical week pairs should match")
	}
	if SameISOWeek(2024, 10, 2025, 10) {
		t.Error("same week number in different ISO years should not match")
	}
}

func TestStartOfMonth(t *testing.T) {
	got := StartOfMonth(time.Date(2025, 3, 17, 22, 45, 0, 0, time.UTC))
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartOfMonth = %v, want %v", got, want)
	}
}

func TestStartOfNextMonth_DecemberRollsOver(t *testing.T) {
	got := StartOfNextMonth(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC))
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartOfNextMonth = %v, want %v", got, want)
	}
}
