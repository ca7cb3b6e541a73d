package period

import (
	"testing"
	"time"
)

func karachi(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Karachi")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestDaysInclusive(t *testing.T) {
	loc := karachi(t)
	from, to, err := Days("2026-03-01", "2026-03-02", loc)
	if err != nil {
		t.Fatalf("Days: %v", err)
	}
	// Karachi is UTC+5
	if want := time.Date(2026, 2, 28, 19, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("from = %v, want %v", from, want)
	}
	if want := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}

	if _, _, err := Days("2026-03-05", "2026-03-01", loc); err == nil {
		t.Error("reversed range should fail")
	}
	if _, _, err := Days("03/01/2026", "", loc); err == nil {
		t.Error("bad layout should fail")
	}
	if f, to, err := Days("", "", loc); err != nil || f != nil || to != nil {
		t.Errorf("open range = %v %v %v", f, to, err)
	}
}

func TestISOWeek(t *testing.T) {
	r, err := ISOWeek(2026, 1, time.UTC)
	if err != nil {
		t.Fatalf("ISOWeek: %v", err)
	}
	// 2026-01-01 is a Thursday, so week 1 starts Monday 2025-12-29.
	if want := time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC); !r.From.Equal(want) {
		t.Errorf("from = %v, want %v", r.From, want)
	}
	if got := r.To.Sub(r.From); got != 7*24*time.Hour {
		t.Errorf("span = %v", got)
	}

	if _, err := ISOWeek(2025, 53, time.UTC); err == nil {
		t.Error("2025 has 52 ISO weeks")
	}
	if _, err := ISOWeek(2026, 53, time.UTC); err != nil {
		t.Errorf("2026 has 53 ISO weeks: %v", err)
	}
	if _, err := ISOWeek(2026, 0, time.UTC); err == nil {
		t.Error("week 0 should fail")
	}
}

func TestMonthAndEachDay(t *testing.T) {
	r, err := Month(2024, 2, time.UTC)
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	days := EachDay(r, time.UTC)
	if len(days) != 29 || days[0] != "2024-02-01" || days[28] != "2024-02-29" {
		t.Errorf("EachDay = %v", days)
	}
	if _, err := Month(2024, 13, time.UTC); err == nil {
		t.Error("month 13 should fail")
	}
}
