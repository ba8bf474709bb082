package extract

import (
	"fmt"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
}

func TestParseMonthNameBothOrders(t *testing.T) {
	n := DateNormalizer{Now: fixedNow}
	cases := map[string]string{
		"10 jan 2025":      "2025-01-10",
		"jan 10 2025":      "2025-01-10",
		"10 January 2025":  "2025-01-10",
		"January 10, 2025": "2025-01-10",
		"1st march 2024":   "2024-03-01",
		"march 1st 2024":   "2024-03-01",
		"22nd nov 2026":    "2026-11-22",
		"3rd of may 2025":  "2025-05-03",
	}
	for in, want := range cases {
		got, ok := n.Parse(in)
		if !ok || got != want {
			t.Errorf("Parse(%q) = %q,%v, want %q", in, got, ok, want)
		}
	}
}

func TestParseMissingYearDefaultsToCurrent(t *testing.T) {
	n := DateNormalizer{Now: fixedNow}
	got, ok := n.Parse("10 jan")
	if !ok || got != "2025-01-10" {
		t.Fatalf("Parse(\"10 jan\") = %q,%v, want current-year default", got, ok)
	}
}

func TestParseSlashAndDashPatterns(t *testing.T) {
	n := DateNormalizer{Now: fixedNow}
	// Slash dates are day-first.
	if got, ok := n.Parse("25/12/2025"); !ok || got != "2025-12-25" {
		t.Fatalf("slash parse = %q,%v", got, ok)
	}
	if got, ok := n.Parse("2025-12-25"); !ok || got != "2025-12-25" {
		t.Fatalf("dash parse = %q,%v", got, ok)
	}
}

func TestParseRejectsInvalidCalendarDates(t *testing.T) {
	n := DateNormalizer{Now: fixedNow}
	for _, in := range []string{"31 feb 2024", "feb 30 2024", "32/01/2025", "2025-13-01", "2025-02-30"} {
		if got, ok := n.Parse(in); ok {
			t.Errorf("Parse(%q) = %q, want rejection", in, got)
		}
	}
}

func TestParseNoDate(t *testing.T) {
	n := DateNormalizer{Now: fixedNow}
	for _, in := range []string{"", "soon", "next sprint", "hello world"} {
		if got, ok := n.Parse(in); ok {
			t.Errorf("Parse(%q) = %q, want no match", in, got)
		}
	}
}

// Round-trip: a valid (day, month, year) triple parses to the same calendar
// date regardless of ordinal suffix or day/month order.
func TestParseRoundTrip(t *testing.T) {
	n := DateNormalizer{Now: fixedNow}
	days := []int{1, 2, 3, 15, 21, 22, 23, 28}
	months := []string{"jan", "march", "jul", "december"}
	suffix := map[int]string{1: "st", 2: "nd", 3: "rd", 21: "st", 22: "nd", 23: "rd"}
	for _, day := range days {
		for _, month := range months {
			sfx := suffix[day]
			if sfx == "" {
				sfx = "th"
			}
			variants := []string{
				fmt.Sprintf("%d %s 2025", day, month),
				fmt.Sprintf("%d%s %s 2025", day, sfx, month),
				fmt.Sprintf("%s %d 2025", month, day),
				fmt.Sprintf("%s %d%s 2025", month, day, sfx),
			}
			var first string
			for _, v := range variants {
				got, ok := n.Parse(v)
				if !ok {
					t.Fatalf("Parse(%q) failed", v)
				}
				if first == "" {
					first = got
				} else if got != first {
					t.Fatalf("Parse(%q) = %q, other variant gave %q", v, got, first)
				}
			}
		}
	}
}
