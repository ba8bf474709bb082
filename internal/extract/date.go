package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateNormalizer turns free-form date text into canonical YYYY-MM-DD strings.
// Now is injectable so year-defaulting is testable; nil means time.Now.
type DateNormalizer struct {
	Now func() time.Time
}

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	ordinalRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	dayMonthRe   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:of\s+)?([a-z]+)\.?,?\s*(\d{2,4})?\b`)
	monthDayRe   = regexp.MustCompile(`(?i)\b([a-z]+)\.?\s+(\d{1,2})\b,?\s*(\d{2,4})?\b`)
	slashDateRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	isoDateRe    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	isoCanonical = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

var nativeLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
}

func (n DateNormalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// IsCanonical reports whether s is already a YYYY-MM-DD string.
func IsCanonical(s string) bool {
	return isoCanonical.MatchString(s)
}

// Parse normalizes raw into YYYY-MM-DD. It tries, in order: month-name
// patterns in both day/month orders, native layouts on the original text,
// DD/MM/YYYY, and YYYY-MM-DD. Invalid calendar dates are rejected rather
// than clamped. A missing or two-digit year defaults to the current year.
func (n DateNormalizer) Parse(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}
	stripped := ordinalRe.ReplaceAllString(text, "$1")

	if iso, ok := n.parseMonthName(stripped); ok {
		return iso, true
	}
	for _, layout := range nativeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	if m := slashDateRe.FindStringSubmatch(stripped); m != nil {
		if iso, ok := n.makeDate(m[3], m[2], m[1]); ok {
			return iso, true
		}
	}
	if m := isoDateRe.FindStringSubmatch(stripped); m != nil {
		if iso, ok := n.makeDate(m[1], m[2], m[3]); ok {
			return iso, true
		}
	}
	return "", false
}

// parseMonthName scans every candidate, not just the first regex hit, so a
// non-month word followed by a number ("deadline 10 jan") does not shadow
// the real date further along.
func (n DateNormalizer) parseMonthName(text string) (string, bool) {
	for _, m := range dayMonthRe.FindAllStringSubmatch(text, -1) {
		if month, ok := monthsByName[strings.ToLower(m[2])]; ok {
			if iso, ok := n.makeMonthDate(m[3], month, m[1]); ok {
				return iso, true
			}
		}
	}
	for _, m := range monthDayRe.FindAllStringSubmatch(text, -1) {
		if month, ok := monthsByName[strings.ToLower(m[1])]; ok {
			if iso, ok := n.makeMonthDate(m[3], month, m[2]); ok {
				return iso, true
			}
		}
	}
	return "", false
}

func (n DateNormalizer) makeMonthDate(yearStr string, month time.Month, dayStr string) (string, bool) {
	return n.validate(n.resolveYear(yearStr), int(month), atoi(dayStr))
}

func (n DateNormalizer) makeDate(yearStr, monthStr, dayStr string) (string, bool) {
	return n.validate(n.resolveYear(yearStr), atoi(monthStr), atoi(dayStr))
}

// resolveYear defaults missing and two-digit years to the current year.
func (n DateNormalizer) resolveYear(s string) int {
	if len(s) == 4 {
		return atoi(s)
	}
	return n.now().Year()
}

// validate builds the date and rejects it when time.Date had to normalize,
// so "31 feb" fails instead of becoming March 2.
func (n DateNormalizer) validate(year, month, day int) (string, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
