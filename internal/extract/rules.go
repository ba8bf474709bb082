package extract

import "regexp"

// fieldRule binds a pattern to the draft field it fills. Rules are evaluated
// in order by runRules; the engine enforces first-match-wins so precedence
// lives in one loop instead of being re-implemented per field.
type fieldRule struct {
	field string
	re    *regexp.Regexp
	// value extracts the field value from the submatches; returning "" means
	// the match is rejected and the field stays open.
	value func(m []string) string
}

func group1(m []string) string { return m[1] }

// runRules applies rules to one message. A field already set in the draft is
// never overwritten, so the most recent message to match a field wins when
// messages are scanned newest-first.
func runRules(msg string, rules []fieldRule, has func(field string) bool, set func(field, value string)) {
	for _, r := range rules {
		if has(r.field) {
			continue
		}
		m := r.re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		if v := r.value(m); v != "" {
			set(r.field, v)
		}
	}
}
