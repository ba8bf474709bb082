package extract

import (
	"regexp"
	"strings"

	"taskmind/internal/domain"
)

// projectScanWindow bounds how far back extraction looks; older messages are
// assumed to belong to a different request.
const projectScanWindow = 10

// projectIntentWindow is the shorter window used only for classifying the
// conversation as project-creation intent.
const projectIntentWindow = 5

var (
	projectIntentRe = regexp.MustCompile(`(?i)\b(?:create|make|add|start|set up|new)\b[^.?!]*\bproject\b`)

	projectParenRe = regexp.MustCompile(`(?i)\bproject\b[^()]*\(([^)]+)\)`)
	projectCommaRe = regexp.MustCompile(`(?i)\b(?:create|make|add|start|set up)\s+(?:a\s+|new\s+)?project\s+(?:called\s+|named\s+)?(.+)$`)

	questionRe = regexp.MustCompile(`(?i)\?|\bwould you like\b|\bwhat\b|\bthis project\b`)
	commandRe  = regexp.MustCompile(`(?i)\b(?:create|make|add|start|delete|update|show|list)\b`)
)

var projectNameRules = []fieldRule{
	{field: "name", re: regexp.MustCompile(`(?i)\bproject name\s*(?:is|:)\s*(.+)$`), value: group1},
	{field: "name", re: regexp.MustCompile(`(?i)\bname of the project\s*(?:is|:)?\s*(.+)$`), value: group1},
	{field: "name", re: regexp.MustCompile(`(?i)\bcall(?:ed)?\s+(?:it|the project)\s+(.+)$`), value: group1},
}

// Four keyword-anchored deadline shapes tried in order, then a keyword-free
// bare date as last resort.
var projectDeadlineRules = []fieldRule{
	{field: "deadline", re: regexp.MustCompile(`(?i)\b(?:deadline|due)\b[^\d]*?(\d{1,2}(?:st|nd|rd|th)?\s+[a-z]+\.?,?\s*\d{0,4})`), value: group1},
	{field: "deadline", re: regexp.MustCompile(`(?i)\b(?:deadline|due|by|until)\b[^\w]*([a-z]+\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s*\d{0,4})`), value: group1},
	{field: "deadline", re: regexp.MustCompile(`(?i)\b(?:deadline|due|by|until)\b[^\d]*(\d{1,2}/\d{1,2}/\d{2,4})`), value: group1},
	{field: "deadline", re: regexp.MustCompile(`(?i)\b(?:deadline|due|by|until)\b[^\d]*(\d{4}-\d{1,2}-\d{1,2})`), value: group1},
	{field: "deadline", re: regexp.MustCompile(`(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}/\d{1,2}/\d{2,4})`), value: group1},
}

var projectWorkspaceRules = []fieldRule{
	{field: "workspace", re: regexp.MustCompile(`(?i)\bin\s+(?:the\s+)?([\w &-]+?)\s+workspace\b`), value: group1},
	{field: "workspace", re: regexp.MustCompile(`(?i)\bworkspace\s*(?:is|:)\s*([\w &-]+)`), value: group1},
	{field: "workspace", re: regexp.MustCompile(`(?i)\bbelongs?\s+to\s+(?:the\s+)?([\w &-]+)`), value: group1},
}

var projectPriorityRule = []fieldRule{
	{field: "priority", re: regexp.MustCompile(`(?i)\b(low|medium|high|urgent)\s+priority\b`), value: lower1},
	{field: "priority", re: regexp.MustCompile(`(?i)\bpriority\s*(?:is|:)\s*(low|medium|high|urgent)\b`), value: lower1},
}

func lower1(m []string) string { return strings.ToLower(m[1]) }

// ProjectExtractor pulls a ProjectDraft out of recent conversation messages.
type ProjectExtractor struct {
	Dates DateNormalizer
}

// Extract scans the last messages, user turns only, newest first. A field
// set from a recent message is never overwritten by an older one.
func (e ProjectExtractor) Extract(messages []domain.Message) ProjectDraft {
	var d ProjectDraft

	window := messages
	if len(window) > projectScanWindow {
		window = window[len(window)-projectScanWindow:]
	}
	var userMsgs []string
	for _, m := range window {
		if m.Role == "user" {
			userMsgs = append(userMsgs, strings.TrimSpace(m.Content))
		}
	}
	intent := e.hasCreationIntent(messages)

	for i := len(userMsgs) - 1; i >= 0; i-- {
		if stop := e.scanMessage(&d, userMsgs[i], intent); stop {
			break
		}
		if d.Name != "" && d.Deadline != "" && d.WorkspaceName != "" {
			break
		}
	}

	if d.Deadline != "" && !IsCanonical(d.Deadline) {
		if iso, ok := e.Dates.Parse(d.Deadline); ok {
			d.Deadline = iso
		}
	}
	return d
}

func (e ProjectExtractor) hasCreationIntent(messages []domain.Message) bool {
	start := len(messages) - projectIntentWindow
	if start < 0 {
		start = 0
	}
	for _, m := range messages[start:] {
		if projectIntentRe.MatchString(m.Content) {
			return true
		}
	}
	return false
}

// scanMessage applies the extraction cascade to one message. It returns true
// when the follow-up heuristic fired, which ends the whole scan.
func (e ProjectExtractor) scanMessage(d *ProjectDraft, msg string, intent bool) bool {
	if m := projectParenRe.FindStringSubmatch(msg); m != nil {
		e.fillPositional(d, strings.Split(m[1], ","))
	} else {
		// Comma form works with or without a "create a project" prefix, but
		// only while all three positional fields are still open.
		text := msg
		if m := projectCommaRe.FindStringSubmatch(msg); m != nil {
			text = strings.TrimSpace(m[1])
		}
		if parts := strings.Split(text, ","); len(parts) >= 2 {
			// Unanchored comma replies only count in a conversation already
			// classified as project creation.
			if (text != msg || intent) && d.Name == "" && d.Deadline == "" && d.WorkspaceName == "" {
				e.fillPositional(d, parts)
			}
		} else if text != msg && d.Name == "" {
			// Bare form: the remainder is the name, unless it is a date.
			if _, isDate := e.Dates.Parse(text); !isDate {
				d.Name = cleanField(text)
			}
		}
	}

	runRules(msg, projectNameRules, d.has, d.set)
	runRules(msg, projectDeadlineRules, d.has, e.setNormalized(d))
	runRules(msg, projectWorkspaceRules, d.has, d.set)
	runRules(msg, projectPriorityRule, d.has, d.set)

	// Follow-up heuristic: in a project-creation conversation a short plain
	// reply is taken as the name, and the scan stops here.
	if intent && d.Name == "" && len(msg) > 0 && len(msg) < 100 &&
		!questionRe.MatchString(msg) && !commandRe.MatchString(msg) {
		d.Name = cleanField(msg)
		return true
	}
	return false
}

// fillPositional assigns comma slots: 0 name, 1 deadline, 2 workspace.
func (e ProjectExtractor) fillPositional(d *ProjectDraft, parts []string) {
	for i, p := range parts {
		v := cleanField(p)
		if v == "" {
			continue
		}
		switch i {
		case 0:
			if d.Name == "" {
				d.Name = v
			}
		case 1:
			if d.Deadline == "" {
				if iso, ok := e.Dates.Parse(v); ok {
					d.Deadline = iso
				} else {
					d.Deadline = v
				}
			}
		case 2:
			if d.WorkspaceName == "" {
				d.WorkspaceName = v
			}
		}
	}
}

func (d *ProjectDraft) has(field string) bool {
	switch field {
	case "name":
		return d.Name != ""
	case "deadline":
		return d.Deadline != ""
	case "workspace":
		return d.WorkspaceName != ""
	case "priority":
		return d.Priority != ""
	}
	return true
}

func (d *ProjectDraft) set(field, value string) {
	value = cleanField(value)
	switch field {
	case "name":
		if !questionRe.MatchString(value) {
			d.Name = value
		}
	case "deadline":
		d.Deadline = value
	case "workspace":
		d.WorkspaceName = value
	case "priority":
		d.Priority = value
	}
}

// setNormalized wraps set so deadline candidates go through the normalizer,
// falling back to the raw capture when parsing fails.
func (e ProjectExtractor) setNormalized(d *ProjectDraft) func(field, value string) {
	return func(field, value string) {
		if field == "deadline" {
			if iso, ok := e.Dates.Parse(value); ok {
				value = iso
			}
		}
		d.set(field, value)
	}
}

func cleanField(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'.`)
}
