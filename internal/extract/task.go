package extract

import (
	"regexp"
	"strconv"
	"strings"

	"taskmind/internal/domain"
)

var (
	taskParenRe = regexp.MustCompile(`(?i)\btask\b[^()]*\(([^)]+)\)`)
	taskCommaRe = regexp.MustCompile(`(?i)\b(?:create|make|add)\s+(?:a\s+|new\s+)?task\s+(?:called\s+|titled\s+|named\s+)?(.+)$`)
)

var taskTitleRules = []fieldRule{
	{field: "title", re: regexp.MustCompile(`(?i)\btask\s+(?:title|name)\s*(?:is|:)\s*(.+)$`), value: group1},
	{field: "title", re: regexp.MustCompile(`(?i)\btask\s*(?:is|:)\s*"([^"]+)"`), value: group1},
	{field: "title", re: regexp.MustCompile(`(?i)\bcall(?:ed)?\s+(?:it|the task)\s+(.+)$`), value: group1},
}

var taskProjectRules = []fieldRule{
	{field: "project", re: regexp.MustCompile(`(?i)\b(?:in|for|under)\s+(?:the\s+)?project\s+([\w &-]+)`), value: group1},
	{field: "project", re: regexp.MustCompile(`(?i)\bproject\s*(?:is|:)\s*([\w &-]+)`), value: group1},
}

var taskSprintRules = []fieldRule{
	{field: "sprint", re: regexp.MustCompile(`(?i)\b(?:in|for)\s+(?:the\s+)?sprint\s+([\w &-]+)`), value: group1},
	{field: "sprint", re: regexp.MustCompile(`(?i)\bsprint\s*(?:is|:)\s*([\w &-]+)`), value: group1},
}

var taskAssigneeRules = []fieldRule{
	{field: "assignee", re: regexp.MustCompile(`(?i)\bassign(?:ed)?\s+(?:it\s+)?to\s+([\w@. -]+)`), value: group1},
	{field: "assignee", re: regexp.MustCompile(`(?i)\bassignee\s*(?:is|:)\s*([\w@. -]+)`), value: group1},
}

var taskDueDateRules = []fieldRule{
	{field: "due_date", re: regexp.MustCompile(`(?i)\bdue\b[^\d]*?(\d{1,2}(?:st|nd|rd|th)?\s+[a-z]+\.?,?\s*\d{0,4})`), value: group1},
	{field: "due_date", re: regexp.MustCompile(`(?i)\b(?:due|by|until)\b[^\w]*([a-z]+\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s*\d{0,4})`), value: group1},
	{field: "due_date", re: regexp.MustCompile(`(?i)\b(?:due|by|until)\b[^\d]*(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{1,2}-\d{1,2})`), value: group1},
}

var taskEstimateRules = []fieldRule{
	{field: "estimate", re: regexp.MustCompile(`(?i)\bestimate[d]?\s*(?:at|:|is)?\s*(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)?\b`), value: group1},
	{field: "estimate", re: regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`), value: group1},
}

var taskPriorityRules = []fieldRule{
	{field: "priority", re: regexp.MustCompile(`(?i)\b(low|medium|high|urgent)\s+priority\b`), value: lower1},
	{field: "priority", re: regexp.MustCompile(`(?i)\bpriority\s*(?:is|:)\s*(low|medium|high|urgent)\b`), value: lower1},
}

// TaskExtractor pulls a TaskDraft out of recent conversation messages.
type TaskExtractor struct {
	Dates DateNormalizer
}

// Extract reverses the full message list, then filters to user turns, and
// scans in that order. The @-sign routes an assignee capture to the email
// variant; once either variant is set, neither is overwritten.
func (e TaskExtractor) Extract(messages []domain.Message) TaskDraft {
	var d TaskDraft

	reversed := make([]domain.Message, len(messages))
	for i, m := range messages {
		reversed[len(messages)-1-i] = m
	}
	for _, m := range reversed {
		if m.Role != "user" {
			continue
		}
		e.scanMessage(&d, strings.TrimSpace(m.Content))
	}

	if d.DueDate != "" && !IsCanonical(d.DueDate) {
		if iso, ok := e.Dates.Parse(d.DueDate); ok {
			d.DueDate = iso
		}
	}
	return d
}

func (e TaskExtractor) scanMessage(d *TaskDraft, msg string) {
	if m := taskParenRe.FindStringSubmatch(msg); m != nil {
		e.fillPositional(d, strings.Split(m[1], ","))
	} else if m := taskCommaRe.FindStringSubmatch(msg); m != nil {
		rest := strings.TrimSpace(m[1])
		if parts := strings.Split(rest, ","); len(parts) >= 2 {
			// Comma form without parentheses: title leads, then the same
			// positional tail as the parenthesized form, minus project/sprint.
			if d.Title == "" {
				d.Title = cleanField(parts[0])
			}
		} else if d.Title == "" {
			d.Title = cleanField(rest)
		}
	}

	runRules(msg, taskTitleRules, d.has, d.set)
	runRules(msg, taskProjectRules, d.has, d.set)
	runRules(msg, taskSprintRules, d.has, d.set)
	runRules(msg, taskAssigneeRules, d.has, d.set)
	runRules(msg, taskDueDateRules, d.has, e.setNormalized(d))
	runRules(msg, taskEstimateRules, d.has, d.set)
	runRules(msg, taskPriorityRules, d.has, d.set)
}

// fillPositional assigns the six parenthesized slots:
// project, sprint, title, assignee, due date, estimate.
func (e TaskExtractor) fillPositional(d *TaskDraft, parts []string) {
	for i, p := range parts {
		v := cleanField(p)
		if v == "" {
			continue
		}
		switch i {
		case 0:
			if d.ProjectName == "" {
				d.ProjectName = v
			}
		case 1:
			if d.SprintName == "" {
				d.SprintName = v
			}
		case 2:
			if d.Title == "" {
				d.Title = v
			}
		case 3:
			d.setAssignee(v)
		case 4:
			if d.DueDate == "" {
				if iso, ok := e.Dates.Parse(v); ok {
					d.DueDate = iso
				} else {
					d.DueDate = v
				}
			}
		case 5:
			if d.EstimatedHours == 0 {
				if h, err := strconv.ParseFloat(v, 64); err == nil && h >= 0 {
					d.EstimatedHours = h
				}
			}
		}
	}
}

func (d *TaskDraft) has(field string) bool {
	switch field {
	case "title":
		return d.Title != ""
	case "project":
		return d.ProjectName != ""
	case "sprint":
		return d.SprintName != ""
	case "assignee":
		return d.Assignee.Kind != AssigneeNone
	case "due_date":
		return d.DueDate != ""
	case "estimate":
		return d.EstimatedHours != 0
	case "priority":
		return d.Priority != ""
	}
	return true
}

func (d *TaskDraft) set(field, value string) {
	value = cleanField(value)
	switch field {
	case "title":
		d.Title = value
	case "project":
		d.ProjectName = value
	case "sprint":
		d.SprintName = value
	case "assignee":
		d.setAssignee(value)
	case "due_date":
		d.DueDate = value
	case "estimate":
		if h, err := strconv.ParseFloat(value, 64); err == nil && h >= 0 {
			d.EstimatedHours = h
		}
	case "priority":
		d.Priority = value
	}
}

func (d *TaskDraft) setAssignee(value string) {
	if d.Assignee.Kind != AssigneeNone {
		return
	}
	value = cleanField(value)
	if value == "" {
		return
	}
	if strings.Contains(value, "@") {
		d.Assignee = Assignee{Kind: AssigneeByEmail, Value: value}
	} else {
		d.Assignee = Assignee{Kind: AssigneeByName, Value: value}
	}
}

func (e TaskExtractor) setNormalized(d *TaskDraft) func(field, value string) {
	return func(field, value string) {
		if field == "due_date" {
			if iso, ok := e.Dates.Parse(value); ok {
				value = iso
			}
		}
		d.set(field, value)
	}
}
