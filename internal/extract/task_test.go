package extract

import (
	"reflect"
	"testing"

	"taskmind/internal/domain"
)

func newTaskExtractor() TaskExtractor {
	return TaskExtractor{Dates: DateNormalizer{Now: fixedNow}}
}

func TestTaskParenthesizedForm(t *testing.T) {
	e := newTaskExtractor()
	d := e.Extract([]domain.Message{
		userMsg("create a task (Apollo, Sprint 1, Fix login bug, alice, 10 jan 2025, 4)"),
	})
	if d.ProjectName != "Apollo" {
		t.Errorf("project = %q", d.ProjectName)
	}
	if d.SprintName != "Sprint 1" {
		t.Errorf("sprint = %q", d.SprintName)
	}
	if d.Title != "Fix login bug" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Assignee.Kind != AssigneeByName || d.Assignee.Value != "alice" {
		t.Errorf("assignee = %+v", d.Assignee)
	}
	if d.DueDate != "2025-01-10" {
		t.Errorf("due date = %q", d.DueDate)
	}
	if d.EstimatedHours != 4 {
		t.Errorf("estimate = %v", d.EstimatedHours)
	}
}

func TestTaskAssigneeEmailRouting(t *testing.T) {
	e := newTaskExtractor()
	d := e.Extract([]domain.Message{
		userMsg("create a task Fix login bug and assign it to alice@example.com"),
	})
	if d.Assignee.Kind != AssigneeByEmail || d.Assignee.Value != "alice@example.com" {
		t.Fatalf("assignee = %+v, want email variant", d.Assignee)
	}
}

func TestTaskAssigneeVariantsAreExclusive(t *testing.T) {
	e := newTaskExtractor()
	d := e.Extract([]domain.Message{
		userMsg("assign it to bob"),
		userMsg("assign it to alice@example.com"),
	})
	// Newest message wins; the older name capture must not overwrite it.
	if d.Assignee.Kind != AssigneeByEmail || d.Assignee.Value != "alice@example.com" {
		t.Fatalf("assignee = %+v", d.Assignee)
	}
}

func TestTaskKeywordCascade(t *testing.T) {
	e := newTaskExtractor()
	d := e.Extract([]domain.Message{
		userMsg(`create a task called "Ship release notes" in the project Apollo, due 10 jan 2025, estimated at 2.5 hours, high priority`),
	})
	if d.ProjectName != "Apollo" {
		t.Errorf("project = %q", d.ProjectName)
	}
	if d.DueDate != "2025-01-10" {
		t.Errorf("due date = %q", d.DueDate)
	}
	if d.EstimatedHours != 2.5 {
		t.Errorf("estimate = %v", d.EstimatedHours)
	}
	if d.Priority != "high" {
		t.Errorf("priority = %q", d.Priority)
	}
}

func TestTaskMostRecentMatchWins(t *testing.T) {
	e := newTaskExtractor()
	d := e.Extract([]domain.Message{
		userMsg("task title: Old title"),
		assistantMsg("Anything else?"),
		userMsg("task title: New title"),
	})
	if d.Title != "New title" {
		t.Fatalf("title = %q, want most recent", d.Title)
	}
}

func TestTaskExtractionIsIdempotent(t *testing.T) {
	e := newTaskExtractor()
	messages := []domain.Message{
		userMsg("create a task (Apollo, , Fix login bug, alice, 10 jan 2025, 4)"),
	}
	first := e.Extract(messages)
	second := e.Extract(messages)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction not idempotent: %+v vs %+v", first, second)
	}
}
