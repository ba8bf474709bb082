package extract

import (
	"reflect"
	"testing"

	"taskmind/internal/domain"
)

func userMsg(content string) domain.Message {
	return domain.Message{Role: "user", Content: content}
}

func assistantMsg(content string) domain.Message {
	return domain.Message{Role: "assistant", Content: content}
}

func newProjectExtractor() ProjectExtractor {
	return ProjectExtractor{Dates: DateNormalizer{Now: fixedNow}}
}

func TestProjectParenthesizedForm(t *testing.T) {
	e := newProjectExtractor()
	d := e.Extract([]domain.Message{
		userMsg("create a project (Apollo, 10 jan 2025, Engineering)"),
	})
	if d.Name != "Apollo" {
		t.Errorf("name = %q, want Apollo", d.Name)
	}
	if d.Deadline != "2025-01-10" {
		t.Errorf("deadline = %q, want 2025-01-10", d.Deadline)
	}
	if d.WorkspaceName != "Engineering" {
		t.Errorf("workspace = %q, want Engineering", d.WorkspaceName)
	}
}

func TestProjectCommaForm(t *testing.T) {
	e := newProjectExtractor()
	d := e.Extract([]domain.Message{
		userMsg("create a project Apollo, 10 jan 2025, Engineering"),
	})
	if d.Name != "Apollo" || d.Deadline != "2025-01-10" || d.WorkspaceName != "Engineering" {
		t.Fatalf("draft = %+v", d)
	}
}

func TestProjectBareNameForm(t *testing.T) {
	e := newProjectExtractor()
	d := e.Extract([]domain.Message{userMsg("create a project Apollo")})
	if d.Name != "Apollo" {
		t.Fatalf("name = %q", d.Name)
	}

	// A bare remainder that parses as a date is not a name.
	d = e.Extract([]domain.Message{userMsg("create a project 10 jan 2025")})
	if d.Name != "" {
		t.Fatalf("date taken as name: %q", d.Name)
	}
}

func TestProjectFollowUpHeuristic(t *testing.T) {
	e := newProjectExtractor()
	d := e.Extract([]domain.Message{
		userMsg("create a project"),
		userMsg("ai project"),
	})
	if d.Name != "ai project" {
		t.Fatalf("name = %q, want follow-up reply", d.Name)
	}
}

func TestProjectFollowUpRejectsQuestionsAndCommands(t *testing.T) {
	e := newProjectExtractor()
	d := e.Extract([]domain.Message{
		userMsg("create a project"),
		userMsg("what should I call it?"),
	})
	if d.Name != "" {
		t.Fatalf("question taken as name: %q", d.Name)
	}
}

func TestProjectMostRecentMatchWins(t *testing.T) {
	e := newProjectExtractor()
	d := e.Extract([]domain.Message{
		userMsg("create a project Apollo"),
		assistantMsg("What deadline?"),
		userMsg("create a project Artemis"),
	})
	if d.Name != "Artemis" {
		t.Fatalf("name = %q, want most recent match", d.Name)
	}
}

func TestProjectDeadlineKeywordShapes(t *testing.T) {
	e := newProjectExtractor()
	cases := map[string]string{
		"create a project Apollo, deadline is 10 jan 2025": "2025-01-10",
		"create a project Apollo due by jan 10 2025":       "2025-01-10",
		"create a project Apollo due 25/12/2025":           "2025-12-25",
		"create a project Apollo until 2025-12-25":         "2025-12-25",
	}
	for msg, want := range cases {
		d := e.Extract([]domain.Message{userMsg(msg)})
		if d.Deadline != want {
			t.Errorf("%q: deadline = %q, want %q", msg, d.Deadline, want)
		}
	}
}

func TestProjectWorkspaceKeyword(t *testing.T) {
	e := newProjectExtractor()
	d := e.Extract([]domain.Message{
		userMsg("create a project Apollo in the Engineering workspace"),
	})
	if d.WorkspaceName != "Engineering" {
		t.Fatalf("workspace = %q", d.WorkspaceName)
	}
}

func TestProjectExtractionIsIdempotent(t *testing.T) {
	e := newProjectExtractor()
	messages := []domain.Message{
		userMsg("create a project"),
		assistantMsg("What should it be called?"),
		userMsg("Apollo, 10 jan 2025, Engineering"),
	}
	first := e.Extract(messages)
	second := e.Extract(messages)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction not idempotent: %+v vs %+v", first, second)
	}
}

func TestProjectScanWindowLimit(t *testing.T) {
	e := newProjectExtractor()
	messages := []domain.Message{userMsg("create a project Ancient")}
	for i := 0; i < 10; i++ {
		messages = append(messages, assistantMsg("noted"))
	}
	d := e.Extract(messages)
	if d.Name != "" {
		t.Fatalf("message outside the window leaked in: %q", d.Name)
	}
}
