package extract

import (
	"reflect"
	"testing"
)

func TestCheckProject(t *testing.T) {
	full := ProjectDraft{Name: "Apollo", Deadline: "2025-01-10", WorkspaceName: "Engineering"}
	if c := CheckProject(full, 2); !c.IsComplete {
		t.Fatalf("complete draft flagged: %+v", c)
	}

	noWorkspace := ProjectDraft{Name: "Apollo", Deadline: "2025-01-10"}
	c := CheckProject(noWorkspace, 2)
	if c.IsComplete || !reflect.DeepEqual(c.Missing, []string{"workspace"}) {
		t.Fatalf("missing = %v, want [workspace]", c.Missing)
	}

	// A tenant without workspaces cannot be blocked on one.
	if c := CheckProject(noWorkspace, 0); !c.IsComplete {
		t.Fatalf("workspace required despite none existing: %+v", c)
	}

	empty := ProjectDraft{}
	c = CheckProject(empty, 0)
	if c.IsComplete || !reflect.DeepEqual(c.Missing, []string{"name", "deadline"}) {
		t.Fatalf("missing = %v", c.Missing)
	}
}

func TestCheckTask(t *testing.T) {
	if c := CheckTask(TaskDraft{Title: "Fix it", ProjectName: "Apollo"}, 3); !c.IsComplete {
		t.Fatalf("complete draft flagged: %+v", c)
	}
	c := CheckTask(TaskDraft{Title: "Fix it"}, 3)
	if c.IsComplete || !reflect.DeepEqual(c.Missing, []string{"project"}) {
		t.Fatalf("missing = %v", c.Missing)
	}
	if c := CheckTask(TaskDraft{Title: "Fix it"}, 0); !c.IsComplete {
		t.Fatalf("project required despite none existing: %+v", c)
	}
	c = CheckTask(TaskDraft{}, 0)
	if c.IsComplete || !reflect.DeepEqual(c.Missing, []string{"title"}) {
		t.Fatalf("missing = %v", c.Missing)
	}
}
