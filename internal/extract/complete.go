package extract

// Completeness is the result of checking a draft for required fields.
type Completeness struct {
	IsComplete bool     `json:"is_complete"`
	Missing    []string `json:"missing,omitempty"`
}

// CheckProject validates a project draft. Name and deadline are always
// required; workspace only when the tenant has at least one workspace,
// since a tenant with none cannot be blocked on a field with no valid
// values.
func CheckProject(d ProjectDraft, workspaceCount int) Completeness {
	var missing []string
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Deadline == "" {
		missing = append(missing, "deadline")
	}
	if d.WorkspaceName == "" && workspaceCount > 0 {
		missing = append(missing, "workspace")
	}
	return Completeness{IsComplete: len(missing) == 0, Missing: missing}
}

// CheckTask validates a task draft. Title is always required; project only
// when at least one project exists for the tenant.
func CheckTask(d TaskDraft, projectCount int) Completeness {
	var missing []string
	if d.Title == "" {
		missing = append(missing, "title")
	}
	if d.ProjectName == "" && projectCount > 0 {
		missing = append(missing, "project")
	}
	return Completeness{IsComplete: len(missing) == 0, Missing: missing}
}
