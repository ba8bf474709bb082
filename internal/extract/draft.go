package extract

// ProjectDraft is what the extractor could glean from the conversation.
// Deadline may hold a raw, non-canonical string when normalization failed;
// the orchestrator decides what to do with it.
type ProjectDraft struct {
	Name          string   `json:"name,omitempty"`
	Deadline      string   `json:"deadline,omitempty"`
	WorkspaceName string   `json:"workspace_name,omitempty"`
	Description   string   `json:"description,omitempty"`
	Priority      string   `json:"priority,omitempty"`
	TeamMembers   []string `json:"team_members,omitempty"`
}

type AssigneeKind int

const (
	AssigneeNone AssigneeKind = iota
	AssigneeByName
	AssigneeByEmail
)

// Assignee is a tagged variant: a task draft names its assignee either by
// display name or by email, never both.
type Assignee struct {
	Kind  AssigneeKind
	Value string
}

type TaskDraft struct {
	Title          string   `json:"title,omitempty"`
	ProjectName    string   `json:"project_name,omitempty"`
	SprintName     string   `json:"sprint_name,omitempty"`
	Assignee       Assignee `json:"-"`
	DueDate        string   `json:"due_date,omitempty"`
	EstimatedHours float64  `json:"estimated_hours,omitempty"`
	Priority       string   `json:"priority,omitempty"`
}
