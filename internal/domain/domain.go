package domain

type Tenant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Workspace struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type User struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type Project struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenant_id"`
	WorkspaceID *string  `json:"workspace_id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Deadline    *string  `json:"deadline,omitempty"`
	Priority    string   `json:"priority" enum:"low,medium,high,urgent"`
	Status      string   `json:"status" enum:"planning,active,on_hold,completed,archived"`
	ManagerID   string   `json:"manager_id"`
	TeamMembers []string `json:"team_members,omitempty"`
	AIGenerated bool     `json:"ai_generated"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

type Sprint struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID             string   `json:"id"`
	TenantID       string   `json:"tenant_id"`
	ProjectID      string   `json:"project_id"`
	WorkspaceID    *string  `json:"workspace_id,omitempty"`
	SprintID       *string  `json:"sprint_id,omitempty"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	AssigneeIDs    []string `json:"assignee_ids,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours float64  `json:"estimated_hours"`
	Priority       string   `json:"priority" enum:"low,medium,high,urgent"`
	Status         string   `json:"status" enum:"todo,in_progress,review,done"`
	Type           string   `json:"type" enum:"task,bug,feature,improvement"`
	AIGenerated    bool     `json:"ai_generated"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

type Conversation struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// Message is one turn of a conversation. Append-only; the extractors only
// ever read role=="user" entries.
type Message struct {
	ID             string   `json:"id"`
	ConversationID string   `json:"conversation_id"`
	Role           string   `json:"role" enum:"user,assistant"`
	Content        string   `json:"content"`
	FileURLs       []string `json:"file_urls,omitempty"`
	ActionJSON     *string  `json:"action_json,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

type Activity struct {
	ID          int64  `json:"id"`
	TenantID    string `json:"tenant_id"`
	Type        string `json:"type"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty"`
	ActorID     string `json:"actor_id"`
	TS          string `json:"ts" format:"date-time"`
	PayloadJSON string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type RoleAssignment struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role" enum:"project_manager,contributor,viewer"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
