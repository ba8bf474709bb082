package server

import (
	"taskmind/internal/domain"
	"taskmind/internal/engine"
	"taskmind/internal/llm"
)

// Request payloads

type ChatRequest struct {
	ConversationID *string `json:"conversation_id,omitempty"`
	Message        string  `json:"message"`
	Model          *string `json:"model,omitempty"`
}

type CreateProjectRequest struct {
	Name          string   `json:"name"`
	Description   *string  `json:"description,omitempty"`
	Deadline      *string  `json:"deadline,omitempty"`
	WorkspaceID   *string  `json:"workspace_id,omitempty"`
	WorkspaceName *string  `json:"workspace,omitempty"`
	Priority      *string  `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	TeamMembers   []string `json:"team_members,omitempty"`
}

type CreateTaskRequest struct {
	Title          string   `json:"title"`
	Description    *string  `json:"description,omitempty"`
	ProjectID      *string  `json:"project_id,omitempty"`
	ProjectName    *string  `json:"project,omitempty"`
	SprintName     *string  `json:"sprint,omitempty"`
	Assignee       *string  `json:"assignee,omitempty"`
	AssigneeEmail  *string  `json:"assignee_email,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Priority       *string  `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	Type           *string  `json:"type,omitempty" enum:"task,bug,feature,improvement"`
}

// Response payloads

type ProjectResponse struct {
	ID          string   `json:"id"`
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

type TaskResponse struct {
	ID             string   `json:"id"`
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

type WorkspaceResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type SprintResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ModelResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsLive      bool   `json:"is_live"`
}

type ChatResponse struct {
	ConversationID string             `json:"conversation_id"`
	Reply          string             `json:"reply"`
	Model          string             `json:"model"`
	Action         *engine.ChatAction `json:"action,omitempty"`
	Project        *ProjectResponse   `json:"project,omitempty"`
	Task           *TaskResponse      `json:"task,omitempty"`
	Missing        []string           `json:"missing,omitempty"`
	Usage          llm.Usage          `json:"usage"`
}

type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type MessageResponse struct {
	ID         string  `json:"id"`
	Role       string  `json:"role" enum:"user,assistant"`
	Content    string  `json:"content"`
	ActionJSON *string `json:"action_json,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
}

type ActivityResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty"`
	ActorID     string `json:"actor_id"`
	TS          string `json:"ts" format:"date-time"`
	PayloadJSON string `json:"payload_json"`
}

type paginatedActivities struct {
	Items      []ActivityResponse `json:"items"`
	NextCursor *int64             `json:"next_cursor,omitempty"`
}

// Mappers

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		Name:        p.Name,
		Description: p.Description,
		Deadline:    p.Deadline,
		Priority:    p.Priority,
		Status:      p.Status,
		ManagerID:   p.ManagerID,
		TeamMembers: p.TeamMembers,
		AIGenerated: p.AIGenerated,
		CreatedAt:   p.CreatedAt,
	}
}

func mapProjects(items []domain.Project) []ProjectResponse {
	res := make([]ProjectResponse, 0, len(items))
	for _, p := range items {
		res = append(res, projectResponse(p))
	}
	return res
}

func taskResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		ProjectID:      t.ProjectID,
		WorkspaceID:    t.WorkspaceID,
		SprintID:       t.SprintID,
		Title:          t.Title,
		Description:    t.Description,
		AssigneeIDs:    t.AssigneeIDs,
		DueDate:        t.DueDate,
		EstimatedHours: t.EstimatedHours,
		Priority:       t.Priority,
		Status:         t.Status,
		Type:           t.Type,
		AIGenerated:    t.AIGenerated,
		CreatedAt:      t.CreatedAt,
	}
}

func mapTasks(items []domain.Task) []TaskResponse {
	res := make([]TaskResponse, 0, len(items))
	for _, t := range items {
		res = append(res, taskResponse(t))
	}
	return res
}

func workspaceResponse(w domain.Workspace) WorkspaceResponse {
	return WorkspaceResponse{ID: w.ID, Name: w.Name, IsDefault: w.IsDefault, CreatedAt: w.CreatedAt}
}

func sprintResponse(s domain.Sprint) SprintResponse {
	return SprintResponse{ID: s.ID, ProjectID: s.ProjectID, Name: s.Name, CreatedAt: s.CreatedAt}
}

func chatResponse(res engine.ChatResult) ChatResponse {
	out := ChatResponse{
		ConversationID: res.ConversationID,
		Reply:          res.Reply,
		Model:          res.Model,
		Action:         res.Action,
		Missing:        res.Missing,
		Usage:          res.Usage,
	}
	if res.Project != nil {
		p := projectResponse(*res.Project)
		out.Project = &p
	}
	if res.Task != nil {
		t := taskResponse(*res.Task)
		out.Task = &t
	}
	return out
}

func conversationResponse(c domain.Conversation) ConversationResponse {
	return ConversationResponse{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func messageResponse(m domain.Message) MessageResponse {
	return MessageResponse{ID: m.ID, Role: m.Role, Content: m.Content, ActionJSON: m.ActionJSON, CreatedAt: m.CreatedAt}
}

func activityResponse(a domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		Type:        a.Type,
		EntityKind:  a.EntityKind,
		EntityID:    a.EntityID,
		ActorID:     a.ActorID,
		TS:          a.TS,
		PayloadJSON: a.PayloadJSON,
	}
}
