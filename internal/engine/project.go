package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskmind/internal/activity"
	"taskmind/internal/domain"
	"taskmind/internal/extract"
	"taskmind/internal/notify"
	"taskmind/internal/resolve"
)

// ProjectCreateOptions are the fields the caller (HTTP handler or chat
// action) was able to supply. Names are resolved here, not upstream.
type ProjectCreateOptions struct {
	TenantID      string
	ActorID       string
	Name          string
	Description   string
	Deadline      string
	WorkspaceID   string
	WorkspaceName string
	Priority      string
	TeamMembers   []string
}

// CreateProject persists a project from extracted or explicit fields. The
// project row is the source of truth; role assignment, activity record and
// member emails are best-effort and individually isolated.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, &ValidationError{Missing: []string{"name"}}
	}

	workspaceID, err := e.resolveWorkspace(ctx, opts.TenantID, opts.WorkspaceID, opts.WorkspaceName)
	if err != nil {
		return domain.Project{}, err
	}

	deadline := e.normalizeDate(opts.Deadline, "project deadline")

	priority := opts.Priority
	if priority == "" {
		priority = "medium"
	}

	members, err := e.resolveTeamMembers(ctx, opts.TenantID, opts.ActorID, opts.TeamMembers)
	if err != nil {
		return domain.Project{}, err
	}

	now := e.now().UTC().Format(time.RFC3339)
	p := domain.Project{
		ID:          uuid.New().String(),
		TenantID:    opts.TenantID,
		WorkspaceID: workspaceID,
		Name:        opts.Name,
		Description: opts.Description,
		Deadline:    deadline,
		Priority:    priority,
		Status:      "planning",
		ManagerID:   opts.ActorID,
		TeamMembers: memberIDs(members),
		AIGenerated: true,
		CreatedAt:   now,
	}
	if err := e.Repo.InsertProject(ctx, p); err != nil {
		return domain.Project{}, &PersistenceError{Op: "insert project", Err: err}
	}

	// Best-effort from here on: nothing below rolls back the project.
	if err := e.Repo.InsertRoleAssignment(ctx, domain.RoleAssignment{
		ID:        uuid.New().String(),
		TenantID:  opts.TenantID,
		ProjectID: p.ID,
		UserID:    opts.ActorID,
		Role:      "project_manager",
		CreatedAt: now,
	}); err != nil {
		e.Logger.Warn("role assignment failed", zap.String("project_id", p.ID), zap.Error(err))
	}
	if err := e.Activity.Append(ctx, "project.created", opts.TenantID, "project", p.ID, opts.ActorID, activity.Payload{
		"name":         p.Name,
		"ai_generated": true,
	}); err != nil {
		e.Logger.Warn("activity append failed", zap.String("project_id", p.ID), zap.Error(err))
	}
	for _, m := range members {
		member := m
		e.Effects.Enqueue(Effect{
			Name: "project member email",
			Run: func(ctx context.Context) error {
				return e.Notifier.SendEmail(ctx, notify.Email{
					To:           member.Email,
					TemplateType: "added_to_project",
					Data:         map[string]any{"project_name": p.Name},
				})
			},
		})
	}
	return p, nil
}

// resolveWorkspace applies the workspace precedence: explicit id, resolved
// name (hard failure on a miss), tenant default, first available, none.
func (e Engine) resolveWorkspace(ctx context.Context, tenantID, workspaceID, workspaceName string) (*string, error) {
	if workspaceID != "" {
		return &workspaceID, nil
	}
	workspaces, err := e.Repo.ListWorkspaces(ctx, tenantID)
	if err != nil {
		return nil, &PersistenceError{Op: "list workspaces", Err: err}
	}
	if workspaceName != "" {
		ws, ok := resolve.ByName(workspaces, func(w domain.Workspace) string { return w.Name }, workspaceName)
		if !ok {
			return nil, &ResolutionError{Kind: "workspace", Input: workspaceName}
		}
		return &ws.ID, nil
	}
	for _, w := range workspaces {
		if w.IsDefault {
			id := w.ID
			return &id, nil
		}
	}
	if len(workspaces) > 0 {
		id := workspaces[0].ID
		return &id, nil
	}
	return nil, nil
}

// normalizeDate runs the date normalizer on non-canonical input. An
// unparseable value is dropped with a warning, never a creation failure.
func (e Engine) normalizeDate(raw, what string) *string {
	if raw == "" {
		return nil
	}
	if extract.IsCanonical(raw) {
		return &raw
	}
	if iso, ok := e.dates().Parse(raw); ok {
		return &iso
	}
	e.Logger.Warn(fmt.Sprintf("dropping unparseable %s", what), zap.String("value", raw))
	return nil
}

// resolveTeamMembers maps names or emails to tenant users. A member that
// resolves to nobody is a hard failure, same rule as assignees.
func (e Engine) resolveTeamMembers(ctx context.Context, tenantID, actorID string, members []string) ([]domain.User, error) {
	if len(members) == 0 {
		return nil, nil
	}
	users, err := e.Repo.ListUsers(ctx, tenantID)
	if err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}
	var out []domain.User
	for _, m := range members {
		var u domain.User
		var ok bool
		if strings.Contains(m, "@") {
			u, ok = resolve.ByEmail(users, func(u domain.User) string { return u.Email }, m)
		} else {
			u, ok = resolve.ByName(users, func(u domain.User) string { return u.FullName }, m)
		}
		if !ok {
			return nil, &ResolutionError{Kind: "team member", Input: m}
		}
		if u.ID == actorID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func memberIDs(users []domain.User) []string {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
