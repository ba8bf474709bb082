package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskmind/internal/activity"
	"taskmind/internal/domain"
	"taskmind/internal/extract"
	"taskmind/internal/notify"
	"taskmind/internal/resolve"
)

type TaskCreateOptions struct {
	TenantID       string
	ActorID        string
	Title          string
	Description    string
	ProjectID      string
	ProjectName    string
	SprintName     string
	Assignee       extract.Assignee
	DueDate        string
	EstimatedHours float64
	Priority       string
	Type           string
}

// CreateTask persists a task from extracted or explicit fields. Sprint
// resolution is soft (a miss is ignored); assignee resolution is strict (a
// miss rejects the task — the system never silently misassigns or drops an
// assignee). The assignee email is dispatched after the task is returned.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	var missing []string
	if opts.Title == "" {
		missing = append(missing, "title")
	}
	if opts.ProjectID == "" && opts.ProjectName == "" {
		missing = append(missing, "project")
	}
	if len(missing) > 0 {
		return domain.Task{}, &ValidationError{Missing: missing}
	}

	project, err := e.resolveProject(ctx, opts.TenantID, opts.ProjectID, opts.ProjectName)
	if err != nil {
		return domain.Task{}, err
	}

	sprintID := e.resolveSprintSoft(ctx, opts.TenantID, project.ID, opts.SprintName)

	assignee, err := e.resolveAssignee(ctx, opts.TenantID, opts.Assignee)
	if err != nil {
		return domain.Task{}, err
	}

	dueDate := e.normalizeDate(opts.DueDate, "task due date")
	hours := opts.EstimatedHours
	if hours < 0 {
		hours = 0
	}
	priority := opts.Priority
	if priority == "" {
		priority = "medium"
	}
	taskType := opts.Type
	if taskType == "" {
		taskType = "task"
	}

	var assigneeIDs []string
	if assignee != nil {
		assigneeIDs = []string{assignee.ID}
	}

	now := e.now().UTC().Format(time.RFC3339)
	t := domain.Task{
		ID:             uuid.New().String(),
		TenantID:       opts.TenantID,
		ProjectID:      project.ID,
		WorkspaceID:    project.WorkspaceID,
		SprintID:       sprintID,
		Title:          opts.Title,
		Description:    opts.Description,
		AssigneeIDs:    assigneeIDs,
		DueDate:        dueDate,
		EstimatedHours: hours,
		Priority:       priority,
		Status:         "todo",
		Type:           taskType,
		AIGenerated:    true,
		CreatedAt:      now,
	}
	if err := e.Repo.InsertTask(ctx, t); err != nil {
		return domain.Task{}, &PersistenceError{Op: "insert task", Err: err}
	}

	if err := e.Activity.Append(ctx, "task.created", opts.TenantID, "task", t.ID, opts.ActorID, activity.Payload{
		"title":        t.Title,
		"project_id":   t.ProjectID,
		"ai_generated": true,
	}); err != nil {
		e.Logger.Warn("activity append failed", zap.String("task_id", t.ID), zap.Error(err))
	}

	// Deferred: queued after the task is in hand, so email latency never
	// shows up in task-creation latency.
	if assignee != nil {
		to := assignee.Email
		e.Effects.Enqueue(Effect{
			Name: "task assignment email",
			Run: func(ctx context.Context) error {
				return e.Notifier.SendEmail(ctx, notify.Email{
					To:           to,
					TemplateType: "task_assigned",
					Data: map[string]any{
						"task_title":   t.Title,
						"project_name": project.Name,
					},
				})
			},
		})
	}
	return t, nil
}

func (e Engine) resolveProject(ctx context.Context, tenantID, projectID, projectName string) (domain.Project, error) {
	if projectID != "" {
		p, err := e.Repo.GetProject(ctx, tenantID, projectID)
		if err != nil {
			return domain.Project{}, &ResolutionError{Kind: "project", Input: projectID}
		}
		return p, nil
	}
	projects, err := e.Repo.ListProjects(ctx, tenantID)
	if err != nil {
		return domain.Project{}, &PersistenceError{Op: "list projects", Err: err}
	}
	p, ok := resolve.ByName(projects, func(p domain.Project) string { return p.Name }, projectName)
	if !ok {
		return domain.Project{}, &ResolutionError{Kind: "project", Input: projectName}
	}
	return p, nil
}

// resolveSprintSoft returns nil on any miss; an unknown sprint name never
// blocks task creation.
func (e Engine) resolveSprintSoft(ctx context.Context, tenantID, projectID, sprintName string) *string {
	if sprintName == "" {
		return nil
	}
	sprints, err := e.Repo.ListSprints(ctx, tenantID, projectID)
	if err != nil {
		e.Logger.Warn("sprint lookup failed", zap.String("sprint", sprintName), zap.Error(err))
		return nil
	}
	s, ok := resolve.ByName(sprints, func(s domain.Sprint) string { return s.Name }, sprintName)
	if !ok {
		e.Logger.Warn("sprint not found, creating task without sprint", zap.String("sprint", sprintName))
		return nil
	}
	return &s.ID
}

func (e Engine) resolveAssignee(ctx context.Context, tenantID string, a extract.Assignee) (*domain.User, error) {
	if a.Kind == extract.AssigneeNone {
		return nil, nil
	}
	users, err := e.Repo.ListUsers(ctx, tenantID)
	if err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}
	var u domain.User
	var ok bool
	switch a.Kind {
	case extract.AssigneeByName:
		u, ok = resolve.ByName(users, func(u domain.User) string { return u.FullName }, a.Value)
	case extract.AssigneeByEmail:
		u, ok = resolve.ByEmail(users, func(u domain.User) string { return u.Email }, a.Value)
	}
	if !ok {
		return nil, &ResolutionError{Kind: "assignee", Input: a.Value}
	}
	return &u, nil
}
