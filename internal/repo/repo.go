package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"taskmind/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func marshalStrings(in []string) any {
	if len(in) == 0 {
		return nil
	}
	b, _ := json.Marshal(in)
	return string(b)
}

func unmarshalStrings(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(raw.String), &out)
	return out
}

func (r Repo) InsertTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tenants(id,name,created_at) VALUES (?,?,?)`,
		t.ID, t.Name, t.CreatedAt)
	return err
}

func (r Repo) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM tenants WHERE id=?`, id).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) InsertWorkspace(ctx context.Context, w domain.Workspace) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO workspaces(id,tenant_id,name,is_default,created_at) VALUES (?,?,?,?,?)`,
		w.ID, w.TenantID, w.Name, w.IsDefault, w.CreatedAt)
	return err
}

func (r Repo) ListWorkspaces(ctx context.Context, tenantID string) ([]domain.Workspace, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,tenant_id,name,is_default,created_at FROM workspaces WHERE tenant_id=? ORDER BY created_at ASC, id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.TenantID, &w.Name, &w.IsDefault, &w.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

func (r Repo) GetWorkspace(ctx context.Context, tenantID, id string) (domain.Workspace, error) {
	var w domain.Workspace
	err := r.DB.QueryRowContext(ctx, `SELECT id,tenant_id,name,is_default,created_at FROM workspaces WHERE tenant_id=? AND id=?`, tenantID, id).
		Scan(&w.ID, &w.TenantID, &w.Name, &w.IsDefault, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	return w, err
}

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,tenant_id,full_name,email) VALUES (?,?,?,?)`,
		u.ID, u.TenantID, u.FullName, u.Email)
	return err
}

func (r Repo) ListUsers(ctx context.Context, tenantID string) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,tenant_id,full_name,email FROM users WHERE tenant_id=? ORDER BY full_name ASC, id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.FullName, &u.Email); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) GetUser(ctx context.Context, tenantID, id string) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, `SELECT id,tenant_id,full_name,email FROM users WHERE tenant_id=? AND id=?`, tenantID, id).
		Scan(&u.ID, &u.TenantID, &u.FullName, &u.Email)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func scanProject(scan func(...any) error) (domain.Project, error) {
	var p domain.Project
	var workspaceID, description, deadline, team sql.NullString
	err := scan(&p.ID, &p.TenantID, &workspaceID, &p.Name, &description, &deadline, &p.Priority, &p.Status, &p.ManagerID, &team, &p.AIGenerated, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	if workspaceID.Valid {
		p.WorkspaceID = &workspaceID.String
	}
	if description.Valid {
		p.Description = description.String
	}
	if deadline.Valid {
		p.Deadline = &deadline.String
	}
	p.TeamMembers = unmarshalStrings(team)
	return p, nil
}

const projectCols = `id,tenant_id,workspace_id,name,description,deadline,priority,status,manager_id,team_members_json,ai_generated,created_at`

func (r Repo) InsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO projects(`+projectCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.TenantID, nullableStringPtr(p.WorkspaceID), p.Name, nullable(p.Description), nullableStringPtr(p.Deadline),
		p.Priority, p.Status, p.ManagerID, marshalStrings(p.TeamMembers), p.AIGenerated, p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, tenantID, id string) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE tenant_id=? AND id=?`, tenantID, id)
	p, err := scanProject(row.Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListProjects(ctx context.Context, tenantID string) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectCols+` FROM projects WHERE tenant_id=? ORDER BY created_at DESC, id DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) InsertSprint(ctx context.Context, s domain.Sprint) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sprints(id,tenant_id,project_id,name,created_at) VALUES (?,?,?,?,?)`,
		s.ID, s.TenantID, s.ProjectID, s.Name, s.CreatedAt)
	return err
}

// ListSprints returns the tenant's sprints, optionally scoped to a project.
func (r Repo) ListSprints(ctx context.Context, tenantID, projectID string) ([]domain.Sprint, error) {
	query := `SELECT id,tenant_id,project_id,name,created_at FROM sprints WHERE tenant_id=?`
	args := []any{tenantID}
	if projectID != "" {
		query += ` AND project_id=?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Sprint
	for rows.Next() {
		var s domain.Sprint
		if err := rows.Scan(&s.ID, &s.TenantID, &s.ProjectID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

const taskCols = `id,tenant_id,project_id,workspace_id,sprint_id,title,description,assignee_ids_json,due_date,estimated_hours,priority,status,type,ai_generated,created_at`

func scanTask(scan func(...any) error) (domain.Task, error) {
	var t domain.Task
	var workspaceID, sprintID, description, assignees, dueDate sql.NullString
	err := scan(&t.ID, &t.TenantID, &t.ProjectID, &workspaceID, &sprintID, &t.Title, &description, &assignees, &dueDate,
		&t.EstimatedHours, &t.Priority, &t.Status, &t.Type, &t.AIGenerated, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	if workspaceID.Valid {
		t.WorkspaceID = &workspaceID.String
	}
	if sprintID.Valid {
		t.SprintID = &sprintID.String
	}
	if description.Valid {
		t.Description = description.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	t.AssigneeIDs = unmarshalStrings(assignees)
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tasks(`+taskCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.TenantID, t.ProjectID, nullableStringPtr(t.WorkspaceID), nullableStringPtr(t.SprintID), t.Title,
		nullable(t.Description), marshalStrings(t.AssigneeIDs), nullableStringPtr(t.DueDate), t.EstimatedHours,
		t.Priority, t.Status, t.Type, t.AIGenerated, t.CreatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, tenantID, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE tenant_id=? AND id=?`, tenantID, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListTasks(ctx context.Context, tenantID, projectID string) ([]domain.Task, error) {
	query := `SELECT ` + taskCols + ` FROM tasks WHERE tenant_id=?`
	args := []any{tenantID}
	if projectID != "" {
		query += ` AND project_id=?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) InsertRoleAssignment(ctx context.Context, ra domain.RoleAssignment) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO role_assignments(id,tenant_id,project_id,user_id,role,created_at) VALUES (?,?,?,?,?,?)`,
		ra.ID, ra.TenantID, ra.ProjectID, ra.UserID, ra.Role, ra.CreatedAt)
	return err
}

func (r Repo) ListRoleAssignments(ctx context.Context, tenantID, projectID string) ([]domain.RoleAssignment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,tenant_id,project_id,user_id,role,created_at FROM role_assignments WHERE tenant_id=? AND project_id=? ORDER BY created_at ASC`, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RoleAssignment
	for rows.Next() {
		var ra domain.RoleAssignment
		if err := rows.Scan(&ra.ID, &ra.TenantID, &ra.ProjectID, &ra.UserID, &ra.Role, &ra.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, ra)
	}
	return res, rows.Err()
}

type ActivityFilters struct {
	TenantID   string
	Type       string
	EntityKind string
	Limit      int
	Cursor     int64
}

func (r Repo) ListActivities(ctx context.Context, f ActivityFilters) ([]domain.Activity, error) {
	query := `SELECT id,tenant_id,type,entity_kind,entity_id,actor_id,ts,payload_json FROM activities WHERE tenant_id=?`
	args := []any{f.TenantID}
	if f.Type != "" {
		query += ` AND type=?`
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		query += ` AND entity_kind=?`
		args = append(args, f.EntityKind)
	}
	if f.Cursor > 0 {
		query += ` AND id<?`
		args = append(args, f.Cursor)
	}
	query += ` ORDER BY id DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var entityID sql.NullString
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Type, &a.EntityKind, &entityID, &a.ActorID, &a.TS, &a.PayloadJSON); err != nil {
			return nil, err
		}
		if entityID.Valid {
			a.EntityID = entityID.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
