package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"taskmind/internal/config"
	"taskmind/internal/db"
	"taskmind/internal/domain"
	"taskmind/internal/engine"
	"taskmind/internal/extract"
	"taskmind/internal/llm"
	"taskmind/internal/migrate"
	"taskmind/internal/notify"
)

type fakeProvider struct {
	mu sync.Mutex
	// failures maps model id to the error each call on it returns.
	failures   map[string]error
	reply      string
	calls      []string
	lastSystem string
}

func (f *fakeProvider) ListModels(context.Context) ([]llm.Descriptor, error) {
	return []llm.Descriptor{
		{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro"},
		{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash"},
	}, nil
}

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Model)
	f.lastSystem = req.System
	if err, ok := f.failures[req.Model]; ok {
		return llm.Completion{}, err
	}
	reply := f.reply
	if reply == "" {
		reply = "Sure, I can help with that."
	}
	return llm.Completion{Text: reply, Model: req.Model}, nil
}

func (f *fakeProvider) CompleteStream(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	return f.Complete(ctx, req)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Email
}

func (n *recordingNotifier) SendEmail(_ context.Context, email notify.Email) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, email)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type testEnv struct {
	Engine   engine.Engine
	Provider *fakeProvider
	Notifier *recordingNotifier
	Ctx      context.Context
}

const (
	testTenant = "tenant-1"
	testUser   = "user-1"
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	provider := &fakeProvider{failures: map[string]error{}}
	notifier := &recordingNotifier{}
	eng := engine.New(conn, config.Default(), nil, provider, notifier)
	eng.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { eng.Effects.Close() })

	ctx := context.Background()
	if err := eng.Repo.InsertTenant(ctx, domain.Tenant{ID: testTenant, Name: "Acme"}); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if err := eng.Repo.InsertUser(ctx, domain.User{ID: testUser, TenantID: testTenant, FullName: "Alice Martin", Email: "alice@acme.test"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &testEnv{Engine: eng, Provider: provider, Notifier: notifier, Ctx: ctx}
}

func (env *testEnv) seedWorkspace(t *testing.T, id, name string, isDefault bool) {
	t.Helper()
	err := env.Engine.Repo.InsertWorkspace(env.Ctx, domain.Workspace{
		ID: id, TenantID: testTenant, Name: name, IsDefault: isDefault,
	})
	if err != nil {
		t.Fatalf("seed workspace %s: %v", name, err)
	}
}

func (env *testEnv) seedUser(t *testing.T, id, fullName, email string) {
	t.Helper()
	err := env.Engine.Repo.InsertUser(env.Ctx, domain.User{
		ID: id, TenantID: testTenant, FullName: fullName, Email: email,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", fullName, err)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser,
	})
	var verr *engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateProjectWorkspacePrecedence(t *testing.T) {
	env := newTestEnv(t)
	env.seedWorkspace(t, "ws-1", "Engineering", false)
	env.seedWorkspace(t, "ws-2", "Design", true)

	// No workspace supplied: the tenant default wins over the first row.
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser, Name: "Apollo",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.WorkspaceID == nil || *p.WorkspaceID != "ws-2" {
		t.Fatalf("workspace = %v, want default ws-2", p.WorkspaceID)
	}

	// Named workspace resolves fuzzily.
	p, err = env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser, Name: "Artemis", WorkspaceName: "engineering",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.WorkspaceID == nil || *p.WorkspaceID != "ws-1" {
		t.Fatalf("workspace = %v, want ws-1", p.WorkspaceID)
	}

	// A named workspace that resolves to nothing is a hard failure.
	_, err = env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser, Name: "Zeus", WorkspaceName: "Marketing",
	})
	var rerr *engine.ResolutionError
	if !errors.As(err, &rerr) || rerr.Input != "Marketing" {
		t.Fatalf("expected ResolutionError naming the input, got %v", err)
	}
}

func TestCreateProjectWithoutAnyWorkspace(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser, Name: "Apollo",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.WorkspaceID != nil {
		t.Fatalf("workspace = %v, want none", p.WorkspaceID)
	}
}

func TestCreateProjectDeadlineHandling(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser, Name: "Apollo", Deadline: "10 jan 2026",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Deadline == nil || *p.Deadline != "2026-01-10" {
		t.Fatalf("deadline = %v", p.Deadline)
	}

	// An unparseable deadline is dropped, not fatal.
	p, err = env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser, Name: "Artemis", Deadline: "whenever",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Deadline != nil {
		t.Fatalf("deadline = %v, want dropped", p.Deadline)
	}
}

func TestCreateProjectStampsManagerRole(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser, Name: "Apollo",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !p.AIGenerated {
		t.Fatal("project not stamped ai_generated")
	}
	roles, err := env.Engine.Repo.ListRoleAssignments(env.Ctx, testTenant, p.ID)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 1 || roles[0].UserID != testUser || roles[0].Role != "project_manager" {
		t.Fatalf("roles = %+v", roles)
	}
}

func seedProject(t *testing.T, env *testEnv, name string) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		TenantID: testTenant, ActorID: testUser, Name: name,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}

func TestCreateTaskRequiresTitleAndProject(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		TenantID: testTenant, ActorID: testUser,
	})
	var verr *engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Missing) != 2 {
		t.Fatalf("missing = %v", verr.Missing)
	}
}

func TestCreateTaskUnresolvedAssigneeIsRejected(t *testing.T) {
	env := newTestEnv(t)
	p := seedProject(t, env, "Apollo")

	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		TenantID:    testTenant,
		ActorID:     testUser,
		Title:       "Fix login bug",
		ProjectName: "Apollo",
		Assignee:    extract.Assignee{Kind: extract.AssigneeByName, Value: "Bob"},
	})
	var rerr *engine.ResolutionError
	if !errors.As(err, &rerr) || rerr.Input != "Bob" {
		t.Fatalf("expected ResolutionError naming Bob, got %v", err)
	}

	// Task must not be persisted and no email attempted.
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, testTenant, p.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("task persisted despite rejection: %+v", tasks)
	}
	env.Engine.Effects.Close()
	if env.Notifier.count() != 0 {
		t.Fatalf("email attempted despite rejection")
	}
}

func TestCreateTaskResolvesAssigneeAndDefersEmail(t *testing.T) {
	env := newTestEnv(t)
	seedProject(t, env, "Apollo")
	env.seedUser(t, "user-2", "Bob Stone", "bob@acme.test")

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		TenantID:    testTenant,
		ActorID:     testUser,
		Title:       "Fix login bug",
		ProjectName: "apollo",
		Assignee:    extract.Assignee{Kind: extract.AssigneeByName, Value: "bob"},
		DueDate:     "10 jan 2026",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if len(task.AssigneeIDs) != 1 || task.AssigneeIDs[0] != "user-2" {
		t.Fatalf("assignees = %v", task.AssigneeIDs)
	}
	if task.DueDate == nil || *task.DueDate != "2026-01-10" {
		t.Fatalf("due date = %v", task.DueDate)
	}
	if !task.AIGenerated {
		t.Fatal("task not stamped ai_generated")
	}

	env.Engine.Effects.Close()
	if env.Notifier.count() != 1 {
		t.Fatalf("emails sent = %d, want 1", env.Notifier.count())
	}
	if env.Notifier.sent[0].To != "bob@acme.test" {
		t.Fatalf("email to = %q", env.Notifier.sent[0].To)
	}
}

func TestCreateTaskSprintMissIsSoft(t *testing.T) {
	env := newTestEnv(t)
	seedProject(t, env, "Apollo")

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		TenantID:    testTenant,
		ActorID:     testUser,
		Title:       "Fix login bug",
		ProjectName: "Apollo",
		SprintName:  "Sprint 99",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.SprintID != nil {
		t.Fatalf("sprint = %v, want none", task.SprintID)
	}
}

func TestCreateTaskCoercesNegativeHours(t *testing.T) {
	env := newTestEnv(t)
	seedProject(t, env, "Apollo")
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		TenantID:       testTenant,
		ActorID:        testUser,
		Title:          "Fix login bug",
		ProjectName:    "Apollo",
		EstimatedHours: -4,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.EstimatedHours != 0 {
		t.Fatalf("hours = %v, want 0", task.EstimatedHours)
	}
}

func TestChatRejectsNonWhitelistedModel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser,
		Message: "hello", Model: "gpt-4o",
	})
	var merr *engine.ModelNotAllowedError
	if !errors.As(err, &merr) || merr.Model != "gpt-4o" {
		t.Fatalf("expected ModelNotAllowedError, got %v", err)
	}
	if len(env.Provider.calls) != 0 {
		t.Fatalf("provider called despite whitelist rejection")
	}
}

func TestChatFallsBackOnQuotaError(t *testing.T) {
	env := newTestEnv(t)
	env.Provider.failures["gemini-2.5-flash"] = &llm.UpstreamError{StatusCode: 429, Message: "quota exceeded"}

	res, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser, Message: "hello",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	// Primary gemini-2.5-flash fails, chain hops to gemini-2.5-flash-lite.
	if res.Model != "gemini-2.5-flash-lite" {
		t.Fatalf("answered by %q", res.Model)
	}
	if len(env.Provider.calls) != 2 {
		t.Fatalf("calls = %v", env.Provider.calls)
	}
}

func TestChatSurfacesNonRetryableError(t *testing.T) {
	env := newTestEnv(t)
	env.Provider.failures["gemini-2.5-flash"] = errors.New("blocked by safety settings")

	_, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser, Message: "hello",
	})
	if err == nil {
		t.Fatal("expected error to surface")
	}
	if len(env.Provider.calls) != 1 {
		t.Fatalf("calls = %v, want no retry", env.Provider.calls)
	}
}

func TestChatExhaustedChainSurfacesLastError(t *testing.T) {
	env := newTestEnv(t)
	quota := &llm.UpstreamError{StatusCode: 429, Message: "quota exceeded"}
	for _, id := range []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.0-flash", "gemini-2.0-flash-lite"} {
		env.Provider.failures[id] = quota
	}
	_, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser, Message: "hello",
	})
	if err == nil {
		t.Fatal("expected exhausted chain to fail")
	}
	if len(env.Provider.calls) != 4 {
		t.Fatalf("calls = %v", env.Provider.calls)
	}
}

func TestChatActionCreatesProjectWhenComplete(t *testing.T) {
	env := newTestEnv(t)
	env.seedWorkspace(t, "ws-1", "Engineering", true)
	env.Provider.reply = `Creating the project now.
{"action":"create_project","name":"Apollo","deadline":"2026-01-10","workspace":"Engineering"}`

	res, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser,
		Message: "create a project Apollo, 10 jan 2026, Engineering",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Project == nil {
		t.Fatalf("no project created: %+v", res)
	}
	if res.Project.Name != "Apollo" {
		t.Fatalf("project name = %q", res.Project.Name)
	}
	if res.Reply != "Creating the project now." {
		t.Fatalf("reply = %q, action payload leaked", res.Reply)
	}
	projects, err := env.Engine.Repo.ListProjects(env.Ctx, testTenant)
	if err != nil || len(projects) != 1 {
		t.Fatalf("projects = %v, %v", projects, err)
	}
}

func TestChatActionReportsMissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.seedWorkspace(t, "ws-1", "Engineering", true)
	env.Provider.reply = `Which workspace should it go in?
{"action":"create_project","name":"Apollo","deadline":"2026-01-10"}`

	res, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser, Message: "create a project named Apollo",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Project != nil {
		t.Fatalf("incomplete draft was persisted: %+v", res.Project)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "workspace" {
		t.Fatalf("missing = %v", res.Missing)
	}
}

func TestChatPersistsConversation(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser, Message: "hello",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	msgs, err := env.Engine.Repo.ListMessages(env.Ctx, res.ConversationID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("messages = %+v", msgs)
	}

	// Second turn reuses the conversation.
	res2, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser,
		ConversationID: res.ConversationID, Message: "thanks",
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res2.ConversationID != res.ConversationID {
		t.Fatalf("conversation changed: %q vs %q", res2.ConversationID, res.ConversationID)
	}
	msgs, _ = env.Engine.Repo.ListMessages(env.Ctx, res.ConversationID)
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
}

func TestSystemPromptNeverContainsEmails(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "user-2", "Bob Stone", "bob@acme.test")

	env.Provider.reply = "hi"
	if _, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{
		TenantID: testTenant, UserID: testUser, Message: "who is on the team?",
	}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	system := env.Provider.lastSystem
	for _, email := range []string{"alice@acme.test", "bob@acme.test"} {
		if strings.Contains(system, email) {
			t.Fatalf("prompt leaks email %s", email)
		}
	}
	if !strings.Contains(system, "Bob Stone") {
		t.Fatal("prompt missing member name")
	}
}
