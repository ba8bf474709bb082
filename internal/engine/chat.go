package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"taskmind/internal/activity"
	"taskmind/internal/domain"
	"taskmind/internal/extract"
	"taskmind/internal/llm"
	"taskmind/internal/repo"
)

const defaultChatTimeout = 60 * time.Second

type ChatOptions struct {
	TenantID       string
	UserID         string
	ConversationID string
	Message        string
	Model          string
}

// ChatAction is the trailing structured payload the model appends when it
// wants the system to create something.
type ChatAction struct {
	Type           string  `json:"action"`
	Name           string  `json:"name,omitempty"`
	Title          string  `json:"title,omitempty"`
	Description    string  `json:"description,omitempty"`
	Deadline       string  `json:"deadline,omitempty"`
	DueDate        string  `json:"due_date,omitempty"`
	Workspace      string  `json:"workspace,omitempty"`
	Project        string  `json:"project,omitempty"`
	Sprint         string  `json:"sprint,omitempty"`
	Assignee       string  `json:"assignee,omitempty"`
	AssigneeEmail  string  `json:"assignee_email,omitempty"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
	Priority       string  `json:"priority,omitempty"`
}

type ChatResult struct {
	ConversationID string          `json:"conversation_id"`
	Reply          string          `json:"reply"`
	Model          string          `json:"model"`
	Action         *ChatAction     `json:"action,omitempty"`
	Project        *domain.Project `json:"project,omitempty"`
	Task           *domain.Task    `json:"task,omitempty"`
	Missing        []string        `json:"missing,omitempty"`
	Usage          llm.Usage       `json:"usage"`
}

// Chat runs one assistant turn: whitelist gate, conversation persistence,
// the model fallback loop, action parsing, and entity creation when the
// parsed action is complete.
func (e Engine) Chat(ctx context.Context, opts ChatOptions) (ChatResult, error) {
	if strings.TrimSpace(opts.Message) == "" {
		return ChatResult{}, &ValidationError{Missing: []string{"message"}}
	}

	requested := strings.TrimSpace(opts.Model)
	explicit := requested != "" && !strings.EqualFold(requested, "default")
	if explicit && !e.Whitelist.IsWhitelisted(requested) {
		return ChatResult{}, &ModelNotAllowedError{Model: requested}
	}
	model := e.Resolver.Resolve(opts.Model)

	conv, err := e.ensureConversation(ctx, opts)
	if err != nil {
		return ChatResult{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	userMsg := domain.Message{
		ID:             ulid.Make().String(),
		ConversationID: conv.ID,
		Role:           "user",
		Content:        opts.Message,
		CreatedAt:      now,
	}
	if err := e.Repo.InsertMessage(ctx, userMsg); err != nil {
		return ChatResult{}, &PersistenceError{Op: "insert message", Err: err}
	}
	messages, err := e.Repo.ListMessages(ctx, conv.ID)
	if err != nil {
		return ChatResult{}, &PersistenceError{Op: "list messages", Err: err}
	}

	system, err := e.systemPrompt(ctx, opts.TenantID)
	if err != nil {
		return ChatResult{}, err
	}

	completion, usedModel, err := e.completeWithFallback(ctx, model, system, messages)
	if err != nil {
		return ChatResult{}, err
	}

	reply, action := splitAction(completion.Text)
	result := ChatResult{
		ConversationID: conv.ID,
		Reply:          reply,
		Model:          usedModel,
		Action:         action,
		Usage:          completion.Usage,
	}

	if action != nil {
		if err := e.applyAction(ctx, opts, messages, action, &result); err != nil {
			return ChatResult{}, err
		}
	}

	assistant := domain.Message{
		ID:             ulid.Make().String(),
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        reply,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}
	if action != nil {
		if raw, err := json.Marshal(action); err == nil {
			s := string(raw)
			assistant.ActionJSON = &s
		}
	}
	if err := e.Repo.InsertMessage(ctx, assistant); err != nil {
		return ChatResult{}, &PersistenceError{Op: "insert message", Err: err}
	}
	if err := e.Repo.TouchConversation(ctx, opts.TenantID, conv.ID, assistant.CreatedAt); err != nil {
		e.Logger.Warn("touch conversation failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	if err := e.Activity.Append(ctx, "chat.exchange", opts.TenantID, "conversation", conv.ID, opts.UserID, activity.Payload{
		"model": usedModel,
	}); err != nil {
		e.Logger.Warn("activity append failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	return result, nil
}

// completeWithFallback drives the retry loop the resolver only advises on.
// It stops as soon as the resolver says not to fall back or the chain is
// exhausted, and never retries the same model.
func (e Engine) completeWithFallback(ctx context.Context, model llm.Descriptor, system string, messages []domain.Message) (llm.Completion, string, error) {
	timeout := defaultChatTimeout
	if e.Config != nil && e.Config.AI.RequestTimeout > 0 {
		timeout = time.Duration(e.Config.AI.RequestTimeout) * time.Second
	}
	req := llm.CompletionRequest{
		System:      system,
		Messages:    providerMessages(messages),
		Temperature: e.Config.AI.Temperature,
		MaxTokens:   e.Config.AI.MaxTokens,
	}

	current := model
	for {
		req.Model = current.ID
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		var completion llm.Completion
		var err error
		if current.IsLive {
			// Live models only answer on the streaming transport.
			completion, err = e.Provider.CompleteStream(attemptCtx, req)
		} else {
			completion, err = e.Provider.Complete(attemptCtx, req)
		}
		cancel()
		if err == nil {
			return completion, current.ID, nil
		}
		if !e.Resolver.ShouldFallback(err, current.ID) {
			return llm.Completion{}, "", err
		}
		next := e.Resolver.NextFallback(current.ID)
		if next == nil {
			return llm.Completion{}, "", err
		}
		e.Logger.Warn("model failed, falling back",
			zap.String("from", current.ID),
			zap.String("to", next.ID),
			zap.Error(err))
		current = *next
	}
}

func (e Engine) ensureConversation(ctx context.Context, opts ChatOptions) (domain.Conversation, error) {
	if opts.ConversationID != "" {
		conv, err := e.Repo.GetConversation(ctx, opts.TenantID, opts.ConversationID)
		if err == nil {
			return conv, nil
		}
		if err != repo.ErrNotFound {
			return domain.Conversation{}, &PersistenceError{Op: "get conversation", Err: err}
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	conv := domain.Conversation{
		ID:        ulid.Make().String(),
		TenantID:  opts.TenantID,
		UserID:    opts.UserID,
		Title:     truncate(opts.Message, 80),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertConversation(ctx, conv); err != nil {
		return domain.Conversation{}, &PersistenceError{Op: "insert conversation", Err: err}
	}
	return conv, nil
}

// systemPrompt assembles the tenant context block. User emails never appear
// here: the model sees display names only.
func (e Engine) systemPrompt(ctx context.Context, tenantID string) (string, error) {
	workspaces, err := e.Repo.ListWorkspaces(ctx, tenantID)
	if err != nil {
		return "", &PersistenceError{Op: "list workspaces", Err: err}
	}
	projects, err := e.Repo.ListProjects(ctx, tenantID)
	if err != nil {
		return "", &PersistenceError{Op: "list projects", Err: err}
	}
	users, err := e.Repo.ListUsers(ctx, tenantID)
	if err != nil {
		return "", &PersistenceError{Op: "list users", Err: err}
	}

	var b strings.Builder
	b.WriteString("You are the AI assistant of a project management tool. ")
	b.WriteString("Help the user manage projects and tasks. When the user asks to create a project or task, ")
	b.WriteString("gather the required fields and finish your reply with a single JSON object on its own line, ")
	b.WriteString(`such as {"action":"create_project","name":"...","deadline":"YYYY-MM-DD","workspace":"..."} or `)
	b.WriteString(`{"action":"create_task","title":"...","project":"...","assignee":"...","due_date":"YYYY-MM-DD"}.`)
	b.WriteString("\n\nWorkspaces:\n")
	for _, w := range workspaces {
		fmt.Fprintf(&b, "- %s\n", w.Name)
	}
	b.WriteString("Projects:\n")
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s\n", p.Name)
	}
	b.WriteString("Team members:\n")
	for _, u := range users {
		fmt.Fprintf(&b, "- %s\n", u.FullName)
	}
	return b.String(), nil
}

func providerMessages(messages []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// splitAction strips a trailing JSON action object off the reply. Anything
// that does not unmarshal to an object with an "action" field is left in
// the visible text untouched.
func splitAction(text string) (string, *ChatAction) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimSuffix(trimmed, "```")
	start := strings.LastIndex(trimmed, "{")
	for start >= 0 {
		candidate := strings.TrimSpace(trimmed[start:])
		var action ChatAction
		if err := json.Unmarshal([]byte(candidate), &action); err == nil && action.Type != "" {
			visible := strings.TrimSpace(trimmed[:start])
			visible = strings.TrimSuffix(visible, "```json")
			visible = strings.TrimSuffix(visible, "```")
			return strings.TrimSpace(visible), &action
		}
		start = strings.LastIndex(trimmed[:start], "{")
	}
	return strings.TrimSpace(text), nil
}

// applyAction merges the model's payload with what extraction finds in the
// conversation, checks completeness, and creates the entity when complete.
// Incomplete drafts come back as a missing-field list, not an error.
func (e Engine) applyAction(ctx context.Context, opts ChatOptions, messages []domain.Message, action *ChatAction, result *ChatResult) error {
	dates := e.dates()
	switch action.Type {
	case "create_project":
		draft := extract.ProjectExtractor{Dates: dates}.Extract(messages)
		if action.Name != "" {
			draft.Name = action.Name
		}
		if action.Deadline != "" {
			draft.Deadline = action.Deadline
		}
		if action.Workspace != "" {
			draft.WorkspaceName = action.Workspace
		}
		if action.Priority != "" {
			draft.Priority = action.Priority
		}
		if action.Description != "" {
			draft.Description = action.Description
		}
		workspaces, err := e.Repo.ListWorkspaces(ctx, opts.TenantID)
		if err != nil {
			return &PersistenceError{Op: "list workspaces", Err: err}
		}
		check := extract.CheckProject(draft, len(workspaces))
		if !check.IsComplete {
			result.Missing = check.Missing
			return nil
		}
		p, err := e.CreateProject(ctx, ProjectCreateOptions{
			TenantID:      opts.TenantID,
			ActorID:       opts.UserID,
			Name:          draft.Name,
			Description:   draft.Description,
			Deadline:      draft.Deadline,
			WorkspaceName: draft.WorkspaceName,
			Priority:      draft.Priority,
			TeamMembers:   draft.TeamMembers,
		})
		if err != nil {
			return err
		}
		result.Project = &p
	case "create_task":
		draft := extract.TaskExtractor{Dates: dates}.Extract(messages)
		if action.Title != "" {
			draft.Title = action.Title
		}
		if action.Project != "" {
			draft.ProjectName = action.Project
		}
		if action.Sprint != "" {
			draft.SprintName = action.Sprint
		}
		if action.AssigneeEmail != "" {
			draft.Assignee = extract.Assignee{Kind: extract.AssigneeByEmail, Value: action.AssigneeEmail}
		} else if action.Assignee != "" {
			kind := extract.AssigneeByName
			if strings.Contains(action.Assignee, "@") {
				kind = extract.AssigneeByEmail
			}
			draft.Assignee = extract.Assignee{Kind: kind, Value: action.Assignee}
		}
		if action.DueDate != "" {
			draft.DueDate = action.DueDate
		}
		if action.EstimatedHours > 0 {
			draft.EstimatedHours = action.EstimatedHours
		}
		if action.Priority != "" {
			draft.Priority = action.Priority
		}
		projects, err := e.Repo.ListProjects(ctx, opts.TenantID)
		if err != nil {
			return &PersistenceError{Op: "list projects", Err: err}
		}
		check := extract.CheckTask(draft, len(projects))
		if !check.IsComplete {
			result.Missing = check.Missing
			return nil
		}
		t, err := e.CreateTask(ctx, TaskCreateOptions{
			TenantID:       opts.TenantID,
			ActorID:        opts.UserID,
			Title:          draft.Title,
			ProjectName:    draft.ProjectName,
			SprintName:     draft.SprintName,
			Assignee:       draft.Assignee,
			DueDate:        draft.DueDate,
			EstimatedHours: draft.EstimatedHours,
			Priority:       draft.Priority,
		})
		if err != nil {
			return err
		}
		result.Task = &t
	default:
		e.Logger.Warn("unknown chat action", zap.String("action", action.Type))
	}
	return nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
