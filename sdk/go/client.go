package taskmindsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Taskmind HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// Project represents the API project model (partial).
type Project struct {
	ID          string  `json:"id"`
	WorkspaceID *string `json:"workspace_id,omitempty"`
	Name        string  `json:"name"`
	Deadline    *string `json:"deadline,omitempty"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	AIGenerated bool    `json:"ai_generated"`
}

// Task represents the API task model (partial).
type Task struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	Title       string   `json:"title"`
	AssigneeIDs []string `json:"assignee_ids,omitempty"`
	DueDate     *string  `json:"due_date,omitempty"`
	Status      string   `json:"status"`
	AIGenerated bool     `json:"ai_generated"`
}

// Model is a selectable AI model.
type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsLive      bool   `json:"is_live"`
}

// ChatResult is one assistant turn.
type ChatResult struct {
	ConversationID string   `json:"conversation_id"`
	Reply          string   `json:"reply"`
	Model          string   `json:"model"`
	Project        *Project `json:"project,omitempty"`
	Task           *Task    `json:"task,omitempty"`
	Missing        []string `json:"missing,omitempty"`
}

// Activity is one entry of the activity feed.
type Activity struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty"`
	ActorID     string `json:"actor_id"`
	TS          string `json:"ts"`
	PayloadJSON string `json:"payload_json"`
}

// PaginatedActivities wraps activity listings with a cursor.
type PaginatedActivities struct {
	Items      []Activity `json:"items"`
	NextCursor *int64     `json:"next_cursor,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Chat sends one message to the assistant. conversationID and model may be
// empty; the server starts a new conversation and uses the default model.
func (c *Client) Chat(ctx context.Context, conversationID, message, model string) (ChatResult, error) {
	body := map[string]any{"message": message}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	if model != "" {
		body["model"] = model
	}
	var resp ChatResult
	err := c.do(ctx, http.MethodPost, "v0/chat", body, &resp)
	return resp, err
}

// Models lists the whitelisted AI models.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var resp []Model
	err := c.do(ctx, http.MethodGet, "v0/models", nil, &resp)
	return resp, err
}

// CreateProject creates a project from explicit fields.
func (c *Client) CreateProject(ctx context.Context, name string, fields map[string]any) (Project, error) {
	body := map[string]any{"name": name}
	for k, v := range fields {
		body[k] = v
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

// CreateTask creates a task from explicit fields.
func (c *Client) CreateTask(ctx context.Context, title string, fields map[string]any) (Task, error) {
	body := map[string]any{"title": title}
	for k, v := range fields {
		body[k] = v
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks", body, &resp)
	return resp, err
}

// Projects lists the tenant's projects.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var resp []Project
	err := c.do(ctx, http.MethodGet, "v0/projects", nil, &resp)
	return resp, err
}

// Tasks lists tasks, optionally filtered by project.
func (c *Client) Tasks(ctx context.Context, projectID string) ([]Task, error) {
	endpoint := "v0/tasks"
	if projectID != "" {
		endpoint = fmt.Sprintf("%s?project_id=%s", endpoint, url.QueryEscape(projectID))
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Activities returns a page of the activity feed.
func (c *Client) Activities(ctx context.Context, limit int, cursor int64) (PaginatedActivities, error) {
	endpoint := "v0/activities"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%d", endpoint, sep, cursor)
	}
	var resp PaginatedActivities
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
