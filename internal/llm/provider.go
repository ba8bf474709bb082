package llm

import "context"

// Message is one turn of the conversation as seen by the provider.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// ChatProvider is the upstream AI vendor. Complete is the plain
// request/response path; CompleteStream is for live models, which only
// speak the streaming transport — it aggregates chunks into one result.
type ChatProvider interface {
	ListModels(ctx context.Context) ([]Descriptor, error)
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	CompleteStream(ctx context.Context, req CompletionRequest) (Completion, error)
}
