package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient talks to the Gemini REST API over plain HTTP. Live models
// only answer on the streaming endpoint, so CompleteStream aggregates the
// SSE chunks into a single completion.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiClient(apiKey string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *GeminiClient) buildRequest(req CompletionRequest) geminiRequest {
	contents := make([]geminiContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	body := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	return body
}

func upstreamErrorFromBody(status int, body []byte) error {
	var eb geminiErrorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
		return &UpstreamError{StatusCode: status, Message: eb.Error.Message}
	}
	return &UpstreamError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

// Complete sends one generateContent call. Model selection and fallback are
// the caller's business; this method makes exactly one attempt.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, &UpstreamError{Message: "API key not configured"}
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, req.Model, c.apiKey)
	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return Completion{}, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, &UpstreamError{Message: "connection failed: " + err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, &UpstreamError{Message: "read response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return Completion{}, upstreamErrorFromBody(resp.StatusCode, body)
	}

	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return Completion{}, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return Completion{}, &UpstreamError{Message: "no candidates in response"}
	}
	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return Completion{
		Text:  text.String(),
		Model: req.Model,
		Usage: Usage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// CompleteStream calls streamGenerateContent with alt=sse and concatenates
// the chunk texts. Used for live models, which reject the unary endpoint.
func (c *GeminiClient) CompleteStream(ctx context.Context, req CompletionRequest) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, &UpstreamError{Message: "API key not configured"}
	}
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, req.Model, c.apiKey)
	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return Completion{}, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, &UpstreamError{Message: "connection failed: " + err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Completion{}, upstreamErrorFromBody(resp.StatusCode, body)
	}

	var text strings.Builder
	var usage Usage
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Candidates) > 0 {
			for _, p := range chunk.Candidates[0].Content.Parts {
				text.WriteString(p.Text)
			}
		}
		if chunk.UsageMetadata.TotalTokenCount > 0 {
			usage = Usage{
				PromptTokens:     chunk.UsageMetadata.PromptTokenCount,
				CompletionTokens: chunk.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      chunk.UsageMetadata.TotalTokenCount,
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Completion{}, &UpstreamError{Message: "stream read: " + err.Error()}
	}
	if text.Len() == 0 {
		return Completion{}, &UpstreamError{Message: "empty stream response"}
	}
	return Completion{Text: text.String(), Model: req.Model, Usage: usage}, nil
}

type geminiModelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		DisplayName                string   `json:"displayName"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

// ListModels fetches the upstream catalog. Ids come back as "models/<id>";
// the prefix is stripped so the rest of the system never sees it.
func (c *GeminiClient) ListModels(ctx context.Context) ([]Descriptor, error) {
	if c.apiKey == "" {
		return nil, &UpstreamError{Message: "API key not configured"}
	}
	url := fmt.Sprintf("%s/models?key=%s&pageSize=200", c.baseURL, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Message: "connection failed: " + err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Message: "read response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamErrorFromBody(resp.StatusCode, body)
	}
	var list geminiModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	out := make([]Descriptor, 0, len(list.Models))
	for _, m := range list.Models {
		id := strings.TrimPrefix(m.Name, "models/")
		name := m.DisplayName
		if name == "" {
			name = displayName(id)
		}
		live := hasLiveMarker(id)
		out = append(out, Descriptor{
			ID:                         id,
			DisplayName:                name,
			IsLive:                     live,
			SupportsSystemInstructions: !live,
		})
	}
	return out, nil
}
