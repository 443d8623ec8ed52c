// Package openaicompat adapts any OpenAI-compatible chat completions API to
// the ADK model.LLM interface.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Config for the endpoint
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Model adapts an OpenAI-compatible endpoint to model.LLM
type Model struct {
	config Config
	client *http.Client
}

func NewModel(cfg Config) *Model {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &Model{
		config: cfg,
		client: &http.Client{},
	}
}

// NewModelWithClient is NewModel with a caller-supplied HTTP client.
func NewModelWithClient(cfg Config, client *http.Client) *Model {
	m := NewModel(cfg)
	if client != nil {
		m.client = client
	}
	return m
}

func (m *Model) Name() string {
	return m.config.Model
}

// GenerateContent adapts ADK requests to the chat completions API. Streaming
// is not supported; one response is always yielded.
func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

func (m *Model) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	payload := map[string]interface{}{
		"model":    m.config.Model,
		"messages": convertMessages(req),
	}
	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			payload["temperature"] = float64(*cfg.Temperature)
		}
		if cfg.MaxOutputTokens > 0 {
			payload["max_tokens"] = cfg.MaxOutputTokens
		}
		if cfg.ResponseMIMEType == "application/json" {
			payload["response_format"] = map[string]string{"type": "json_object"}
		}
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(m.config.BaseURL, "/")+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode chat completions response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("chat completions error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("chat completions error: empty choices")
	}

	content := result.Choices[0].Message.Content
	parts := make([]*genai.Part, 0, 1)
	if strings.TrimSpace(content) != "" {
		parts = append(parts, genai.NewPartFromText(content))
	}
	return &model.LLMResponse{
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: parts,
		},
	}, nil
}

func convertMessages(req *model.LLMRequest) []chatMessage {
	messages := make([]chatMessage, 0, len(req.Contents)+1)
	if req.Config != nil && req.Config.SystemInstruction != nil {
		if text := joinText(req.Config.SystemInstruction); text != "" {
			messages = append(messages, chatMessage{Role: "system", Content: text})
		}
	}
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		if text := joinText(content); text != "" {
			messages = append(messages, chatMessage{Role: roleForContent(content.Role), Content: text})
		}
	}
	return messages
}

func roleForContent(role string) string {
	if role == genai.RoleModel {
		return "assistant"
	}
	return "user"
}

func joinText(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || strings.TrimSpace(part.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
