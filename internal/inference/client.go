// Package inference calls an optional remote language model for two
// best-effort jobs: extracting facts the local rules missed, and proposing
// an explained estimate next to the deterministic one. Every failure
// degrades to "no result"; callers never see a partial parse.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// DefaultTimeout bounds one remote call when the caller supplies none.
const DefaultTimeout = 4 * time.Second

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

type caller struct {
	llm     model.LLM
	timeout time.Duration
}

func newCaller(llm model.LLM, timeout time.Duration) caller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return caller{llm: llm, timeout: timeout}
}

// generateJSON sends one system+user exchange and decodes the reply into out.
func (c caller) generateJSON(ctx context.Context, system, user string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	temperature := float32(0)
	req := &model.LLMRequest{
		Contents: []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(user)},
		}},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(system)},
			},
			Temperature:      &temperature,
			ResponseMIMEType: "application/json",
		},
	}

	var text strings.Builder
	for resp, err := range c.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return fmt.Errorf("%s: %w", c.llm.Name(), err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				text.WriteString(part.Text)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw := cleanJSONResponse(text.String())
	if raw == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

// cleanJSONResponse removes markdown code fences around a JSON reply.
func cleanJSONResponse(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}
