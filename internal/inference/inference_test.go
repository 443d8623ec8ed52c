package inference

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/pricing"
)

type fakeLLM struct {
	reply string
	err   error
	block bool
	last  *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	f.last = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.block {
			<-ctx.Done()
			yield(nil, ctx.Err())
			return
		}
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{genai.NewPartFromText(f.reply)},
		}}, nil)
	}
}

func TestFallbackExtractParsesFencedJSON(t *testing.T) {
	llm := &fakeLLM{reply: "```json\n{\"service\": \"Decking\", \"length\": 4, \"width\": 3, \"slope\": \"steep\", \"phone\": \"07400 123456\", \"email\": \"Jo@Example.com\", \"reply\": \"Lovely, thanks!\"}\n```"}
	f := NewFallback(llm, time.Second, nil)

	res, err := f.Extract(context.Background(), domain.ConversationState{}, "a deck about four by three on a steep bit", domain.FieldDimensions)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	ex := res.Extraction
	if ex.Service == nil || *ex.Service != domain.ServiceDecking {
		t.Errorf("service = %v", ex.Service)
	}
	if ex.Length == nil || *ex.Length != 4 || ex.Width == nil || *ex.Width != 3 || ex.Area != nil {
		t.Errorf("unexpected geometry %v %v %v", ex.Length, ex.Width, ex.Area)
	}
	if ex.Slope == nil || *ex.Slope != domain.SlopeSteep {
		t.Errorf("slope = %v", ex.Slope)
	}
	if ex.Phone == nil || *ex.Phone != "+447400123456" {
		t.Errorf("phone = %v", ex.Phone)
	}
	if ex.Email == nil || *ex.Email != "jo@example.com" {
		t.Errorf("email = %v", ex.Email)
	}
	if res.Reply != "Lovely, thanks!" {
		t.Errorf("reply = %q", res.Reply)
	}
	if llm.last == nil || llm.last.Config == nil || llm.last.Config.ResponseMIMEType != "application/json" {
		t.Errorf("expected a JSON request config")
	}
}

func TestFallbackDropsMalformedValues(t *testing.T) {
	llm := &fakeLLM{reply: `{"service": "swimming pool", "materialTier": "gold", "slope": "vertical", "area": -4, "budget": 12, "email": "not-an-email", "fullName": "call me at 0777", "gateCount": -1}`}
	res, err := NewFallback(llm, time.Second, nil).Extract(context.Background(), domain.ConversationState{}, "???", domain.FieldNone)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Extraction.IsEmpty() {
		t.Fatalf("expected every malformed value to be dropped, got %+v", res.Extraction)
	}
}

func TestFallbackDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"transport error", &fakeLLM{err: errors.New("connection refused")}},
		{"not json", &fakeLLM{reply: "Sure! The patio sounds great."}},
		{"empty", &fakeLLM{reply: "  "}},
		{"timeout", &fakeLLM{block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewFallback(tt.llm, 20*time.Millisecond, nil).Extract(context.Background(), domain.ConversationState{}, "hello", domain.FieldService)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !res.Extraction.IsEmpty() || res.Reply != "" {
				t.Fatalf("expected empty result, got %+v", res)
			}
		})
	}
}

func TestFallbackPromptOmitsHistory(t *testing.T) {
	state := domain.ConversationState{}.WithService(domain.ServiceFencing).WithMessage(domain.RoleUser, "secret earlier text")
	prompt, err := fallbackPrompt(state, "twenty metres", domain.FieldDimensions)
	if err != nil {
		t.Fatalf("fallbackPrompt: %v", err)
	}
	if strings.Contains(prompt, "secret earlier text") {
		t.Fatalf("history leaked into prompt: %s", prompt)
	}
	if !strings.Contains(prompt, `"askingAbout":"dimensions"`) || !strings.Contains(prompt, "fencing") {
		t.Fatalf("prompt missing context: %s", prompt)
	}
}

func baseline(t *testing.T) (domain.ValidatedProjectInput, pricing.EstimateResult) {
	t.Helper()
	in := domain.ValidatedProjectInput{
		Service:        domain.ServiceHardscaping,
		DrivewayAccess: true,
		Slope:          domain.SlopeFlat,
		Length:         10,
		Width:          10,
		Area:           100,
		MaterialTier:   domain.TierStandard,
	}
	r, err := pricing.NewEngine(nil).Estimate(in)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	return in, r
}

func TestExplainAcceptsCloseEstimate(t *testing.T) {
	in, base := baseline(t)
	llm := &fakeLLM{reply: `{"low": 10500, "estimate": 11800, "high": 13000, "narrative": "A porcelain-free patio of 100 m²."}`}

	got, err := NewExplainer(llm, time.Second, nil).Explain(context.Background(), in, base)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got.Estimate != 11800 || got.Low != 10500 || got.High != 13000 {
		t.Fatalf("unexpected figures %d/%d/%d", got.Low, got.Estimate, got.High)
	}
	if got.Narrative != "A porcelain-free patio of 100 m²." {
		t.Errorf("narrative = %q", got.Narrative)
	}
	if len(got.LineItems) != len(base.LineItems) {
		t.Errorf("line items must come from the baseline")
	}
}

func TestExplainRejectsBadEstimates(t *testing.T) {
	in, base := baseline(t)
	tests := []struct {
		name  string
		reply string
	}{
		{"far off", `{"low": 1000, "estimate": 2000, "high": 3000}`},
		{"out of order", `{"low": 12000, "estimate": 11000, "high": 13000}`},
		{"missing", `{"estimate": 11000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExplainer(&fakeLLM{reply: tt.reply}, time.Second, nil).Explain(context.Background(), in, base)
			if !errors.Is(err, ErrRejectedEstimate) {
				t.Fatalf("expected ErrRejectedEstimate, got %v", err)
			}
			if got.Estimate != base.Estimate || got.Narrative != base.Narrative {
				t.Fatalf("baseline must be returned unchanged")
			}
		})
	}
}

func TestExplainFallsBackOnTransportError(t *testing.T) {
	in, base := baseline(t)
	got, err := NewExplainer(&fakeLLM{err: errors.New("503")}, time.Second, nil).Explain(context.Background(), in, base)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got.Estimate != base.Estimate {
		t.Fatalf("baseline must be returned unchanged")
	}
}
