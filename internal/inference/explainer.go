package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/adk/model"

	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/pricing"
)

const explainSystemPrompt = `You review a ballpark quote for a UK landscaping job.
You receive the project and a computed estimate with its line items, in pounds sterling.
Return one JSON object: {"low": int, "estimate": int, "high": int, "narrative": string}.
Keep the figures close to the computed ones unless a line item is clearly wrong.
The narrative is two or three plain sentences for the customer. No prose outside the JSON.`

// maxDeviation is how far a remote point estimate may drift from the local one.
const maxDeviation = 0.25

// ErrRejectedEstimate is returned when the remote figures are inconsistent
// or too far from the computed baseline.
var ErrRejectedEstimate = errors.New("remote estimate rejected")

type remoteEstimate struct {
	Low       *float64 `json:"low"`
	Estimate  *float64 `json:"estimate"`
	High      *float64 `json:"high"`
	Narrative string   `json:"narrative"`
}

// Explainer asks the remote model to restate a computed estimate.
type Explainer struct {
	call   caller
	engine *pricing.Engine
}

// NewExplainer wires an explainer over llm. The engine classifies priority
// for any adjusted point estimate.
func NewExplainer(llm model.LLM, timeout time.Duration, engine *pricing.Engine) *Explainer {
	if engine == nil {
		engine = pricing.NewEngine(nil)
	}
	return &Explainer{call: newCaller(llm, timeout), engine: engine}
}

type explainPrompt struct {
	Project  domain.ValidatedProjectInput `json:"project"`
	Baseline pricing.EstimateResult       `json:"baseline"`
}

// Explain returns an augmented copy of baseline. Line items always come from
// baseline. On any failure it returns baseline unchanged with the error.
func (e *Explainer) Explain(ctx context.Context, in domain.ValidatedProjectInput, baseline pricing.EstimateResult) (pricing.EstimateResult, error) {
	raw, err := json.Marshal(explainPrompt{Project: in, Baseline: baseline})
	if err != nil {
		return baseline, fmt.Errorf("encode explain prompt: %w", err)
	}
	var remote remoteEstimate
	if err := e.call.generateJSON(ctx, explainSystemPrompt, string(raw), &remote); err != nil {
		return baseline, err
	}
	return e.accept(baseline, remote)
}

func (e *Explainer) accept(baseline pricing.EstimateResult, r remoteEstimate) (pricing.EstimateResult, error) {
	if r.Low == nil || r.Estimate == nil || r.High == nil {
		return baseline, fmt.Errorf("%w: missing figures", ErrRejectedEstimate)
	}
	low, point, high := int64(math.Round(*r.Low)), int64(math.Round(*r.Estimate)), int64(math.Round(*r.High))
	if low <= 0 || low > point || point > high {
		return baseline, fmt.Errorf("%w: bounds %d/%d/%d out of order", ErrRejectedEstimate, low, point, high)
	}
	if baseline.Estimate > 0 {
		drift := math.Abs(float64(point-baseline.Estimate)) / float64(baseline.Estimate)
		if drift > maxDeviation {
			return baseline, fmt.Errorf("%w: %d drifts %.0f%% from %d", ErrRejectedEstimate, point, drift*100, baseline.Estimate)
		}
	}

	out := baseline
	out.LineItems = append([]pricing.LineItem(nil), baseline.LineItems...)
	out.Low, out.Estimate, out.High = low, point, high
	out.Priority = e.engine.PriorityFor(point)
	if narrative := strings.TrimSpace(r.Narrative); narrative != "" {
		out.Narrative = narrative
	}
	return out, nil
}
