package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/adk/model"

	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/platform/phone"
	platformvalidator "leadchat_backend/platform/validator"
)

const fallbackSystemPrompt = `You read one message from a customer asking a UK landscaping company for a quote.
Return a single JSON object with only the keys you are confident about:
service (hardscaping|decking|mowing|planting|fencing|framing|landscaping),
length, width, area (metres / square metres), materialTier (standard|premium|luxury),
excavatorAccess, drivewayAccess, demolition, overgrown (booleans),
slope (flat|moderate|steep), subBase (soil|clay|sand|rock|hardstanding),
deckHeight (metres), gateCount (integer), upsells (array of strings),
fullName, phone, email, budget (whole pounds), postcode, startTiming, soilNote,
and reply (one short friendly sentence). Omit anything not stated. No prose outside the JSON.`

// Result is the remote reading of one utterance.
type Result struct {
	Extraction domain.Extraction
	Reply      string
}

// remoteFacts mirrors the JSON the model is asked for. Every key is optional.
type remoteFacts struct {
	Service         *string  `json:"service"`
	Length          *float64 `json:"length"`
	Width           *float64 `json:"width"`
	Area            *float64 `json:"area"`
	MaterialTier    *string  `json:"materialTier"`
	ExcavatorAccess *bool    `json:"excavatorAccess"`
	DrivewayAccess  *bool    `json:"drivewayAccess"`
	Slope           *string  `json:"slope"`
	Demolition      *bool    `json:"demolition"`
	SubBase         *string  `json:"subBase"`
	DeckHeight      *float64 `json:"deckHeight"`
	Overgrown       *bool    `json:"overgrown"`
	GateCount       *int     `json:"gateCount"`
	Upsells         []string `json:"upsells"`
	FullName        *string  `json:"fullName"`
	Phone           *string  `json:"phone"`
	Email           *string  `json:"email"`
	Budget          *float64 `json:"budget"`
	Postcode        *string  `json:"postcode"`
	StartTiming     *string  `json:"startTiming"`
	SoilNote        *string  `json:"soilNote"`
	Reply           string   `json:"reply"`
}

// Fallback asks the remote model to read an utterance the local rules could
// not resolve for the asked field.
type Fallback struct {
	call caller
	val  *platformvalidator.Validator
}

// NewFallback wires a fallback over llm. A non-positive timeout selects
// DefaultTimeout.
func NewFallback(llm model.LLM, timeout time.Duration, val *platformvalidator.Validator) *Fallback {
	if val == nil {
		val = platformvalidator.New()
	}
	return &Fallback{call: newCaller(llm, timeout), val: val}
}

// Extract returns the facts the model found. On any failure the result is
// empty and the error says why; the conversation carries on without it.
func (f *Fallback) Extract(ctx context.Context, state domain.ConversationState, utterance string, asking domain.Field) (Result, error) {
	prompt, err := fallbackPrompt(state, utterance, asking)
	if err != nil {
		return Result{}, err
	}
	var facts remoteFacts
	if err := f.call.generateJSON(ctx, fallbackSystemPrompt, prompt, &facts); err != nil {
		return Result{}, err
	}
	return Result{Extraction: f.toExtraction(facts), Reply: strings.TrimSpace(facts.Reply)}, nil
}

type promptContext struct {
	Asking    string                   `json:"askingAbout"`
	Known     domain.ConversationState `json:"known"`
	Utterance string                   `json:"message"`
}

func fallbackPrompt(state domain.ConversationState, utterance string, asking domain.Field) (string, error) {
	known := state
	known.History = nil
	raw, err := json.Marshal(promptContext{Asking: asking.String(), Known: known, Utterance: utterance})
	if err != nil {
		return "", fmt.Errorf("encode fallback prompt: %w", err)
	}
	return string(raw), nil
}

// toExtraction keeps only values that are well-formed for their slot.
func (f *Fallback) toExtraction(r remoteFacts) domain.Extraction {
	var ex domain.Extraction

	if r.Service != nil {
		if svc := domain.Service(strings.ToLower(strings.TrimSpace(*r.Service))); svc.Valid() {
			ex.Service = &svc
		}
	}
	if positive(r.Length) && positive(r.Width) {
		ex.Length, ex.Width = r.Length, r.Width
	} else if positive(r.Area) {
		ex.Area = r.Area
	}
	if r.MaterialTier != nil {
		if t := domain.Tier(strings.ToLower(strings.TrimSpace(*r.MaterialTier))); t.Valid() {
			ex.MaterialTier = &t
		}
	}
	ex.ExcavatorAccess = r.ExcavatorAccess
	ex.DrivewayAccess = r.DrivewayAccess
	ex.Demolition = r.Demolition
	ex.Overgrown = r.Overgrown
	if r.Slope != nil {
		if s := domain.Slope(strings.ToLower(strings.TrimSpace(*r.Slope))); s.Valid() {
			ex.Slope = &s
		}
	}
	if r.SubBase != nil {
		if b := domain.SubBase(strings.ToLower(strings.TrimSpace(*r.SubBase))); b.Valid() {
			ex.SubBase = &b
		}
	}
	if positive(r.DeckHeight) && *r.DeckHeight <= 5 {
		ex.DeckHeight = r.DeckHeight
	}
	if r.GateCount != nil && *r.GateCount >= 0 && *r.GateCount <= 20 {
		ex.GateCount = r.GateCount
	}
	for _, u := range r.Upsells {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
			ex.Upsells = append(ex.Upsells, u)
		}
	}

	if name := trimmed(r.FullName); name != "" && len(strings.Fields(name)) <= 4 && !strings.ContainsAny(name, "@0123456789") {
		ex.FullName = &name
	}
	if p := trimmed(r.Phone); p != "" {
		if normalized, ok := phone.Accept(p); ok {
			ex.Phone = &normalized
		}
	}
	if e := strings.ToLower(trimmed(r.Email)); e != "" && f.val.Var(e, "email") == nil {
		ex.Email = &e
	}
	if r.Budget != nil && *r.Budget >= 100 && *r.Budget < 10_000_000 {
		ex.Budget = domain.Ptr(int(math.Round(*r.Budget)))
	}
	if pc := strings.ToUpper(trimmed(r.Postcode)); pc != "" {
		ex.Postcode = &pc
	}
	if s := trimmed(r.StartTiming); s != "" {
		ex.StartTiming = &s
	}
	if s := trimmed(r.SoilNote); s != "" {
		ex.SoilNote = &s
	}
	return ex
}

func positive(v *float64) bool {
	return v != nil && *v > 0 && !math.IsInf(*v, 1)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
