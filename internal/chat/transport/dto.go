package transport

import (
	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/intake/gate"
	"leadchat_backend/internal/pricing"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// TurnRequest is one user message.
type TurnRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// QuestionView is the next question the widget should show.
type QuestionView struct {
	Field domain.Field `json:"field"`
	Text  string       `json:"text"`
}

// EstimateView is an estimate ready for display. Money fields are whole
// pounds except line item amounts, which stay in pence.
type EstimateView struct {
	Currency  string             `json:"currency"`
	Low       int64              `json:"low"`
	Estimate  int64              `json:"estimate"`
	High      int64              `json:"high"`
	Range     string             `json:"range"`
	Priority  pricing.Priority   `json:"priority"`
	LineItems []pricing.LineItem `json:"lineItems"`
	Narrative string             `json:"narrative"`
}

// NewEstimateView formats r for the widget.
func NewEstimateView(r pricing.EstimateResult) *EstimateView {
	return &EstimateView{
		Currency:  r.Currency,
		Low:       r.Low,
		Estimate:  r.Estimate,
		High:      r.High,
		Range:     pricing.FormatWholePounds(r.Low) + " to " + pricing.FormatWholePounds(r.High),
		Priority:  r.Priority,
		LineItems: r.LineItems,
		Narrative: r.Narrative,
	}
}

// TurnResponse is the assistant's side of one turn.
type TurnResponse struct {
	SessionID    string        `json:"sessionId"`
	Reply        string        `json:"reply"`
	Question     *QuestionView `json:"question,omitempty"`
	QuickReplies []string      `json:"quickReplies"`
	Completeness int           `json:"completeness"`
	Qualified    bool          `json:"qualified"`
	Estimate     *EstimateView `json:"estimate,omitempty"`
}

// SessionResponse is the stored view of a conversation.
type SessionResponse struct {
	SessionID    string                   `json:"sessionId"`
	State        domain.ConversationState `json:"state"`
	Gate         gate.Gate                `json:"gate"`
	Question     *QuestionView            `json:"question,omitempty"`
	QuickReplies []string                 `json:"quickReplies"`
	Estimate     *EstimateView            `json:"estimate,omitempty"`
}

// GateResponse is the strict intake position after a transition.
type GateResponse struct {
	SessionID string            `json:"sessionId"`
	Gate      gate.Gate         `json:"gate"`
	Errors    []gate.FieldError `json:"errors"`
	Complete  bool              `json:"complete"`
	Question  *QuestionView     `json:"question,omitempty"`
}
