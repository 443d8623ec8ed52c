// Package events defines the intake events published on the platform bus.
package events

import (
	"github.com/google/uuid"

	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/pricing"
	"leadchat_backend/platform/events"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// ConversationStarted is published when a new chat session is opened.
type ConversationStarted struct {
	BaseEvent
	SessionID string `json:"sessionId"`
}

func (e ConversationStarted) EventName() string { return "intake.conversation.started" }

// LeadQualified is published once per conversation, when the fact set is
// complete enough to price and the estimate has been computed.
type LeadQualified struct {
	BaseEvent
	LeadID    uuid.UUID                `json:"leadId"`
	SessionID string                   `json:"sessionId"`
	State     domain.ConversationState `json:"state"`
	Estimate  pricing.EstimateResult   `json:"estimate"`
}

func (e LeadQualified) EventName() string { return "intake.lead.qualified" }
