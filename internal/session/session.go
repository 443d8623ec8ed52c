// Package session stores the per-conversation state between turns.
//
// A conversation has a single writer, so stores only need last-write-wins
// semantics; there is no locking across turns.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/intake/gate"
	"leadchat_backend/internal/pricing"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// DefaultTTL applies when a store is built with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// Session is everything kept for one conversation.
type Session struct {
	ID        string                   `json:"id"`
	State     domain.ConversationState `json:"state"`
	Gate      gate.Gate                `json:"gate"`
	LeadID    *uuid.UUID               `json:"leadId,omitempty"`
	Estimate  *pricing.EstimateResult  `json:"estimate,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// New starts an empty session with a fresh ID.
func New(now time.Time) Session {
	now = now.UTC()
	return Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

// Store persists sessions for a bounded time after their last write.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}
