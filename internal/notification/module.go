// Package notification hands qualified leads to the business: it persists
// the flat lead record and emails it, either directly or through an asynq
// queue drained by the worker.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"leadchat_backend/internal/email"
	"leadchat_backend/internal/events"
	"leadchat_backend/platform/config"
	"leadchat_backend/platform/logger"
)

// LeadStore persists lead records.
type LeadStore interface {
	SaveLead(ctx context.Context, rec LeadRecord) error
}

// DeliveryRecorder tracks notification attempts per lead.
type DeliveryRecorder interface {
	MarkNotified(ctx context.Context, id uuid.UUID) error
	MarkNotifyFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// Module handles lead notification event subscriptions.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
	store  LeadStore
	queue  Enqueuer
	record DeliveryRecorder
}

func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{sender: sender, cfg: cfg, log: log}
}

func (m *Module) Name() string { return "notification" }

// SetLeadStore injects the repository qualified leads are saved to.
func (m *Module) SetLeadStore(s LeadStore) { m.store = s }

// SetDeliveryRecorder enables per-lead delivery tracking.
func (m *Module) SetDeliveryRecorder(r DeliveryRecorder) { m.record = r }

// SetQueue routes delivery through a queue instead of sending inline.
func (m *Module) SetQueue(q Enqueuer) { m.queue = q }

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadQualified{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadQualified:
		return m.handleLeadQualified(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadQualified(ctx context.Context, e events.LeadQualified) error {
	estimate := e.Estimate
	rec := BuildLeadRecord(e.LeadID, e.SessionID, e.State, &estimate, e.OccurredAt())

	var errs []error
	if m.store != nil {
		if err := m.store.SaveLead(ctx, rec); err != nil {
			m.log.DatabaseError("save_lead", err)
			errs = append(errs, fmt.Errorf("save lead: %w", err))
		}
	}

	if m.queue != nil {
		err := m.queue.EnqueueLeadNotification(ctx, rec)
		if err == nil {
			return errors.Join(errs...)
		}
		m.log.Warn("lead notification enqueue failed, sending inline", "lead_id", rec.LeadID, "error", err)
	}

	if err := m.Deliver(ctx, rec); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Deliver emails rec to the configured lead address.
func (m *Module) Deliver(ctx context.Context, rec LeadRecord) error {
	to := ""
	if m.cfg != nil {
		to = m.cfg.GetLeadNotifyAddress()
	}
	if to == "" {
		m.log.Debug("lead notification skipped, no recipient configured", "lead_id", rec.LeadID)
		return nil
	}
	if _, noop := m.sender.(email.NoopSender); noop {
		m.log.Debug("lead notification skipped, email disabled", "lead_id", rec.LeadID)
		return nil
	}
	if err := m.sender.SendLeadNotification(ctx, to, rec.Notification()); err != nil {
		if m.record != nil {
			if rerr := m.record.MarkNotifyFailed(ctx, rec.LeadID, err.Error()); rerr != nil {
				m.log.DatabaseError("mark_notify_failed", rerr)
			}
		}
		return fmt.Errorf("send lead notification %s: %w", rec.LeadID, err)
	}
	if m.record != nil {
		if err := m.record.MarkNotified(ctx, rec.LeadID); err != nil {
			m.log.DatabaseError("mark_notified", err)
		}
	}
	m.log.Info("lead notification sent", "lead_id", rec.LeadID)
	return nil
}
