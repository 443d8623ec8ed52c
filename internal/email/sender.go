package email

import (
	"context"
	"fmt"

	"leadchat_backend/platform/config"
)

// Row is one label/value line of a notification. Value already carries
// "not provided" for absent facts.
type Row struct {
	Label string
	Value string
}

// LeadNotification is the rendered content of a new-lead email.
type LeadNotification struct {
	LeadID    string
	Service   string
	Priority  string
	Range     string
	Rows      []Row
	LineItems []Row
	Narrative string
}

type Sender interface {
	SendLeadNotification(ctx context.Context, toEmail string, lead LeadNotification) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadNotification(ctx context.Context, toEmail string, lead LeadNotification) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when SMTP is disabled.
func NewSender(cfg config.SMTPConfig) (Sender, error) {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}, nil
	}
	if cfg.GetSMTPPort() <= 0 {
		return nil, fmt.Errorf("invalid SMTP port %d", cfg.GetSMTPPort())
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
