package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("CORS_ORIGINS", "https://widget.example.com, https://www.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetSessionTTL() != 24*time.Hour {
		t.Fatalf("expected 24h session ttl, got %s", cfg.GetSessionTTL())
	}
	if len(cfg.GetCORSOrigins()) != 2 {
		t.Fatalf("expected 2 cors origins, got %v", cfg.GetCORSOrigins())
	}
	if cfg.IsEmailEnabled() {
		t.Fatalf("expected email disabled without SMTP_HOST")
	}
}

func TestLoadWildcardOriginEnablesAllowAll(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("SMTP_HOST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.GetCORSAllowAll() {
		t.Fatalf("expected wildcard origin to enable CORSAllowAll")
	}
}

func TestLoadRequiresSenderWhenSMTPConfigured(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when EMAIL_FROM_ADDRESS is missing")
	}
}

func TestLoadRejectsInvalidSessionTTL(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SESSION_TTL", "forever")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unparsable SESSION_TTL")
	}
}
