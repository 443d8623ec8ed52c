package leadstore

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadchat_backend/internal/notification"
	"leadchat_backend/internal/pricing"
)

func TestRowRoundTripKeepsAbsence(t *testing.T) {
	rec := notification.LeadRecord{
		LeadID:    uuid.New(),
		SessionID: "s-1",
		Name:      notification.Some("Jo Bloggs"),
		Budget:    notification.Some(8000),
		Estimate:  notification.Some(int64(9100)),
		Area:      notification.Some(42.5),
		LineItems: []pricing.LineItem{{Code: pricing.CodeMaterials, Label: "Slabs", AmountPence: 150000, Kind: pricing.KindMaterial}},
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	v, err := toRow(rec)
	if err != nil {
		t.Fatalf("toRow: %v", err)
	}
	if v.Phone != nil || v.Email != nil || v.ExcavatorAccess != nil {
		t.Fatalf("absent values must map to NULL")
	}
	if v.Upsells == nil {
		t.Fatalf("upsells must never be NULL")
	}

	back, err := v.record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if name, _ := back.Name.Get(); name != "Jo Bloggs" {
		t.Errorf("name = %q", name)
	}
	if back.Phone.Provided() {
		t.Errorf("phone came back provided")
	}
	if len(back.LineItems) != 1 || back.LineItems[0].AmountPence != 150000 {
		t.Errorf("line items = %+v", back.LineItems)
	}
}

func TestToRowDefaultsCreatedAt(t *testing.T) {
	v, err := toRow(notification.LeadRecord{LeadID: uuid.New()})
	if err != nil {
		t.Fatalf("toRow: %v", err)
	}
	if v.CreatedAt.IsZero() || string(v.LineItems) != "[]" {
		t.Fatalf("unexpected defaults %+v", v)
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	raw, err := fs.ReadFile(Migrations(), "00001_create_leads.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(raw), "-- +goose Up") || !strings.Contains(string(raw), "CREATE TABLE IF NOT EXISTS leads") {
		t.Fatalf("unexpected migration content")
	}
}

func TestMigrationsApplyInOrder(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), ".")
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"00001_create_leads.sql", "00002_lead_delivery.sql"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("migrations = %v, want %v", names, want)
	}
	raw, err := fs.ReadFile(Migrations(), "00002_lead_delivery.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(raw), "notified_at") || !strings.Contains(string(raw), "-- +goose Down") {
		t.Fatalf("delivery migration incomplete")
	}
}

func TestUnconfiguredRepository(t *testing.T) {
	var r *Repository
	ctx := context.Background()
	if err := r.SaveLead(ctx, notification.LeadRecord{LeadID: uuid.New()}); err == nil {
		t.Fatalf("expected an error from a nil repository")
	}
	if err := r.MarkNotified(ctx, uuid.New()); err == nil {
		t.Fatalf("MarkNotified: expected an error from a nil repository")
	}
	if err := r.MarkNotifyFailed(ctx, uuid.New(), "boom"); err == nil {
		t.Fatalf("MarkNotifyFailed: expected an error from a nil repository")
	}
}
