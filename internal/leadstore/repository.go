// Package leadstore persists qualified lead records in Postgres.
package leadstore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadchat_backend/internal/notification"
	"leadchat_backend/internal/pricing"
	"leadchat_backend/platform/apperr"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the goose migrations for the leads table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const errRepoNotConfigured = "lead repository not configured"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// row is the column form of a lead record; nil pointers are NULLs.
type row struct {
	ID              uuid.UUID
	SessionID       string
	FullName        *string
	Phone           *string
	Email           *string
	Budget          *int
	EstimateLow     *int64
	Estimate        *int64
	EstimateHigh    *int64
	Priority        *string
	Service         *string
	Area            *float64
	Postcode        *string
	StartTiming     *string
	SoilNote        *string
	ExcavatorAccess *bool
	Upsells         []string
	LineItems       []byte
	Narrative       string
	CreatedAt       time.Time
}

func toRow(rec notification.LeadRecord) (row, error) {
	items := rec.LineItems
	if items == nil {
		items = []pricing.LineItem{}
	}
	lineItems, err := json.Marshal(items)
	if err != nil {
		return row{}, fmt.Errorf("marshal line items: %w", err)
	}
	upsells := rec.Upsells
	if upsells == nil {
		upsells = []string{}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return row{
		ID:              rec.LeadID,
		SessionID:       rec.SessionID,
		FullName:        rec.Name.Ptr(),
		Phone:           rec.Phone.Ptr(),
		Email:           rec.Email.Ptr(),
		Budget:          rec.Budget.Ptr(),
		EstimateLow:     rec.EstimateLow.Ptr(),
		Estimate:        rec.Estimate.Ptr(),
		EstimateHigh:    rec.EstimateHigh.Ptr(),
		Priority:        rec.Priority.Ptr(),
		Service:         rec.Service.Ptr(),
		Area:            rec.Area.Ptr(),
		Postcode:        rec.Postcode.Ptr(),
		StartTiming:     rec.StartTiming.Ptr(),
		SoilNote:        rec.SoilNote.Ptr(),
		ExcavatorAccess: rec.ExcavatorAccess.Ptr(),
		Upsells:         upsells,
		LineItems:       lineItems,
		Narrative:       rec.Narrative,
		CreatedAt:       createdAt,
	}, nil
}

func (r row) record() (notification.LeadRecord, error) {
	var items []pricing.LineItem
	if len(r.LineItems) > 0 {
		if err := json.Unmarshal(r.LineItems, &items); err != nil {
			return notification.LeadRecord{}, fmt.Errorf("unmarshal line items: %w", err)
		}
	}
	return notification.LeadRecord{
		LeadID:          r.ID,
		SessionID:       r.SessionID,
		Name:            notification.FromPtr(r.FullName),
		Phone:           notification.FromPtr(r.Phone),
		Email:           notification.FromPtr(r.Email),
		Budget:          notification.FromPtr(r.Budget),
		EstimateLow:     notification.FromPtr(r.EstimateLow),
		Estimate:        notification.FromPtr(r.Estimate),
		EstimateHigh:    notification.FromPtr(r.EstimateHigh),
		Priority:        notification.FromPtr(r.Priority),
		Service:         notification.FromPtr(r.Service),
		Area:            notification.FromPtr(r.Area),
		Postcode:        notification.FromPtr(r.Postcode),
		StartTiming:     notification.FromPtr(r.StartTiming),
		SoilNote:        notification.FromPtr(r.SoilNote),
		ExcavatorAccess: notification.FromPtr(r.ExcavatorAccess),
		Upsells:         r.Upsells,
		LineItems:       items,
		Narrative:       r.Narrative,
		CreatedAt:       r.CreatedAt,
	}, nil
}

const selectColumns = `id, session_id, full_name, phone, email, budget, estimate_low, estimate, estimate_high,
	priority, service, area, postcode, start_timing, soil_note, excavator_access, upsells, line_items,
	narrative, created_at`

func (r *row) scanTargets() []any {
	return []any{
		&r.ID, &r.SessionID, &r.FullName, &r.Phone, &r.Email, &r.Budget, &r.EstimateLow, &r.Estimate, &r.EstimateHigh,
		&r.Priority, &r.Service, &r.Area, &r.Postcode, &r.StartTiming, &r.SoilNote, &r.ExcavatorAccess, &r.Upsells, &r.LineItems,
		&r.Narrative, &r.CreatedAt,
	}
}

// SaveLead inserts rec. Saving the same lead twice is a no-op.
func (r *Repository) SaveLead(ctx context.Context, rec notification.LeadRecord) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	if rec.LeadID == uuid.Nil {
		return fmt.Errorf("leadId is required")
	}
	v, err := toRow(rec)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO leads (`+selectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 ON CONFLICT (id) DO NOTHING`,
		v.ID, v.SessionID, v.FullName, v.Phone, v.Email, v.Budget, v.EstimateLow, v.Estimate, v.EstimateHigh,
		v.Priority, v.Service, v.Area, v.Postcode, v.StartTiming, v.SoilNote, v.ExcavatorAccess, v.Upsells, v.LineItems,
		v.Narrative, v.CreatedAt,
	)
	return err
}

// GetLead returns the lead with id or a NotFound error.
func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (notification.LeadRecord, error) {
	if r == nil || r.pool == nil {
		return notification.LeadRecord{}, errors.New(errRepoNotConfigured)
	}

	var v row
	err := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM leads WHERE id = $1`, id).Scan(v.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return notification.LeadRecord{}, apperr.NotFound("lead not found").WithOp("leadstore.GetLead")
	}
	if err != nil {
		return notification.LeadRecord{}, err
	}
	return v.record()
}

// MarkNotified records a successful notification for the lead.
func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE leads
		 SET notified_at = now(), notify_attempts = notify_attempts + 1, last_notify_error = NULL
		 WHERE id = $1`,
		id,
	)
	return err
}

// MarkNotifyFailed records a failed delivery attempt.
func (r *Repository) MarkNotifyFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE leads
		 SET notify_attempts = notify_attempts + 1, last_notify_error = $2
		 WHERE id = $1`,
		id, lastError,
	)
	return err
}
