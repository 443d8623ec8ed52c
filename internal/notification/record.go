package notification

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadchat_backend/internal/email"
	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/pricing"
	"leadchat_backend/platform/phone"
)

// NotProvided is how an absent fact is rendered to people.
const NotProvided = "not provided"

// Maybe is a value whose absence is explicit. It marshals to
// {"provided":false} or {"provided":true,"value":...}, never to a missing key.
type Maybe[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Maybe[T] { return Maybe[T]{value: v, ok: true} }

func None[T any]() Maybe[T] { return Maybe[T]{} }

// FromPtr treats nil as absent.
func FromPtr[T any](p *T) Maybe[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

func (m Maybe[T]) Get() (T, bool) { return m.value, m.ok }

func (m Maybe[T]) Provided() bool { return m.ok }

// Ptr returns nil when absent.
func (m Maybe[T]) Ptr() *T {
	if !m.ok {
		return nil
	}
	v := m.value
	return &v
}

type maybeJSON[T any] struct {
	Provided bool `json:"provided"`
	Value    *T   `json:"value,omitempty"`
}

func (m Maybe[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(maybeJSON[T]{Provided: m.ok, Value: m.Ptr()})
}

func (m *Maybe[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = None[T]()
		return nil
	}
	var raw maybeJSON[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Provided && raw.Value != nil {
		*m = Some(*raw.Value)
	} else {
		*m = None[T]()
	}
	return nil
}

func display[T any](m Maybe[T], format func(T) string) string {
	v, ok := m.Get()
	if !ok {
		return NotProvided
	}
	return format(v)
}

// LeadRecord is the flat hand-off of one qualified conversation.
type LeadRecord struct {
	LeadID          uuid.UUID          `json:"leadId"`
	SessionID       string             `json:"sessionId"`
	Name            Maybe[string]      `json:"name"`
	Phone           Maybe[string]      `json:"phone"`
	Email           Maybe[string]      `json:"email"`
	Budget          Maybe[int]         `json:"budget"`
	EstimateLow     Maybe[int64]       `json:"estimateLow"`
	Estimate        Maybe[int64]       `json:"estimate"`
	EstimateHigh    Maybe[int64]       `json:"estimateHigh"`
	Priority        Maybe[string]      `json:"priority"`
	Service         Maybe[string]      `json:"service"`
	Area            Maybe[float64]     `json:"area"`
	Postcode        Maybe[string]      `json:"postcode"`
	StartTiming     Maybe[string]      `json:"startTiming"`
	SoilNote        Maybe[string]      `json:"soilNote"`
	ExcavatorAccess Maybe[bool]        `json:"excavatorAccess"`
	Upsells         []string           `json:"upsells"`
	LineItems       []pricing.LineItem `json:"lineItems"`
	Narrative       string             `json:"narrative"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// BuildLeadRecord flattens the fact set and, when present, its estimate.
func BuildLeadRecord(leadID uuid.UUID, sessionID string, state domain.ConversationState, estimate *pricing.EstimateResult, now time.Time) LeadRecord {
	rec := LeadRecord{
		LeadID:          leadID,
		SessionID:       sessionID,
		Name:            FromPtr(state.FullName),
		Email:           FromPtr(state.Email),
		Budget:          FromPtr(state.Budget),
		Postcode:        FromPtr(state.Postcode),
		StartTiming:     FromPtr(state.StartTiming),
		SoilNote:        FromPtr(state.SoilNote),
		ExcavatorAccess: FromPtr(state.ExcavatorAccess),
		Upsells:         append([]string{}, state.Upsells...),
		CreatedAt:       now.UTC(),
	}
	if state.Phone != nil {
		rec.Phone = Some(phone.NormalizeE164(*state.Phone))
	}
	if state.Service != nil {
		rec.Service = Some(string(*state.Service))
	}
	if area, ok := state.EffectiveArea(); ok {
		rec.Area = Some(area)
	}
	if estimate != nil {
		rec.EstimateLow = Some(estimate.Low)
		rec.Estimate = Some(estimate.Estimate)
		rec.EstimateHigh = Some(estimate.High)
		rec.Priority = Some(string(estimate.Priority))
		rec.LineItems = append([]pricing.LineItem{}, estimate.LineItems...)
		rec.Narrative = estimate.Narrative
	}
	return rec
}

// Notification renders the record for the email template.
func (r LeadRecord) Notification() email.LeadNotification {
	pounds := func(v int64) string { return pricing.FormatWholePounds(v) }
	str := func(v string) string { return v }
	unit := "m²"
	if svc, ok := r.Service.Get(); ok {
		unit = domain.Service(svc).Unit()
	}

	rangeText := NotProvided
	low, okLow := r.EstimateLow.Get()
	high, okHigh := r.EstimateHigh.Get()
	if okLow && okHigh {
		rangeText = pounds(low) + " to " + pounds(high)
	}

	upsells := NotProvided
	if len(r.Upsells) > 0 {
		upsells = strings.Join(r.Upsells, ", ")
	}

	n := email.LeadNotification{
		LeadID:   r.LeadID.String(),
		Service:  display(r.Service, str),
		Priority: display(r.Priority, str),
		Range:    rangeText,
		Rows: []email.Row{
			{Label: "Name", Value: display(r.Name, str)},
			{Label: "Phone", Value: display(r.Phone, str)},
			{Label: "Email", Value: display(r.Email, str)},
			{Label: "Budget", Value: display(r.Budget, func(v int) string { return pounds(int64(v)) })},
			{Label: "Estimate", Value: display(r.Estimate, pounds)},
			{Label: "Priority", Value: display(r.Priority, str)},
			{Label: "Service", Value: display(r.Service, str)},
			{Label: "Size", Value: display(r.Area, func(v float64) string {
				return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
			})},
			{Label: "Postcode", Value: display(r.Postcode, str)},
			{Label: "Start", Value: display(r.StartTiming, str)},
			{Label: "Soil", Value: display(r.SoilNote, str)},
			{Label: "Digger access", Value: display(r.ExcavatorAccess, yesNo)},
			{Label: "Also interested in", Value: upsells},
		},
		Narrative: r.Narrative,
	}
	for _, li := range r.LineItems {
		n.LineItems = append(n.LineItems, email.Row{Label: li.Label, Value: pricing.FormatPence(li.AmountPence)})
	}
	return n
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
