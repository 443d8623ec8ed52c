package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadchat_backend/internal/email"
	"leadchat_backend/internal/events"
	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/pricing"
	"leadchat_backend/platform/logger"
)

type testNotificationConfig struct{ to string }

func (c testNotificationConfig) GetLeadNotifyAddress() string { return c.to }

type testSender struct {
	calls int
	last  email.LeadNotification
	err   error
}

func (s *testSender) SendLeadNotification(_ context.Context, _ string, lead email.LeadNotification) error {
	s.calls++
	s.last = lead
	return s.err
}

type testStore struct{ saved []LeadRecord }

func (s *testStore) SaveLead(_ context.Context, rec LeadRecord) error {
	s.saved = append(s.saved, rec)
	return nil
}

type testQueue struct {
	err   error
	calls int
}

func (q *testQueue) EnqueueLeadNotification(context.Context, LeadRecord) error {
	q.calls++
	return q.err
}

func qualifiedEvent(t *testing.T) events.LeadQualified {
	t.Helper()
	state := domain.ConversationState{}.
		WithService(domain.ServiceHardscaping).
		WithDimensions(10, 10).
		WithMaterialTier(domain.TierStandard).
		WithExcavatorAccess(false).
		WithFullName("Jo Bloggs").
		WithBudget(12000).
		WithPostcode("SW1A 1AA")
	est, err := pricing.NewEngine(nil).Estimate(domain.ValidatedProjectInput{
		Service: domain.ServiceHardscaping, DrivewayAccess: true, Slope: domain.SlopeFlat,
		Length: 10, Width: 10, Area: 100, MaterialTier: domain.TierStandard,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	return events.LeadQualified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		SessionID: "s-1",
		State:     state,
		Estimate:  est,
	}
}

func TestMaybeJSONIsExplicit(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Maybe[string] `json:"a"`
		B Maybe[int]    `json:"b"`
	}{A: None[string](), B: Some(0)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"a":{"provided":false},"b":{"provided":true,"value":0}}` {
		t.Fatalf("unexpected JSON %s", raw)
	}

	var back struct {
		A Maybe[string] `json:"a"`
		B Maybe[int]    `json:"b"`
	}
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.A.Provided() {
		t.Errorf("absent value came back as provided")
	}
	if v, ok := back.B.Get(); !ok || v != 0 {
		t.Errorf("zero value lost its presence: %v %v", v, ok)
	}
}

func TestBuildLeadRecordMarksAbsence(t *testing.T) {
	e := qualifiedEvent(t)
	rec := BuildLeadRecord(e.LeadID, e.SessionID, e.State, &e.Estimate, time.Now())

	if name, _ := rec.Name.Get(); name != "Jo Bloggs" {
		t.Errorf("name = %q", name)
	}
	if rec.Phone.Provided() || rec.Email.Provided() || rec.StartTiming.Provided() {
		t.Errorf("missing contact facts must be absent")
	}
	if area, _ := rec.Area.Get(); area != 100 {
		t.Errorf("area = %v", area)
	}
	if v, _ := rec.Estimate.Get(); v != e.Estimate.Estimate {
		t.Errorf("estimate = %v", v)
	}

	n := rec.Notification()
	rows := map[string]string{}
	for _, r := range n.Rows {
		rows[r.Label] = r.Value
	}
	if rows["Phone"] != NotProvided || rows["Email"] != NotProvided {
		t.Errorf("absent fields must render as %q: %+v", NotProvided, rows)
	}
	if rows["Budget"] != "£12,000" || rows["Digger access"] != "No" || rows["Size"] != "100 m²" {
		t.Errorf("unexpected rows %+v", rows)
	}
	if !strings.Contains(n.Range, "to") || len(n.LineItems) != len(e.Estimate.LineItems) {
		t.Errorf("unexpected estimate rendering %+v", n)
	}
}

func TestLeadRecordWithoutEstimate(t *testing.T) {
	rec := BuildLeadRecord(uuid.New(), "s", domain.ConversationState{}, nil, time.Now())
	if rec.Estimate.Provided() || rec.Service.Provided() || rec.Area.Provided() {
		t.Fatalf("empty state must produce an all-absent record")
	}
	if n := rec.Notification(); n.Range != NotProvided {
		t.Fatalf("range = %q", n.Range)
	}
}

func TestBuildLeadRecordNormalisesPhone(t *testing.T) {
	for in, want := range map[string]string{
		" +44 7912 345678 ": "+447912345678",
		"07912 345678":      "+447912345678",
		" 12345 ":           "12345",
	} {
		state := domain.ConversationState{Phone: &in}
		rec := BuildLeadRecord(uuid.New(), "s", state, nil, time.Now())
		if got, ok := rec.Phone.Get(); !ok || got != want {
			t.Errorf("%q: phone = %q (%v), want %q", in, got, ok, want)
		}
	}
}

func TestHandleLeadQualifiedSavesAndSends(t *testing.T) {
	sender := &testSender{}
	store := &testStore{}
	m := New(sender, testNotificationConfig{to: "owner@example.com"}, logger.Discard())
	m.SetLeadStore(store)

	if err := m.Handle(context.Background(), qualifiedEvent(t)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.saved) != 1 || sender.calls != 1 {
		t.Fatalf("saved=%d sent=%d", len(store.saved), sender.calls)
	}
	if sender.last.Priority != "high" {
		t.Errorf("priority = %q", sender.last.Priority)
	}
}

func TestHandleLeadQualifiedPrefersQueue(t *testing.T) {
	sender := &testSender{}
	queue := &testQueue{}
	m := New(sender, testNotificationConfig{to: "owner@example.com"}, logger.Discard())
	m.SetQueue(queue)

	if err := m.Handle(context.Background(), qualifiedEvent(t)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if queue.calls != 1 || sender.calls != 0 {
		t.Fatalf("expected queued delivery, queue=%d sent=%d", queue.calls, sender.calls)
	}

	queue.err = errors.New("redis down")
	if err := m.Handle(context.Background(), qualifiedEvent(t)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("expected inline delivery when the queue fails")
	}
}

func TestDeliverWithoutRecipientIsNoop(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{}, logger.Discard())
	if err := m.Deliver(context.Background(), LeadRecord{LeadID: uuid.New()}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("nothing should be sent without a recipient")
	}
}

func TestLeadNotifyTaskPayload(t *testing.T) {
	e := qualifiedEvent(t)
	rec := BuildLeadRecord(e.LeadID, e.SessionID, e.State, &e.Estimate, time.Now())
	task, err := NewLeadNotifyTask(LeadNotifyPayload{Record: rec})
	if err != nil {
		t.Fatalf("NewLeadNotifyTask: %v", err)
	}
	if task.Type() != TaskLeadNotify {
		t.Fatalf("type = %s", task.Type())
	}
	got, err := ParseLeadNotifyPayload(task)
	if err != nil {
		t.Fatalf("ParseLeadNotifyPayload: %v", err)
	}
	if got.Record.LeadID != rec.LeadID || got.Record.Phone.Provided() {
		t.Fatalf("payload lost data: %+v", got.Record)
	}
	if name, _ := got.Record.Name.Get(); name != "Jo Bloggs" {
		t.Fatalf("name = %q", name)
	}
}

type testRecorder struct {
	notified []uuid.UUID
	failed   []string
}

func (r *testRecorder) MarkNotified(_ context.Context, id uuid.UUID) error {
	r.notified = append(r.notified, id)
	return nil
}

func (r *testRecorder) MarkNotifyFailed(_ context.Context, _ uuid.UUID, lastError string) error {
	r.failed = append(r.failed, lastError)
	return nil
}

func TestDeliverRecordsOutcome(t *testing.T) {
	sender := &testSender{}
	rec := &testRecorder{}
	m := New(sender, testNotificationConfig{to: "owner@example.com"}, logger.Discard())
	m.SetDeliveryRecorder(rec)

	id := uuid.New()
	if err := m.Deliver(context.Background(), LeadRecord{LeadID: id}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(rec.notified) != 1 || rec.notified[0] != id {
		t.Fatalf("notified = %v", rec.notified)
	}

	sender.err = errors.New("smtp refused")
	if err := m.Deliver(context.Background(), LeadRecord{LeadID: id}); err == nil {
		t.Fatalf("expected send error")
	}
	if len(rec.failed) != 1 || !strings.Contains(rec.failed[0], "smtp refused") {
		t.Fatalf("failed = %v", rec.failed)
	}
}

func TestNotifyRetryDelayGrows(t *testing.T) {
	prev := time.Duration(0)
	for n := 0; n < 6; n++ {
		d := notifyRetryDelay(n, nil, nil)
		if d <= prev {
			t.Fatalf("delay(%d) = %v, not above %v", n, d, prev)
		}
		prev = d
	}
	if got := notifyRetryDelay(0, nil, nil); got != 30*time.Second {
		t.Fatalf("first delay = %v", got)
	}
}

func TestDeliverWithEmailDisabledRecordsNothing(t *testing.T) {
	rec := &testRecorder{}
	m := New(nil, testNotificationConfig{to: "owner@example.com"}, logger.Discard())
	m.SetDeliveryRecorder(rec)
	if err := m.Deliver(context.Background(), LeadRecord{LeadID: uuid.New()}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(rec.notified) != 0 || len(rec.failed) != 0 {
		t.Fatalf("disabled email must not be recorded as a delivery")
	}
}
