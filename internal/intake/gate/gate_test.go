package gate

import (
	"encoding/json"
	"testing"

	"leadchat_backend/internal/intake/domain"
	platformvalidator "leadchat_backend/platform/validator"
)

func newMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := NewMachine(platformvalidator.New())
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m
}

func logistics(svc domain.Service) LogisticsInput {
	return LogisticsInput{
		Service:         svc,
		ExcavatorAccess: domain.Ptr(false),
		DrivewayAccess:  domain.Ptr(true),
		Postcode:        "SW1A 1AA",
	}
}

func ground() GroundConditionsInput {
	return GroundConditionsInput{Slope: domain.SlopeFlat, SubBase: domain.SubBaseClay, Demolition: domain.Ptr(true)}
}

func hasError(g Gate, field string) bool {
	for _, e := range g.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestGateHappyPath(t *testing.T) {
	m := newMachine(t)
	g := Gate{}

	g = m.Submit(g, logistics(domain.ServiceHardscaping))
	g = m.Submit(g, ground())
	g = m.Submit(g, DimensionsInput{Length: 10, Width: 4})
	g = m.Submit(g, MaterialTierInput{MaterialTier: domain.TierPremium})

	if g.Phase != PhaseComplete || len(g.Errors) != 0 {
		t.Fatalf("expected complete gate, got %s %+v", g.Phase, g.Errors)
	}
	in, err := g.ProjectInput()
	if err != nil {
		t.Fatalf("ProjectInput: %v", err)
	}
	if in.Area != 40 || in.ExcavatorAccess || !in.Demolition || in.SubBase != domain.SubBaseClay {
		t.Fatalf("unexpected project input %+v", in)
	}
}

func TestGateRejectsSingleArea(t *testing.T) {
	m := newMachine(t)
	g := m.Submit(m.Submit(Gate{}, logistics(domain.ServicePlanting)), ground())

	next := m.Submit(g, DimensionsInput{Area: domain.Ptr(40.0)})
	if next.Phase != PhaseDimensions {
		t.Fatalf("gate advanced on a single area")
	}
	for _, field := range []string{"dimensions.area", "dimensions.length", "dimensions.width"} {
		if !hasError(next, field) {
			t.Errorf("expected error for %s, got %+v", field, next.Errors)
		}
	}

	next = m.Submit(g, DimensionsInput{Length: 8, Width: 5, Area: domain.Ptr(40.0)})
	if next.Phase != PhaseDimensions || !hasError(next, "dimensions.area") {
		t.Fatalf("area alongside length and width must still be rejected")
	}

	next = m.Submit(g, DimensionsInput{Length: -2, Width: 5})
	if !hasError(next, "dimensions.length") {
		t.Fatalf("expected negative length to fail, got %+v", next.Errors)
	}
}

func TestGateDeckingNeedsHeight(t *testing.T) {
	m := newMachine(t)
	g := m.Submit(m.Submit(Gate{}, logistics(domain.ServiceDecking)), ground())

	next := m.Submit(g, DimensionsInput{Length: 4, Width: 3})
	if next.Phase != PhaseDimensions || !hasError(next, "dimensions.deckHeight") {
		t.Fatalf("expected deck height error, got %+v", next.Errors)
	}
	next = m.Submit(g, DimensionsInput{Length: 4, Width: 3, DeckHeight: domain.Ptr(0.6)})
	if next.Phase != PhaseMaterialTier {
		t.Fatalf("expected to advance, got %s %+v", next.Phase, next.Errors)
	}
}

func TestGateValidationMessages(t *testing.T) {
	m := newMachine(t)
	bad := LogisticsInput{Service: "pool", Postcode: "nowhere"}

	g := m.Submit(Gate{}, bad)
	if g.Phase != PhaseLogistics {
		t.Fatalf("gate advanced on invalid logistics")
	}
	for _, field := range []string{"logistics.service", "logistics.excavatorAccess", "logistics.drivewayAccess", "logistics.postcode"} {
		if !hasError(g, field) {
			t.Errorf("expected error for %s, got %+v", field, g.Errors)
		}
	}

	g = m.Submit(g, logistics(domain.ServiceFencing))
	if g.Phase != PhaseGroundConditions || len(g.Errors) != 0 {
		t.Fatalf("valid resubmission must clear errors and advance")
	}
}

func TestGateRejectsWrongPhaseInput(t *testing.T) {
	m := newMachine(t)
	g := m.Submit(Gate{}, MaterialTierInput{MaterialTier: domain.TierLuxury})
	if g.Phase != PhaseLogistics || !hasError(g, "phase") {
		t.Fatalf("expected phase error, got %+v", g)
	}
}

func TestGateBackKeepsData(t *testing.T) {
	m := newMachine(t)
	g := m.Submit(m.Submit(Gate{}, logistics(domain.ServiceHardscaping)), ground())

	back, err := g.Back()
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if back.Phase != PhaseGroundConditions || back.GroundConditions == nil || back.Logistics == nil {
		t.Fatalf("back must keep stored data, got %+v", back)
	}
	if g.Phase != PhaseDimensions {
		t.Fatalf("Back mutated the receiver")
	}

	first, err := Gate{}.Back()
	if err == nil || first.Phase != PhaseLogistics {
		t.Fatalf("expected Back to be refused in the first phase")
	}
}

func TestGateResetClearsEverything(t *testing.T) {
	m := newMachine(t)
	g := m.Submit(m.Submit(Gate{}, logistics(domain.ServiceHardscaping)), ground())

	reset := g.Reset()
	if reset.Phase != PhaseLogistics || reset.Logistics != nil || reset.GroundConditions != nil {
		t.Fatalf("reset must clear all phase data, got %+v", reset)
	}
	if _, err := reset.ProjectInput(); err == nil {
		t.Fatalf("expected incomplete gate to refuse ProjectInput")
	}
}

func TestDecodeSubmission(t *testing.T) {
	in, err := DecodeSubmission(PhaseDimensions, []byte(`{"length": 6, "width": 2.5}`))
	if err != nil {
		t.Fatalf("DecodeSubmission: %v", err)
	}
	dims, ok := in.(DimensionsInput)
	if !ok || dims.Length != 6 || dims.Width != 2.5 {
		t.Fatalf("unexpected decode %+v", in)
	}

	if _, err := DecodeSubmission(PhaseDimensions, []byte(`{"length": 6, "depth": 1}`)); err == nil {
		t.Fatalf("expected unknown field to fail")
	}
	if _, err := DecodeSubmission(PhaseComplete, []byte(`{}`)); err == nil {
		t.Fatalf("expected complete phase to refuse submissions")
	}
}

func TestGateJSONRoundTrip(t *testing.T) {
	m := newMachine(t)
	g := m.Submit(Gate{}, logistics(domain.ServiceMowing))

	raw, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Gate
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Phase != PhaseGroundConditions || decoded.Logistics == nil || decoded.Logistics.Service != domain.ServiceMowing {
		t.Fatalf("unexpected decoded gate %+v", decoded)
	}
}
