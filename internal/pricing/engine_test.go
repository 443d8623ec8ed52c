package pricing

import (
	"errors"
	"strings"
	"testing"

	"leadchat_backend/internal/intake/domain"
)

func baseInput() domain.ValidatedProjectInput {
	return domain.ValidatedProjectInput{
		Service:         domain.ServiceHardscaping,
		ExcavatorAccess: false,
		DrivewayAccess:  true,
		Slope:           domain.SlopeFlat,
		SubBase:         domain.SubBaseSoil,
		Length:          10,
		Width:           10,
		Area:            100,
		MaterialTier:    domain.TierStandard,
	}
}

func lineAmount(t *testing.T, r EstimateResult, code string) int64 {
	t.Helper()
	li, ok := r.Line(code)
	if !ok {
		t.Fatalf("missing line item %s in %+v", code, r.LineItems)
	}
	return li.AmountPence
}

func TestEstimateWorkedExample(t *testing.T) {
	r, err := NewEngine(nil).Estimate(baseInput())
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	want := map[string]int64{
		CodeMaterials:         350000,
		CodeLabour:            522000,
		CodeProjectManagement: 87200,
		CodeContingency:       43600,
		CodeProfit:            130800,
	}
	for code, pence := range want {
		if got := lineAmount(t, r, code); got != pence {
			t.Errorf("%s = %d, want %d", code, got, pence)
		}
	}
	if r.SubtotalPence != 872000 {
		t.Errorf("subtotal = %d, want 872000", r.SubtotalPence)
	}
	if r.Estimate != 11336 || r.Low != 10202 || r.High != 12470 {
		t.Fatalf("range = %d/%d/%d, want 10202/11336/12470", r.Low, r.Estimate, r.High)
	}
	if r.Priority != PriorityHigh {
		t.Errorf("priority = %s, want high", r.Priority)
	}
	if r.Currency != "GBP" {
		t.Errorf("currency = %q", r.Currency)
	}
	for _, code := range []string{CodePermit, CodeGrading, CodeDemolition, CodeScaffolding} {
		if r.Has(code) {
			t.Errorf("unexpected surcharge %s", code)
		}
	}
}

func TestEstimateAccessMultiplierOnlyTouchesLabour(t *testing.T) {
	in := baseInput()
	in.ExcavatorAccess = true
	r, err := NewEngine(nil).Estimate(in)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got := lineAmount(t, r, CodeLabour); got != 360000 {
		t.Fatalf("labour with access = %d, want 360000", got)
	}
	if got := lineAmount(t, r, CodeMaterials); got != 350000 {
		t.Fatalf("materials changed with access: %d", got)
	}
}

func TestEstimateSurcharges(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*domain.ValidatedProjectInput)
		code  string
		pence int64
	}{
		{"no driveway adds permit", func(in *domain.ValidatedProjectInput) { in.DrivewayAccess = false }, CodePermit, 7500},
		{"steep slope adds grading", func(in *domain.ValidatedProjectInput) { in.Slope = domain.SlopeSteep }, CodeGrading, 65000},
		{"demolition of 100 m² needs four skips", func(in *domain.ValidatedProjectInput) { in.Demolition = true }, CodeDemolition, 4 * 29000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.edit(&in)
			r, err := NewEngine(nil).Estimate(in)
			if err != nil {
				t.Fatalf("Estimate: %v", err)
			}
			if got := lineAmount(t, r, tt.code); got != tt.pence {
				t.Fatalf("%s = %d, want %d", tt.code, got, tt.pence)
			}
		})
	}
}

func TestModerateSlopeHasNoSurcharge(t *testing.T) {
	in := baseInput()
	in.Slope = domain.SlopeModerate
	r := NewEngine(nil).MustEstimate(in)
	if r.Has(CodeGrading) {
		t.Fatalf("moderate slope must not add grading")
	}
}

func TestSkipsForDemolition(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		area float64
		want int
	}{
		{1, 1},
		{40, 2},
		{80, 3},
		{100, 4},
	}
	for _, tt := range tests {
		if got := e.SkipsForDemolition(tt.area); got != tt.want {
			t.Errorf("SkipsForDemolition(%v) = %d, want %d", tt.area, got, tt.want)
		}
	}
}

func TestScaffoldingThreshold(t *testing.T) {
	deck := func(height float64) domain.ValidatedProjectInput {
		return domain.ValidatedProjectInput{
			Service:         domain.ServiceDecking,
			ExcavatorAccess: true,
			DrivewayAccess:  true,
			Slope:           domain.SlopeFlat,
			Length:          5,
			Width:           2,
			Area:            10,
			MaterialTier:    domain.TierStandard,
			DeckHeight:      domain.Ptr(height),
		}
	}
	e := NewEngine(nil)
	if r := e.MustEstimate(deck(1.6)); !r.Has(CodeScaffolding) {
		t.Fatalf("deck at 1.6 m must include scaffolding")
	}
	for _, h := range []float64{1.4, 1.5} {
		if r := e.MustEstimate(deck(h)); r.Has(CodeScaffolding) {
			t.Fatalf("deck at %v m must not include scaffolding", h)
		}
	}
}

func TestPriorityThreshold(t *testing.T) {
	e := NewEngine(nil)
	if got := e.PriorityFor(5000); got != PriorityStandard {
		t.Errorf("5000 = %s, want standard", got)
	}
	if got := e.PriorityFor(5001); got != PriorityHigh {
		t.Errorf("5001 = %s, want high", got)
	}
}

func TestRangeBoundsOrdered(t *testing.T) {
	e := NewEngine(nil)
	for _, svc := range domain.Services {
		for _, tier := range []domain.Tier{domain.TierStandard, domain.TierPremium, domain.TierLuxury} {
			in := baseInput()
			in.Service = svc
			in.MaterialTier = tier
			in.Length, in.Width, in.Area = 3, 2.5, 7.5
			r, err := e.Estimate(in)
			if err != nil {
				t.Fatalf("%s/%s: %v", svc, tier, err)
			}
			if !(r.Low <= r.Estimate && r.Estimate <= r.High) || r.Estimate <= 0 {
				t.Errorf("%s/%s: bad range %d/%d/%d", svc, tier, r.Low, r.Estimate, r.High)
			}
		}
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	e := NewEngine(nil)
	a := e.MustEstimate(baseInput())
	b := e.MustEstimate(baseInput())
	if a.Narrative != b.Narrative || a.Estimate != b.Estimate || len(a.LineItems) != len(b.LineItems) {
		t.Fatalf("estimate differs between runs")
	}
}

func TestEstimateRejectsBrokenInput(t *testing.T) {
	in := baseInput()
	in.Area = 55

	_, err := NewEngine(nil).Estimate(in)
	var ce *ContractError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ContractError, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustEstimate to panic")
		}
	}()
	NewEngine(nil).MustEstimate(in)
}

func TestNarrativeMentionsRange(t *testing.T) {
	r := NewEngine(nil).MustEstimate(baseInput())
	for _, want := range []string{"£3,500", "£11,336", "£10,202", "£12,470", "hand digging"} {
		if !strings.Contains(r.Narrative, want) {
			t.Errorf("narrative missing %q: %s", want, r.Narrative)
		}
	}
}

func TestLoadCatalogRejectsGaps(t *testing.T) {
	_, err := LoadCatalog([]byte("currency: GBP\nlabour_rate: 0\naccess_multiplier: 1\n"))
	if err == nil {
		t.Fatalf("expected an incomplete catalog to fail")
	}
	if _, err := LoadCatalog(catalogYAML); err != nil {
		t.Fatalf("embedded catalog: %v", err)
	}
}
