// Package pricing turns a validated project description into a bounded cost
// estimate with an itemised breakdown.
//
// The calculation order is fixed: materials, labour, the access multiplier
// on labour, surcharges, subtotal, percentage fees, rounding, range and
// priority. Reordering the steps changes the result.
package pricing

import (
	"fmt"
	"math"

	"leadchat_backend/internal/intake/domain"
)

// Kind classifies a line item.
type Kind string

const (
	KindMaterial  Kind = "material"
	KindLabor     Kind = "labor"
	KindSurcharge Kind = "surcharge"
	KindFee       Kind = "fee"
)

// Priority is the lead tier derived from the point estimate.
type Priority string

const (
	PriorityStandard Priority = "standard"
	PriorityHigh     Priority = "high"
)

// Line item codes. Narrative templates are keyed by these.
const (
	CodeMaterials         = "materials"
	CodeLabour            = "labour"
	CodePermit            = "permit"
	CodeGrading           = "steep_grading"
	CodeDemolition        = "demolition"
	CodeScaffolding       = "scaffolding"
	CodeProjectManagement = "project_management"
	CodeContingency       = "contingency"
	CodeProfit            = "profit"
)

// LineItem is one priced component. Amounts are in pence.
type LineItem struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	AmountPence int64  `json:"amountPence"`
	Note        string `json:"note,omitempty"`
	Kind        Kind   `json:"kind"`
}

// EstimateResult is the priced outcome. Bounds are whole pounds.
type EstimateResult struct {
	Currency      string     `json:"currency"`
	Low           int64      `json:"low"`
	Estimate      int64      `json:"estimate"`
	High          int64      `json:"high"`
	SubtotalPence int64      `json:"subtotalPence"`
	LineItems     []LineItem `json:"lineItems"`
	Narrative     string     `json:"narrative"`
	Priority      Priority   `json:"priority"`
}

// Has reports whether a line item with code is present.
func (r EstimateResult) Has(code string) bool {
	_, ok := r.Line(code)
	return ok
}

// Line returns the line item with code.
func (r EstimateResult) Line(code string) (LineItem, bool) {
	for _, li := range r.LineItems {
		if li.Code == code {
			return li, true
		}
	}
	return LineItem{}, false
}

// ContractError reports input that should never have reached pricing.
type ContractError struct {
	Input domain.ValidatedProjectInput
	Err   error
}

func (e *ContractError) Error() string {
	return "pricing precondition violated: " + e.Err.Error()
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// Engine prices against one catalog.
type Engine struct {
	catalog *Catalog
}

// NewEngine returns an engine over c; nil selects the embedded catalog.
func NewEngine(c *Catalog) *Engine {
	if c == nil {
		c = DefaultCatalog()
	}
	return &Engine{catalog: c}
}

// Catalog exposes the engine's rates.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Estimate prices in. It returns a *ContractError when in breaks the
// validated-input invariants; well-formed input never fails.
func (e *Engine) Estimate(in domain.ValidatedProjectInput) (EstimateResult, error) {
	if err := in.Check(); err != nil {
		return EstimateResult{}, &ContractError{Input: in, Err: err}
	}
	rates, tier, ok := e.catalog.Rate(in.Service, in.MaterialTier)
	if !ok {
		return EstimateResult{}, &ContractError{Input: in, Err: fmt.Errorf("no rate for %s/%s", in.Service, in.MaterialTier)}
	}
	c := e.catalog
	unit := in.Service.Unit()
	var items []LineItem

	// 1. materials
	material := in.Area * tier.Rate
	items = append(items, LineItem{
		Code:        CodeMaterials,
		Label:       tier.Material,
		AmountPence: toPence(material),
		Note:        fmt.Sprintf("%s %s at %s/%s", formatQuantity(in.Area), unit, formatPounds(tier.Rate), unit),
		Kind:        KindMaterial,
	})

	// 2-3. labour, multiplied when no digger can get in
	hours := in.Area * rates.HoursPerUnit
	labour := hours * c.LabourRate
	labourNote := fmt.Sprintf("%s hours at %s/h", formatQuantity(hours), formatPounds(c.LabourRate))
	if !in.ExcavatorAccess {
		labour *= c.AccessMultiplier
		labourNote += fmt.Sprintf(", ×%s for hand digging", formatQuantity(c.AccessMultiplier))
	}
	items = append(items, LineItem{
		Code:        CodeLabour,
		Label:       "Installation labour",
		AmountPence: toPence(labour),
		Note:        labourNote,
		Kind:        KindLabor,
	})

	// 4. surcharges
	surcharges := 0.0
	addSurcharge := func(code, label, note string, amount float64) {
		surcharges += amount
		items = append(items, LineItem{Code: code, Label: label, AmountPence: toPence(amount), Note: note, Kind: KindSurcharge})
	}
	if !in.DrivewayAccess {
		addSurcharge(CodePermit, "Council skip permit", "skip placed on the road", c.Surcharges.Permit)
	}
	if in.Slope == domain.SlopeSteep {
		addSurcharge(CodeGrading, "Steep slope grading", "", c.Surcharges.SteepGrading)
	}
	if in.Demolition {
		skips := e.SkipsForDemolition(in.Area)
		addSurcharge(CodeDemolition, "Demolition and waste removal",
			fmt.Sprintf("%d skip(s) at %s", skips, formatPounds(c.Demolition.CostPerSkip)),
			float64(skips)*c.Demolition.CostPerSkip)
	}
	if in.DeckHeight != nil && *in.DeckHeight > c.Surcharges.ScaffoldingMinHeight {
		addSurcharge(CodeScaffolding, "Scaffolding",
			fmt.Sprintf("deck height %s m", formatQuantity(*in.DeckHeight)),
			c.Surcharges.Scaffolding)
	}

	// 5. subtotal
	subtotal := material + labour + surcharges

	// 6. business wrapper, each fee on the subtotal
	fees := 0.0
	for _, fee := range []struct {
		code, label string
		rate        float64
	}{
		{CodeProjectManagement, "Project management", c.Wrapper.ProjectManagement},
		{CodeContingency, "Contingency", c.Wrapper.Contingency},
		{CodeProfit, "Net profit", c.Wrapper.Profit},
	} {
		amount := subtotal * fee.rate
		fees += amount
		items = append(items, LineItem{
			Code:        fee.code,
			Label:       fee.label,
			AmountPence: toPence(amount),
			Note:        formatPercent(fee.rate),
			Kind:        KindFee,
		})
	}

	// 7-9. rounding, range, priority
	point := int64(math.Round(subtotal + fees))
	result := EstimateResult{
		Currency:      c.Currency,
		Low:           int64(math.Round(float64(point) * (1 - c.RangeFraction))),
		Estimate:      point,
		High:          int64(math.Round(float64(point) * (1 + c.RangeFraction))),
		SubtotalPence: toPence(subtotal),
		LineItems:     items,
		Priority:      e.PriorityFor(point),
	}
	result.Narrative = Narrative(result)
	return result, nil
}

// MustEstimate is Estimate for callers that have already validated the
// input; a contract violation panics.
func (e *Engine) MustEstimate(in domain.ValidatedProjectInput) EstimateResult {
	result, err := e.Estimate(in)
	if err != nil {
		panic(err)
	}
	return result
}

// SkipsForDemolition is ceil(area × thickness × density / tonnes per skip).
func (e *Engine) SkipsForDemolition(area float64) int {
	d := e.catalog.Demolition
	tonnes := area * d.ThicknessM * d.DensityTPerM3
	return int(math.Ceil(roundTo(tonnes, 6) / d.TonnesPerSkip))
}

// PriorityFor classifies a point estimate; only amounts strictly above the
// threshold are high priority.
func (e *Engine) PriorityFor(point int64) Priority {
	if point > e.catalog.HighPriorityAbove {
		return PriorityHigh
	}
	return PriorityStandard
}

func toPence(pounds float64) int64 {
	return int64(math.Round(pounds * 100))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
