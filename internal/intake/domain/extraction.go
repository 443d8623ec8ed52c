package domain

// Extraction is the sparse set of facts recognised in one utterance.
// A nil field means "no signal". When Length and Width are both set,
// Area is always nil; the merge step derives it.
type Extraction struct {
	Service *Service

	Area   *float64
	Length *float64
	Width  *float64

	MaterialTier *Tier

	ExcavatorAccess *bool
	DrivewayAccess  *bool
	Slope           *Slope
	Demolition      *bool
	SubBase         *SubBase

	DeckHeight *float64
	Overgrown  *bool
	GateCount  *int
	Upsells    []string

	FullName *string
	// SelfIntroduced is true when the name came with a phrase such as
	// "my name is".
	SelfIntroduced bool

	Phone *string
	Email *string

	Budget *int
	// ExplicitCurrency is true when the budget carried a currency marker
	// or the word "budget".
	ExplicitCurrency bool

	Postcode *string
	// PostcodeStrict is true when Postcode matched the national pattern
	// rather than the loose answer-to-the-question rule.
	PostcodeStrict bool

	StartTiming *string
	SoilNote    *string
}

// IsEmpty reports whether nothing was recognised.
func (e Extraction) IsEmpty() bool {
	return e.Service == nil && e.Area == nil && e.Length == nil && e.Width == nil &&
		e.MaterialTier == nil && e.ExcavatorAccess == nil && e.DrivewayAccess == nil &&
		e.Slope == nil && e.Demolition == nil && e.SubBase == nil && e.DeckHeight == nil &&
		e.Overgrown == nil && e.GateCount == nil && len(e.Upsells) == 0 &&
		e.FullName == nil && e.Phone == nil && e.Email == nil && e.Budget == nil &&
		e.Postcode == nil && e.StartTiming == nil && e.SoilNote == nil
}

// Sets reports whether the extraction carries a value for f.
func (e Extraction) Sets(f Field) bool {
	switch f {
	case FieldService:
		return e.Service != nil
	case FieldDimensions:
		return e.Area != nil || (e.Length != nil && e.Width != nil)
	case FieldMaterialTier:
		return e.MaterialTier != nil
	case FieldExcavatorAccess:
		return e.ExcavatorAccess != nil
	case FieldDeckHeight:
		return e.DeckHeight != nil
	case FieldOvergrowth:
		return e.Overgrown != nil
	case FieldGateCount:
		return e.GateCount != nil
	case FieldDrivewayAccess:
		return e.DrivewayAccess != nil
	case FieldSlope:
		return e.Slope != nil
	case FieldDemolition:
		return e.Demolition != nil
	case FieldFullName:
		return e.FullName != nil
	case FieldPhone:
		return e.Phone != nil
	case FieldEmail:
		return e.Email != nil
	case FieldBudget:
		return e.Budget != nil
	case FieldPostcode:
		return e.Postcode != nil
	case FieldNone:
		return false
	}
	return false
}
