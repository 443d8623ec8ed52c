package gate

import "leadchat_backend/internal/intake/domain"

// PhaseInput is one batch submission. The set is closed to the four phase
// schemas below.
type PhaseInput interface {
	phase() Phase
}

// LogisticsInput covers what the site looks like from the outside.
type LogisticsInput struct {
	Service         domain.Service `json:"service" validate:"required,oneof=hardscaping decking mowing planting fencing framing landscaping"`
	ExcavatorAccess *bool          `json:"excavatorAccess" validate:"required"`
	DrivewayAccess  *bool          `json:"drivewayAccess" validate:"required"`
	Postcode        string         `json:"postcode,omitempty" validate:"omitempty,ukpostcode"`
}

// GroundConditionsInput covers what is underfoot.
type GroundConditionsInput struct {
	Slope      domain.Slope   `json:"slope" validate:"required,oneof=flat moderate steep"`
	SubBase    domain.SubBase `json:"subBase" validate:"required,oneof=soil clay sand rock hardstanding"`
	Demolition *bool          `json:"demolition" validate:"required"`
}

// DimensionsInput takes length and width as two numbers. Area is only
// present so a submitted aggregate can be rejected by name.
type DimensionsInput struct {
	Length     float64  `json:"length" validate:"required,positivef"`
	Width      float64  `json:"width" validate:"required,positivef"`
	Area       *float64 `json:"area,omitempty"`
	DeckHeight *float64 `json:"deckHeight,omitempty" validate:"omitempty,positivef"`
}

// MaterialTierInput picks the finish.
type MaterialTierInput struct {
	MaterialTier domain.Tier `json:"materialTier" validate:"required,oneof=standard premium luxury"`
}

func (LogisticsInput) phase() Phase        { return PhaseLogistics }
func (GroundConditionsInput) phase() Phase { return PhaseGroundConditions }
func (DimensionsInput) phase() Phase       { return PhaseDimensions }
func (MaterialTierInput) phase() Phase     { return PhaseMaterialTier }
