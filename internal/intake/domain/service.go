package domain

// Service is the project category a conversation is about.
type Service string

const (
	ServiceHardscaping Service = "hardscaping"
	ServiceDecking     Service = "decking"
	ServiceMowing      Service = "mowing"
	ServicePlanting    Service = "planting"
	ServiceFencing     Service = "fencing"
	ServiceFraming     Service = "framing"
	ServiceLandscaping Service = "landscaping"
)

// Services lists every category in extractor priority order.
var Services = []Service{
	ServiceHardscaping,
	ServiceDecking,
	ServiceMowing,
	ServicePlanting,
	ServiceFencing,
	ServiceFraming,
	ServiceLandscaping,
}

// Valid reports whether s is a known category.
func (s Service) Valid() bool {
	for _, known := range Services {
		if s == known {
			return true
		}
	}
	return false
}

// RequiresExcavation reports whether pricing depends on excavator access.
func (s Service) RequiresExcavation() bool {
	switch s {
	case ServiceHardscaping, ServiceDecking, ServiceFencing, ServiceLandscaping:
		return true
	}
	return false
}

// DisturbsGround reports whether slope must be known before pricing.
func (s Service) DisturbsGround() bool {
	return s.Valid() && s != ServiceMowing
}

// AllowsDemolition reports whether an existing surface may need removing.
func (s Service) AllowsDemolition() bool {
	return s == ServiceHardscaping || s == ServiceDecking
}

// UsesLinearMetres reports whether the project is measured as a run length
// rather than an area.
func (s Service) UsesLinearMetres() bool {
	return s == ServiceFencing
}

// Unit is the measurement unit for the service quantity.
func (s Service) Unit() string {
	if s.UsesLinearMetres() {
		return "m"
	}
	return "m²"
}

// Tier is the material quality band.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
	TierLuxury   Tier = "luxury"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierStandard || t == TierPremium || t == TierLuxury
}

// Slope classifies the gradient of the site.
type Slope string

const (
	SlopeFlat     Slope = "flat"
	SlopeModerate Slope = "moderate"
	SlopeSteep    Slope = "steep"
)

// Valid reports whether s is a known slope class.
func (s Slope) Valid() bool {
	return s == SlopeFlat || s == SlopeModerate || s == SlopeSteep
}

// SubBase describes what the ground is made of under the work area.
type SubBase string

const (
	SubBaseSoil         SubBase = "soil"
	SubBaseClay         SubBase = "clay"
	SubBaseSand         SubBase = "sand"
	SubBaseRock         SubBase = "rock"
	SubBaseHardstanding SubBase = "hardstanding"
)

// Valid reports whether b is a known sub-base type.
func (b SubBase) Valid() bool {
	switch b {
	case SubBaseSoil, SubBaseClay, SubBaseSand, SubBaseRock, SubBaseHardstanding:
		return true
	}
	return false
}
