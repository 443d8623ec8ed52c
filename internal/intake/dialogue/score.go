package dialogue

import (
	"errors"

	"leadchat_backend/internal/intake/domain"
)

const (
	weightService   = 25
	weightGeometry  = 30
	weightTier      = 20
	weightOvergrown = 25
	weightAccess    = 10
	weightDriveway  = 5
	weightSlope     = 5
	weightDemolish  = 5

	// ReadyThreshold is the minimum completeness for an estimate.
	ReadyThreshold = 85
)

// Completeness scores how much of the pricing-relevant information is known,
// 0..100. Adding a fact never lowers the score.
func Completeness(s domain.ConversationState) int {
	score := 0
	if s.Service != nil {
		score += weightService
	}
	if s.HasGeometry() {
		score += weightGeometry
	}
	if s.MaterialTier != nil {
		score += weightTier
	}

	svc := s.ServiceOrEmpty()
	switch svc {
	case domain.ServiceMowing:
		if s.Overgrown != nil {
			score += weightOvergrown
		}
	case domain.ServicePlanting:
		if s.DrivewayAccess != nil {
			score += weightDriveway
		}
		if s.Slope != nil {
			score += weightSlope
		}
	default:
		// With the service still unknown, only facts actually given count.
		known := svc != ""
		if s.ExcavatorAccess != nil || (known && !svc.RequiresExcavation()) {
			score += weightAccess
		}
		if s.DrivewayAccess != nil {
			score += weightDriveway
		}
		if s.Slope != nil {
			score += weightSlope
		}
		if s.Demolition != nil || (known && !svc.AllowsDemolition()) {
			score += weightDemolish
		}
	}
	return score
}

// ReadyForEstimate reports whether the state can be priced. The score is
// necessary but not sufficient.
func ReadyForEstimate(s domain.ConversationState) bool {
	if s.Budget == nil || s.Postcode == nil {
		return false
	}
	if s.Service == nil || !s.HasGeometry() || s.MaterialTier == nil {
		return false
	}
	svc := *s.Service
	if svc.DisturbsGround() && s.Slope == nil {
		return false
	}
	if svc.RequiresExcavation() && s.ExcavatorAccess == nil {
		return false
	}
	if svc == domain.ServiceFencing && s.GateCount == nil {
		return false
	}
	if svc == domain.ServiceDecking && s.DeckHeight == nil {
		return false
	}
	return Completeness(s) >= ReadyThreshold
}

// ErrNotReady is returned when a state lacks what pricing needs.
var ErrNotReady = errors.New("conversation is not ready for an estimate")

// ProjectInput projects a ready state onto the pricing input. A single area
// is carried as length=area, width=1 so the length×width invariant holds;
// fencing runs always use that shape. Unknown optional conditions take the
// cheapest assumption: access available, flat, soil sub-base.
func ProjectInput(s domain.ConversationState) (domain.ValidatedProjectInput, error) {
	if s.Service == nil || s.MaterialTier == nil || !s.HasGeometry() {
		return domain.ValidatedProjectInput{}, ErrNotReady
	}
	svc := *s.Service

	var length, width float64
	switch {
	case s.Length != nil && s.Width != nil && !svc.UsesLinearMetres():
		length, width = *s.Length, *s.Width
	default:
		area, _ := s.EffectiveArea()
		length, width = area, 1
	}

	in := domain.ValidatedProjectInput{
		Service:         svc,
		ExcavatorAccess: valueOr(s.ExcavatorAccess, true),
		DrivewayAccess:  valueOr(s.DrivewayAccess, true),
		Slope:           valueOr(s.Slope, domain.SlopeFlat),
		SubBase:         valueOr(s.SubBase, domain.SubBaseSoil),
		Demolition:      svc.AllowsDemolition() && valueOr(s.Demolition, false),
		Length:          length,
		Width:           width,
		Area:            length * width,
		MaterialTier:    *s.MaterialTier,
	}
	if svc == domain.ServiceDecking && s.DeckHeight != nil {
		in.DeckHeight = domain.Ptr(*s.DeckHeight)
	}
	if err := in.Check(); err != nil {
		return domain.ValidatedProjectInput{}, errors.Join(ErrNotReady, err)
	}
	return in, nil
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
