package domain

import (
	"errors"
	"fmt"
	"math"
)

// ValidatedProjectInput is the only shape the pricing engine accepts.
// Length and Width are positive and Area equals Length×Width.
type ValidatedProjectInput struct {
	Service         Service  `json:"service"`
	ExcavatorAccess bool     `json:"excavatorAccess"`
	DrivewayAccess  bool     `json:"drivewayAccess"`
	Slope           Slope    `json:"slope"`
	SubBase         SubBase  `json:"subBase"`
	Demolition      bool     `json:"demolition"`
	Length          float64  `json:"length"`
	Width           float64  `json:"width"`
	Area            float64  `json:"area"`
	MaterialTier    Tier     `json:"materialTier"`
	DeckHeight      *float64 `json:"deckHeight,omitempty"`
}

const areaTolerance = 1e-6

// Check verifies the structural invariants of the input.
func (in ValidatedProjectInput) Check() error {
	var errs []error
	if !in.Service.Valid() {
		errs = append(errs, fmt.Errorf("unknown service %q", in.Service))
	}
	if !in.MaterialTier.Valid() {
		errs = append(errs, fmt.Errorf("unknown material tier %q", in.MaterialTier))
	}
	if !in.Slope.Valid() {
		errs = append(errs, fmt.Errorf("unknown slope %q", in.Slope))
	}
	if in.SubBase != "" && !in.SubBase.Valid() {
		errs = append(errs, fmt.Errorf("unknown sub-base %q", in.SubBase))
	}
	if !(in.Length > 0) || !(in.Width > 0) {
		errs = append(errs, fmt.Errorf("length and width must be positive, got %v x %v", in.Length, in.Width))
	} else if math.Abs(in.Area-in.Length*in.Width) > areaTolerance*math.Max(1, in.Area) {
		errs = append(errs, fmt.Errorf("area %v does not equal %v x %v", in.Area, in.Length, in.Width))
	}
	if in.DeckHeight != nil && !(*in.DeckHeight > 0) {
		errs = append(errs, fmt.Errorf("deck height must be positive, got %v", *in.DeckHeight))
	}
	return errors.Join(errs...)
}
