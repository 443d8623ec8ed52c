// Package gate implements the strict four-phase intake:
// logistics → ground conditions → dimensions → material tier → complete.
//
// A Gate is a value. Submit, Back and Reset return the next Gate and leave
// the receiver as it was.
package gate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/intake/extract"
	platformvalidator "leadchat_backend/platform/validator"
)

// Phase is the FSM position.
type Phase uint8

const (
	PhaseLogistics Phase = iota
	PhaseGroundConditions
	PhaseDimensions
	PhaseMaterialTier
	PhaseComplete
)

var phaseNames = [...]string{
	PhaseLogistics:        "logistics",
	PhaseGroundConditions: "groundConditions",
	PhaseDimensions:       "dimensions",
	PhaseMaterialTier:     "materialTier",
	PhaseComplete:         "complete",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	if int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("unknown phase %d", uint8(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase maps a phase name back to its Phase.
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

// FieldError is one human-readable validation message keyed by the
// offending field path, e.g. "dimensions.length".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Gate holds the stored data of every phase reached so far.
type Gate struct {
	Phase            Phase                  `json:"phase"`
	Logistics        *LogisticsInput        `json:"logistics,omitempty"`
	GroundConditions *GroundConditionsInput `json:"groundConditions,omitempty"`
	Dimensions       *DimensionsInput       `json:"dimensions,omitempty"`
	MaterialTier     *MaterialTierInput     `json:"materialTier,omitempty"`
	Errors           []FieldError           `json:"errors,omitempty"`
}

var (
	// ErrFirstPhase is returned by Back in the logistics phase.
	ErrFirstPhase = errors.New("already at the first phase")
	// ErrIncomplete is returned by ProjectInput before the gate completes.
	ErrIncomplete = errors.New("intake is not complete")
)

// Machine validates submissions against the phase schemas.
type Machine struct {
	val *platformvalidator.Validator
}

// NewMachine registers the gate's custom tags on val.
func NewMachine(val *platformvalidator.Validator) (*Machine, error) {
	if err := val.RegisterValidation("ukpostcode", func(fl validator.FieldLevel) bool {
		_, ok := extract.StrictPostcode(fl.Field().String())
		return ok
	}); err != nil {
		return nil, fmt.Errorf("register ukpostcode: %w", err)
	}
	return &Machine{val: val}, nil
}

// Submit validates in against the current phase. On success the data is
// stored and the gate advances; on failure it stays put with Errors set.
func (m *Machine) Submit(g Gate, in PhaseInput) Gate {
	if g.Phase == PhaseComplete {
		g.Errors = []FieldError{{Field: "phase", Message: "intake is already complete"}}
		return g
	}
	if in == nil || in.phase() != g.Phase {
		g.Errors = []FieldError{{Field: "phase", Message: fmt.Sprintf("expected %s details", g.Phase)}}
		return g
	}
	if errs := m.validate(g, in); len(errs) > 0 {
		g.Errors = errs
		return g
	}

	switch v := in.(type) {
	case LogisticsInput:
		g.Logistics = &v
	case GroundConditionsInput:
		g.GroundConditions = &v
	case DimensionsInput:
		g.Dimensions = &v
	case MaterialTierInput:
		g.MaterialTier = &v
	}
	g.Errors = nil
	g.Phase++
	return g
}

func (m *Machine) validate(g Gate, in PhaseInput) []FieldError {
	prefix := in.phase().String()
	var out []FieldError

	if err := m.val.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []FieldError{{Field: prefix, Message: err.Error()}}
		}
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:   prefix + "." + fe.Field(),
				Message: fe.Field() + " " + describe(fe),
			})
		}
	}

	if dims, ok := in.(DimensionsInput); ok {
		if dims.Area != nil {
			out = append(out, FieldError{
				Field:   prefix + ".area",
				Message: "give length and width separately; a single area is not accepted",
			})
		}
		if g.Logistics != nil && g.Logistics.Service == domain.ServiceDecking && dims.DeckHeight == nil {
			out = append(out, FieldError{Field: prefix + ".deckHeight", Message: "deckHeight is required for decking"})
		}
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "positivef":
		return "must be greater than zero"
	case "ukpostcode":
		return "must be a valid UK postcode"
	default:
		return "is invalid"
	}
}

// Back returns to the previous phase keeping every stored phase's data.
func (g Gate) Back() (Gate, error) {
	if g.Phase == PhaseLogistics {
		return g, ErrFirstPhase
	}
	g.Phase--
	g.Errors = nil
	return g, nil
}

// Reset returns to the first phase with all phase data cleared.
func (g Gate) Reset() Gate {
	return Gate{}
}

// ProjectInput builds the pricing input from a completed gate.
func (g Gate) ProjectInput() (domain.ValidatedProjectInput, error) {
	if g.Phase != PhaseComplete || g.Logistics == nil || g.GroundConditions == nil || g.Dimensions == nil || g.MaterialTier == nil {
		return domain.ValidatedProjectInput{}, ErrIncomplete
	}
	svc := g.Logistics.Service
	in := domain.ValidatedProjectInput{
		Service:         svc,
		ExcavatorAccess: *g.Logistics.ExcavatorAccess,
		DrivewayAccess:  *g.Logistics.DrivewayAccess,
		Slope:           g.GroundConditions.Slope,
		SubBase:         g.GroundConditions.SubBase,
		Demolition:      svc.AllowsDemolition() && *g.GroundConditions.Demolition,
		Length:          g.Dimensions.Length,
		Width:           g.Dimensions.Width,
		Area:            g.Dimensions.Length * g.Dimensions.Width,
		MaterialTier:    g.MaterialTier.MaterialTier,
	}
	if svc == domain.ServiceDecking && g.Dimensions.DeckHeight != nil {
		in.DeckHeight = domain.Ptr(*g.Dimensions.DeckHeight)
	}
	if err := in.Check(); err != nil {
		return domain.ValidatedProjectInput{}, err
	}
	return in, nil
}

// DecodeSubmission parses a JSON body into the schema for phase. Unknown
// fields are rejected.
func DecodeSubmission(phase Phase, raw []byte) (PhaseInput, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var err error
	switch phase {
	case PhaseLogistics:
		var in LogisticsInput
		err = dec.Decode(&in)
		return in, err
	case PhaseGroundConditions:
		var in GroundConditionsInput
		err = dec.Decode(&in)
		return in, err
	case PhaseDimensions:
		var in DimensionsInput
		err = dec.Decode(&in)
		return in, err
	case PhaseMaterialTier:
		var in MaterialTierInput
		err = dec.Decode(&in)
		return in, err
	}
	return nil, fmt.Errorf("no submission accepted in phase %s", phase)
}
