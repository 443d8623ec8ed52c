// Package domain provides the core types of the intake conversation: the
// closed set of slots, the per-conversation fact set and the validated
// project input consumed by pricing.
package domain

import "fmt"

// Field identifies one slot the dialogue can ask about. The set is closed;
// fieldCount sizes per-field arrays so every slot has storage.
type Field uint8

const (
	FieldNone Field = iota
	FieldService
	FieldDimensions
	FieldMaterialTier
	FieldExcavatorAccess
	FieldDeckHeight
	FieldOvergrowth
	FieldGateCount
	FieldDrivewayAccess
	FieldSlope
	FieldDemolition
	FieldFullName
	FieldPhone
	FieldEmail
	FieldBudget
	FieldPostcode

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldNone:            "none",
	FieldService:         "service",
	FieldDimensions:      "dimensions",
	FieldMaterialTier:    "materialTier",
	FieldExcavatorAccess: "excavatorAccess",
	FieldDeckHeight:      "deckHeight",
	FieldOvergrowth:      "overgrowth",
	FieldGateCount:       "gateCount",
	FieldDrivewayAccess:  "drivewayAccess",
	FieldSlope:           "slope",
	FieldDemolition:      "demolition",
	FieldFullName:        "fullName",
	FieldPhone:           "phone",
	FieldEmail:           "email",
	FieldBudget:          "userBudget",
	FieldPostcode:        "postalCode",
}

// AllFields lists every askable field (FieldNone excluded).
func AllFields() []Field {
	out := make([]Field, 0, fieldCount-1)
	for f := FieldService; f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) String() string {
	if f < fieldCount {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", uint8(f))
}

// Valid reports whether f is a member of the closed set.
func (f Field) Valid() bool {
	return f < fieldCount
}

// ParseField maps a wire name back to its Field.
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return FieldNone, fmt.Errorf("unknown field %q", name)
}

// MarshalText encodes the field by name.
func (f Field) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid field %d", uint8(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText decodes a field name.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// RetryCounts holds the per-field retry counter. It is an array so copying
// a ConversationState copies the counters too.
type RetryCounts [fieldCount]int

// Get returns the counter for f.
func (r RetryCounts) Get(f Field) int {
	if !f.Valid() {
		return 0
	}
	return r[f]
}

// Inc returns a copy with the counter for f incremented.
func (r RetryCounts) Inc(f Field) RetryCounts {
	if f.Valid() && f != FieldNone {
		r[f]++
	}
	return r
}
