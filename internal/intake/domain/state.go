package domain

import (
	"math"
	"slices"
)

// Message is one line of the conversation transcript.
type Message struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationState is the fact set of one conversation. It is a value:
// every With* method returns a new state and leaves the receiver untouched.
// Pointer fields mean "unknown" when nil and are never written through.
type ConversationState struct {
	Service *Service `json:"service,omitempty"`

	// Geometry. Area is authoritative unless Length and Width are both set,
	// in which case Area is derived from them.
	Area   *float64 `json:"area,omitempty"`
	Length *float64 `json:"length,omitempty"`
	Width  *float64 `json:"width,omitempty"`

	MaterialTier *Tier `json:"materialTier,omitempty"`

	ExcavatorAccess *bool    `json:"excavatorAccess,omitempty"`
	DrivewayAccess  *bool    `json:"drivewayAccess,omitempty"`
	Slope           *Slope   `json:"slope,omitempty"`
	Demolition      *bool    `json:"demolition,omitempty"`
	SubBase         *SubBase `json:"subBase,omitempty"`

	DeckHeight *float64 `json:"deckHeight,omitempty"`
	Overgrown  *bool    `json:"overgrown,omitempty"`
	GateCount  *int     `json:"gateCount,omitempty"`
	Upsells    []string `json:"upsells,omitempty"`

	FullName    *string `json:"fullName,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Budget      *int    `json:"budget,omitempty"`
	Postcode    *string `json:"postcode,omitempty"`
	StartTiming *string `json:"startTiming,omitempty"`
	SoilNote    *string `json:"soilNote,omitempty"`

	History          []Message   `json:"history,omitempty"`
	Completeness     int         `json:"completeness"`
	Retries          RetryCounts `json:"retries"`
	LastAsked        Field       `json:"lastAsked"`
	ShowQuickReplies bool        `json:"showQuickReplies"`
	Qualified        bool        `json:"qualified"`
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// ServiceOrEmpty returns the known service or "".
func (s ConversationState) ServiceOrEmpty() Service {
	if s.Service == nil {
		return ""
	}
	return *s.Service
}

// HasGeometry reports whether the project size is known.
func (s ConversationState) HasGeometry() bool {
	return s.Area != nil || (s.Length != nil && s.Width != nil)
}

// EffectiveArea returns the authoritative quantity: Length×Width when both
// are known, otherwise Area.
func (s ConversationState) EffectiveArea() (float64, bool) {
	if s.Length != nil && s.Width != nil {
		return roundQuantity(*s.Length * *s.Width), true
	}
	if s.Area != nil {
		return *s.Area, true
	}
	return 0, false
}

func (s ConversationState) WithService(v Service) ConversationState {
	s.Service = Ptr(v)
	return s
}

// WithDimensions sets length and width and re-derives the area.
func (s ConversationState) WithDimensions(length, width float64) ConversationState {
	s.Length = Ptr(length)
	s.Width = Ptr(width)
	s.Area = Ptr(roundQuantity(length * width))
	return s
}

// WithArea makes a single area authoritative, dropping any length/width.
func (s ConversationState) WithArea(v float64) ConversationState {
	s.Area = Ptr(v)
	s.Length = nil
	s.Width = nil
	return s
}

func (s ConversationState) WithMaterialTier(v Tier) ConversationState {
	s.MaterialTier = Ptr(v)
	return s
}

func (s ConversationState) WithExcavatorAccess(v bool) ConversationState {
	s.ExcavatorAccess = Ptr(v)
	return s
}

func (s ConversationState) WithDrivewayAccess(v bool) ConversationState {
	s.DrivewayAccess = Ptr(v)
	return s
}

func (s ConversationState) WithSlope(v Slope) ConversationState {
	s.Slope = Ptr(v)
	return s
}

func (s ConversationState) WithDemolition(v bool) ConversationState {
	s.Demolition = Ptr(v)
	return s
}

func (s ConversationState) WithSubBase(v SubBase) ConversationState {
	s.SubBase = Ptr(v)
	return s
}

func (s ConversationState) WithDeckHeight(v float64) ConversationState {
	s.DeckHeight = Ptr(v)
	return s
}

func (s ConversationState) WithOvergrown(v bool) ConversationState {
	s.Overgrown = Ptr(v)
	return s
}

func (s ConversationState) WithGateCount(v int) ConversationState {
	s.GateCount = Ptr(v)
	return s
}

// WithUpsells adds upsells not already present, keeping first-seen order.
func (s ConversationState) WithUpsells(v ...string) ConversationState {
	merged := slices.Clip(s.Upsells)
	for _, u := range v {
		if !slices.Contains(merged, u) {
			merged = append(merged, u)
		}
	}
	s.Upsells = merged
	return s
}

func (s ConversationState) WithFullName(v string) ConversationState {
	s.FullName = Ptr(v)
	return s
}

func (s ConversationState) WithPhone(v string) ConversationState {
	s.Phone = Ptr(v)
	return s
}

func (s ConversationState) WithEmail(v string) ConversationState {
	s.Email = Ptr(v)
	return s
}

func (s ConversationState) WithBudget(v int) ConversationState {
	s.Budget = Ptr(v)
	return s
}

func (s ConversationState) WithPostcode(v string) ConversationState {
	s.Postcode = Ptr(v)
	return s
}

func (s ConversationState) WithStartTiming(v string) ConversationState {
	s.StartTiming = Ptr(v)
	return s
}

func (s ConversationState) WithSoilNote(v string) ConversationState {
	s.SoilNote = Ptr(v)
	return s
}

// WithMessage appends to the transcript without sharing the backing array
// of the receiver's history.
func (s ConversationState) WithMessage(role, text string) ConversationState {
	s.History = append(slices.Clip(s.History), Message{Role: role, Text: text})
	return s
}

func (s ConversationState) WithCompleteness(v int) ConversationState {
	s.Completeness = v
	return s
}

func (s ConversationState) WithRetries(v RetryCounts) ConversationState {
	s.Retries = v
	return s
}

func (s ConversationState) WithLastAsked(f Field) ConversationState {
	s.LastAsked = f
	return s
}

func (s ConversationState) WithQuickReplies(show bool) ConversationState {
	s.ShowQuickReplies = show
	return s
}

func (s ConversationState) WithQualified() ConversationState {
	s.Qualified = true
	return s
}

// roundQuantity keeps derived areas free of float noise (10.5×5.2 = 54.6).
func roundQuantity(v float64) float64 {
	return math.Round(v*10000) / 10000
}
