// Package dialogue owns the conversation fact set: it merges extractor
// output under per-field acceptance rules, scores completeness, picks the
// next question and runs the retry protocol.
//
// Every function takes a state value and returns a new one; nothing here
// holds or mutates shared state.
package dialogue

import (
	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/intake/extract"
)

// strayAreaLimit guards a real area against a stray small number.
const strayAreaLimit = 2.0

// Merge folds one extraction into state. asking is the field the previous
// question was about; it unlocks the context-gated acceptance rules.
func Merge(state domain.ConversationState, ex domain.Extraction, asking domain.Field) domain.ConversationState {
	next := state

	if ex.Service != nil && ex.Service.Valid() && (next.Service == nil || asking == domain.FieldService) {
		next = next.WithService(*ex.Service)
	}

	switch {
	case ex.Length != nil && ex.Width != nil:
		if *ex.Length > 0 && *ex.Width > 0 {
			next = next.WithDimensions(*ex.Length, *ex.Width)
		}
	case ex.Area != nil && *ex.Area > 0:
		if acceptArea(next, *ex.Area, asking) {
			next = next.WithArea(*ex.Area)
		}
	}

	if ex.MaterialTier != nil && ex.MaterialTier.Valid() {
		next = next.WithMaterialTier(*ex.MaterialTier)
	}
	if ex.ExcavatorAccess != nil {
		next = next.WithExcavatorAccess(*ex.ExcavatorAccess)
	}
	if ex.DrivewayAccess != nil {
		next = next.WithDrivewayAccess(*ex.DrivewayAccess)
	}
	if ex.Slope != nil && ex.Slope.Valid() {
		next = next.WithSlope(*ex.Slope)
	}
	if ex.Demolition != nil {
		next = next.WithDemolition(*ex.Demolition)
	}
	if ex.SubBase != nil && ex.SubBase.Valid() {
		next = next.WithSubBase(*ex.SubBase)
	}
	if ex.DeckHeight != nil && *ex.DeckHeight > 0 {
		next = next.WithDeckHeight(*ex.DeckHeight)
	}
	if ex.Overgrown != nil {
		next = next.WithOvergrown(*ex.Overgrown)
	}
	if ex.GateCount != nil && *ex.GateCount >= 0 {
		next = next.WithGateCount(*ex.GateCount)
	}
	if len(ex.Upsells) > 0 {
		next = next.WithUpsells(ex.Upsells...)
	}

	if ex.FullName != nil && (asking == domain.FieldFullName || ex.SelfIntroduced) {
		next = next.WithFullName(*ex.FullName)
	}
	if ex.Phone != nil {
		next = next.WithPhone(*ex.Phone)
	}
	if ex.Email != nil {
		next = next.WithEmail(*ex.Email)
	}
	if ex.Budget != nil && (asking == domain.FieldBudget || ex.ExplicitCurrency) {
		next = next.WithBudget(*ex.Budget)
	}
	if ex.Postcode != nil && (ex.PostcodeStrict || asking == domain.FieldPostcode) {
		next = next.WithPostcode(*ex.Postcode)
	}
	if ex.StartTiming != nil {
		next = next.WithStartTiming(*ex.StartTiming)
	}
	if ex.SoilNote != nil {
		next = next.WithSoilNote(*ex.SoilNote)
	}

	return next.WithCompleteness(Completeness(next))
}

func acceptArea(state domain.ConversationState, area float64, asking domain.Field) bool {
	current, ok := state.EffectiveArea()
	if !ok || asking == domain.FieldDimensions {
		return true
	}
	return !(area < strayAreaLimit && current > strayAreaLimit)
}

// FilterRemote prepares a remotely inferred extraction for Merge. Fields the
// state already holds are dropped, and the flags that unlock context-gated
// rules are recomputed locally rather than trusted.
func FilterRemote(state domain.ConversationState, ex domain.Extraction) domain.Extraction {
	if state.Service != nil {
		ex.Service = nil
	}
	if state.HasGeometry() {
		ex.Area, ex.Length, ex.Width = nil, nil, nil
	}
	if ex.Length != nil && ex.Width != nil {
		ex.Area = nil
	} else {
		ex.Length, ex.Width = nil, nil
	}
	if state.MaterialTier != nil {
		ex.MaterialTier = nil
	}
	if state.ExcavatorAccess != nil {
		ex.ExcavatorAccess = nil
	}
	if state.DrivewayAccess != nil {
		ex.DrivewayAccess = nil
	}
	if state.Slope != nil {
		ex.Slope = nil
	}
	if state.Demolition != nil {
		ex.Demolition = nil
	}
	if state.SubBase != nil {
		ex.SubBase = nil
	}
	if state.DeckHeight != nil {
		ex.DeckHeight = nil
	}
	if state.Overgrown != nil {
		ex.Overgrown = nil
	}
	if state.GateCount != nil {
		ex.GateCount = nil
	}
	if state.FullName != nil {
		ex.FullName = nil
	}
	if state.Phone != nil {
		ex.Phone = nil
	}
	if state.Email != nil {
		ex.Email = nil
	}
	if state.Budget != nil {
		ex.Budget = nil
	}
	if state.Postcode != nil {
		ex.Postcode = nil
	}
	if state.StartTiming != nil {
		ex.StartTiming = nil
	}
	if state.SoilNote != nil {
		ex.SoilNote = nil
	}

	ex.SelfIntroduced = false
	ex.ExplicitCurrency = false
	ex.PostcodeStrict = false
	if ex.Postcode != nil {
		if canonical, ok := extract.StrictPostcode(*ex.Postcode); ok {
			ex.Postcode = domain.Ptr(canonical)
			ex.PostcodeStrict = true
		}
	}
	return ex
}

// Changed reports whether the slot for f differs between prev and next.
func Changed(prev, next domain.ConversationState, f domain.Field) bool {
	switch f {
	case domain.FieldService:
		return !eq(prev.Service, next.Service)
	case domain.FieldDimensions:
		return !eq(prev.Area, next.Area) || !eq(prev.Length, next.Length) || !eq(prev.Width, next.Width)
	case domain.FieldMaterialTier:
		return !eq(prev.MaterialTier, next.MaterialTier)
	case domain.FieldExcavatorAccess:
		return !eq(prev.ExcavatorAccess, next.ExcavatorAccess)
	case domain.FieldDeckHeight:
		return !eq(prev.DeckHeight, next.DeckHeight)
	case domain.FieldOvergrowth:
		return !eq(prev.Overgrown, next.Overgrown)
	case domain.FieldGateCount:
		return !eq(prev.GateCount, next.GateCount)
	case domain.FieldDrivewayAccess:
		return !eq(prev.DrivewayAccess, next.DrivewayAccess)
	case domain.FieldSlope:
		return !eq(prev.Slope, next.Slope)
	case domain.FieldDemolition:
		return !eq(prev.Demolition, next.Demolition)
	case domain.FieldFullName:
		return !eq(prev.FullName, next.FullName)
	case domain.FieldPhone:
		return !eq(prev.Phone, next.Phone)
	case domain.FieldEmail:
		return !eq(prev.Email, next.Email)
	case domain.FieldBudget:
		return !eq(prev.Budget, next.Budget)
	case domain.FieldPostcode:
		return !eq(prev.Postcode, next.Postcode)
	}
	return false
}

func eq[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
