package dialogue

import "leadchat_backend/internal/intake/domain"

// ApplyTurn merges the turn's extractions in order (local first, then any
// filtered remote result) and applies the retry protocol for asked.
func ApplyTurn(state domain.ConversationState, asked domain.Field, extractions ...domain.Extraction) domain.ConversationState {
	next := state
	for _, ex := range extractions {
		next = Merge(next, ex, asked)
	}
	return TrackRetry(state, next, asked)
}

// TrackRetry compares the asked slot before and after the turn. An answered
// question clears every counter and hides quick replies; an unanswered one
// bumps its counter and shows them. There is no attempt limit.
func TrackRetry(prev, next domain.ConversationState, asked domain.Field) domain.ConversationState {
	if asked == domain.FieldNone {
		return next
	}
	if Changed(prev, next, asked) {
		return next.WithRetries(domain.RetryCounts{}).WithQuickReplies(false)
	}
	retries := next.Retries.Inc(asked)
	return next.WithRetries(retries).WithQuickReplies(retries.Get(asked) >= 1)
}

// QuickReplies returns canned answers for f. Every literal parses back to a
// value for f when f is the asked field. Free-text fields have none.
func QuickReplies(f domain.Field, svc domain.Service) []string {
	switch f {
	case domain.FieldService:
		return []string{"Patio / paving", "Decking", "Lawn mowing", "Planting", "Fencing", "Pergola / raised beds", "General landscaping"}
	case domain.FieldDimensions:
		if svc.UsesLinearMetres() {
			return []string{"About 10 metres", "About 20 metres", "About 40 metres"}
		}
		return []string{"About 10 m²", "About 25 m²", "About 50 m²"}
	case domain.FieldMaterialTier:
		return []string{"Standard", "Premium", "Luxury"}
	case domain.FieldExcavatorAccess:
		return []string{"Yes, a digger can get in", "No, hand dig only"}
	case domain.FieldDeckHeight:
		return []string{"0.3 m high", "1 m high", "2 m high"}
	case domain.FieldOvergrowth:
		return []string{"Cut in the last 2 weeks", "Not cut for over a month"}
	case domain.FieldGateCount:
		return []string{"No gates", "1 gate", "2 gates"}
	case domain.FieldDrivewayAccess:
		return []string{"Yes, there's a driveway", "No driveway"}
	case domain.FieldSlope:
		return []string{"Flat", "Moderate slope", "Steep slope"}
	case domain.FieldDemolition:
		return []string{"Yes, remove the old surface", "No, nothing to remove"}
	case domain.FieldBudget:
		return []string{"Around £3,000", "Around £7,500", "£15,000 or more"}
	}
	return nil
}
