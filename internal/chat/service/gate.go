package service

import (
	"context"
	"errors"

	"leadchat_backend/internal/chat/transport"
	"leadchat_backend/internal/intake/dialogue"
	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/intake/extract"
	"leadchat_backend/internal/intake/gate"
	"leadchat_backend/platform/apperr"
)

// SubmitPhase validates a batch submission for the gate's current phase.
// A rejected submission is stored with its field errors and the gate stays
// where it was. Completing the gate copies its facts into the conversation.
func (s *Service) SubmitPhase(ctx context.Context, sessionID string, raw []byte) (transport.GateResponse, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return transport.GateResponse{}, err
	}
	if sess.Gate.Phase == gate.PhaseComplete {
		return transport.GateResponse{}, apperr.Conflict("intake is already complete")
	}

	in, err := gate.DecodeSubmission(sess.Gate.Phase, raw)
	if err != nil {
		return transport.GateResponse{}, apperr.BadRequest("submission does not match the " + sess.Gate.Phase.String() + " form")
	}

	sess.Gate = s.machine.Submit(sess.Gate, in)
	if sess.Gate.Phase == gate.PhaseComplete {
		state, err := applyGate(sess.State, sess.Gate)
		if err != nil {
			return transport.GateResponse{}, apperr.Wrap(apperr.KindInternal, "could not apply intake", err)
		}
		sess.State = state
	}
	if err := s.save(ctx, sess); err != nil {
		return transport.GateResponse{}, err
	}
	return gateResponse(sess.ID, sess.Gate, sess.State), nil
}

// BackPhase returns to the previous phase with its data kept.
func (s *Service) BackPhase(ctx context.Context, sessionID string) (transport.GateResponse, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return transport.GateResponse{}, err
	}
	g, err := sess.Gate.Back()
	if errors.Is(err, gate.ErrFirstPhase) {
		return transport.GateResponse{}, apperr.Conflict("already at the first step")
	}
	sess.Gate = g
	if err := s.save(ctx, sess); err != nil {
		return transport.GateResponse{}, err
	}
	return gateResponse(sess.ID, sess.Gate, sess.State), nil
}

// ResetGate clears every phase and starts over.
func (s *Service) ResetGate(ctx context.Context, sessionID string) (transport.GateResponse, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return transport.GateResponse{}, err
	}
	sess.Gate = sess.Gate.Reset()
	if err := s.save(ctx, sess); err != nil {
		return transport.GateResponse{}, err
	}
	return gateResponse(sess.ID, sess.Gate, sess.State), nil
}

// applyGate writes a completed gate's validated facts into the conversation
// so the chat only asks for what is still missing.
func applyGate(state domain.ConversationState, g gate.Gate) (domain.ConversationState, error) {
	in, err := g.ProjectInput()
	if err != nil {
		return state, err
	}
	state = state.
		WithService(in.Service).
		WithDimensions(in.Length, in.Width).
		WithMaterialTier(in.MaterialTier).
		WithExcavatorAccess(in.ExcavatorAccess).
		WithDrivewayAccess(in.DrivewayAccess).
		WithSlope(in.Slope).
		WithSubBase(in.SubBase)
	if in.Service.AllowsDemolition() {
		state = state.WithDemolition(in.Demolition)
	}
	if in.DeckHeight != nil {
		state = state.WithDeckHeight(*in.DeckHeight)
	}
	if pc, ok := extract.StrictPostcode(g.Logistics.Postcode); ok {
		state = state.WithPostcode(pc)
	}
	if q, ok := dialogue.NextQuestion(state); ok {
		state = state.WithLastAsked(q.Field)
	}
	return state.WithCompleteness(dialogue.Completeness(state)), nil
}

func gateResponse(sessionID string, g gate.Gate, state domain.ConversationState) transport.GateResponse {
	resp := transport.GateResponse{
		SessionID: sessionID,
		Gate:      g,
		Errors:    g.Errors,
		Complete:  g.Phase == gate.PhaseComplete,
	}
	if resp.Errors == nil {
		resp.Errors = []gate.FieldError{}
	}
	if resp.Complete {
		if q, ok := dialogue.NextQuestion(state); ok {
			resp.Question = &transport.QuestionView{Field: q.Field, Text: q.Text}
		}
	}
	return resp
}
