// Package service runs conversation turns: it threads each utterance through
// the extractor, the optional remote fallback and the dialogue rules, and
// prices the conversation once it is ready.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadchat_backend/internal/chat/transport"
	"leadchat_backend/internal/events"
	"leadchat_backend/internal/inference"
	"leadchat_backend/internal/intake/dialogue"
	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/internal/intake/extract"
	"leadchat_backend/internal/intake/gate"
	"leadchat_backend/internal/pricing"
	"leadchat_backend/internal/session"
	"leadchat_backend/platform/apperr"
	"leadchat_backend/platform/logger"
	"leadchat_backend/platform/sanitize"
)

const maxUtteranceRunes = 2000

const (
	msgRetryPrefix  = "Sorry, I didn't quite catch that. "
	msgAllDone      = "Thanks, that's everything we need. Someone from the team will be in touch shortly to arrange a site visit."
	msgSessionGone  = "conversation not found or expired"
	msgStoreDown    = "conversation store unavailable"
	msgNotReady     = "not enough information for an estimate yet"
	msgPricingError = "could not price this project"
)

// Fallback reads an utterance remotely when local extraction missed the
// asked field.
type Fallback interface {
	Extract(ctx context.Context, state domain.ConversationState, utterance string, asking domain.Field) (inference.Result, error)
}

// Explainer may adjust a locally computed estimate. It returns the baseline
// on failure.
type Explainer interface {
	Explain(ctx context.Context, in domain.ValidatedProjectInput, baseline pricing.EstimateResult) (pricing.EstimateResult, error)
}

type Service struct {
	store     session.Store
	engine    *pricing.Engine
	machine   *gate.Machine
	bus       events.Bus
	log       *logger.Logger
	fallback  Fallback
	explainer Explainer
	now       func() time.Time
}

func New(store session.Store, engine *pricing.Engine, machine *gate.Machine, bus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:   store,
		engine:  engine,
		machine: machine,
		bus:     bus,
		log:     log,
		now:     time.Now,
	}
}

// SetFallback enables remote extraction for inconclusive turns.
func (s *Service) SetFallback(f Fallback) {
	s.fallback = f
}

// SetExplainer enables the remote estimate explanation.
func (s *Service) SetExplainer(e Explainer) {
	s.explainer = e
}

// Start opens a conversation and asks the first question.
func (s *Service) Start(ctx context.Context) (transport.TurnResponse, error) {
	sess := session.New(s.now())
	q, _ := dialogue.NextQuestion(sess.State)
	reply := dialogue.Greeting() + " " + q.Text

	sess.State = sess.State.
		WithLastAsked(q.Field).
		WithMessage(domain.RoleAssistant, reply)
	if err := s.save(ctx, sess); err != nil {
		return transport.TurnResponse{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ConversationStarted{BaseEvent: events.NewBaseEvent(), SessionID: sess.ID})
	}
	return transport.TurnResponse{
		SessionID:    sess.ID,
		Reply:        reply,
		Question:     &transport.QuestionView{Field: q.Field, Text: q.Text},
		QuickReplies: []string{},
		Completeness: sess.State.Completeness,
	}, nil
}

// HandleTurn processes one user message.
func (s *Service) HandleTurn(ctx context.Context, sessionID, utterance string) (transport.TurnResponse, error) {
	utterance = sanitize.Utterance(utterance, maxUtteranceRunes)
	if utterance == "" {
		return transport.TurnResponse{}, apperr.Validation("message is required")
	}
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return transport.TurnResponse{}, err
	}
	log := s.log.WithSessionID(sess.ID)

	prev := sess.State
	asking := prev.LastAsked
	state := prev.WithMessage(domain.RoleUser, utterance)

	local := extract.Extract(utterance, extract.Context{Asking: asking, Service: prev.ServiceOrEmpty()})
	extractions := []domain.Extraction{local}
	remoteReply := ""
	if s.needsFallback(local, asking) {
		res, err := s.fallback.Extract(ctx, prev, utterance, asking)
		if err != nil {
			log.FallbackFailed("extract", err)
		} else {
			remote := dialogue.FilterRemote(dialogue.Merge(state, local, asking), res.Extraction)
			if !remote.IsEmpty() {
				extractions = append(extractions, remote)
				remoteReply = strings.TrimSpace(res.Reply)
			}
		}
	}
	state = dialogue.ApplyTurn(state, asking, extractions...)
	accepted := asking != domain.FieldNone && dialogue.Changed(prev, state, asking)
	log.TurnProcessed(sess.ID, asking.String(), accepted, state.Retries.Get(asking), state.Completeness)

	var qualified *events.LeadQualified
	if !state.Qualified && dialogue.ReadyForEstimate(state) {
		qualified = s.qualify(ctx, &sess, state)
		if qualified != nil {
			state = state.WithQualified()
		}
	}

	q, hasQuestion := dialogue.NextQuestion(state)
	reply := s.composeReply(state, asking, accepted, remoteReply, q, hasQuestion, qualified != nil, sess.Estimate)
	if hasQuestion {
		state = state.WithLastAsked(q.Field)
	} else {
		state = state.WithLastAsked(domain.FieldNone)
	}
	state = state.WithMessage(domain.RoleAssistant, reply)

	sess.State = state
	if err := s.save(ctx, sess); err != nil {
		return transport.TurnResponse{}, err
	}
	if qualified != nil {
		qualified.State = state
		if s.bus != nil {
			s.bus.Publish(ctx, *qualified)
		}
		log.LeadQualified(sess.ID, qualified.Estimate.Estimate, string(qualified.Estimate.Priority))
	}

	resp := transport.TurnResponse{
		SessionID:    sess.ID,
		Reply:        reply,
		QuickReplies: quickReplies(state, q, hasQuestion),
		Completeness: state.Completeness,
		Qualified:    state.Qualified,
	}
	if hasQuestion {
		resp.Question = &transport.QuestionView{Field: q.Field, Text: q.Text}
	}
	if qualified != nil {
		resp.Estimate = transport.NewEstimateView(*sess.Estimate)
	}
	return resp, nil
}

func (s *Service) needsFallback(local domain.Extraction, asking domain.Field) bool {
	if s.fallback == nil {
		return false
	}
	if asking == domain.FieldNone {
		return local.IsEmpty()
	}
	return !local.Sets(asking)
}

// qualify prices a ready conversation and records the lead on sess. It
// returns nil when the state cannot be priced; the conversation then simply
// carries on.
func (s *Service) qualify(ctx context.Context, sess *session.Session, state domain.ConversationState) *events.LeadQualified {
	in, err := dialogue.ProjectInput(state)
	if err != nil {
		s.log.Error("ready conversation could not be projected", "session_id", sess.ID, "error", err)
		return nil
	}
	result, err := s.price(ctx, in)
	if err != nil {
		s.log.Error("ready conversation could not be priced", "session_id", sess.ID, "error", err)
		return nil
	}

	leadID := uuid.New()
	sess.LeadID = &leadID
	sess.Estimate = &result
	return &events.LeadQualified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		SessionID: sess.ID,
		Estimate:  result,
	}
}

func (s *Service) price(ctx context.Context, in domain.ValidatedProjectInput) (pricing.EstimateResult, error) {
	baseline, err := s.engine.Estimate(in)
	if err != nil {
		return pricing.EstimateResult{}, apperr.Wrap(apperr.KindInternal, msgPricingError, err)
	}
	if s.explainer == nil {
		return baseline, nil
	}
	result, err := s.explainer.Explain(ctx, in, baseline)
	if err != nil {
		s.log.FallbackFailed("explain", err)
		return baseline, nil
	}
	return result, nil
}

func (s *Service) composeReply(state domain.ConversationState, asking domain.Field, accepted bool, remoteReply string, q dialogue.Question, hasQuestion, justQualified bool, est *pricing.EstimateResult) string {
	var parts []string
	if justQualified && est != nil {
		parts = append(parts, "Thanks! Based on what you've told me, the project would come to around "+
			pricing.FormatWholePounds(est.Estimate)+", most likely between "+
			pricing.FormatWholePounds(est.Low)+" and "+pricing.FormatWholePounds(est.High)+".")
	} else if remoteReply != "" {
		parts = append(parts, remoteReply)
	}

	switch {
	case !hasQuestion:
		parts = append(parts, msgAllDone)
	case asking != domain.FieldNone && !accepted && q.Field == asking && state.Retries.Get(asking) > 0:
		parts = append(parts, msgRetryPrefix+q.Text)
	default:
		parts = append(parts, q.Text)
	}
	return strings.Join(parts, " ")
}

func quickReplies(state domain.ConversationState, q dialogue.Question, hasQuestion bool) []string {
	if !hasQuestion || !state.ShowQuickReplies || state.Retries.Get(q.Field) == 0 {
		return []string{}
	}
	replies := dialogue.QuickReplies(q.Field, state.ServiceOrEmpty())
	if replies == nil {
		return []string{}
	}
	return replies
}

// Get returns the stored conversation.
func (s *Service) Get(ctx context.Context, sessionID string) (transport.SessionResponse, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return transport.SessionResponse{}, err
	}
	q, hasQuestion := dialogue.NextQuestion(sess.State)
	resp := transport.SessionResponse{
		SessionID:    sess.ID,
		State:        sess.State,
		Gate:         sess.Gate,
		QuickReplies: quickReplies(sess.State, q, hasQuestion),
	}
	if hasQuestion {
		resp.Question = &transport.QuestionView{Field: q.Field, Text: q.Text}
	}
	if sess.Estimate != nil {
		resp.Estimate = transport.NewEstimateView(*sess.Estimate)
	}
	return resp, nil
}

// Estimate prices the conversation without qualifying it. A completed gate
// takes precedence over the chat facts.
func (s *Service) Estimate(ctx context.Context, sessionID string) (*transport.EstimateView, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var in domain.ValidatedProjectInput
	switch {
	case sess.Gate.Phase == gate.PhaseComplete:
		in, err = sess.Gate.ProjectInput()
	case dialogue.ReadyForEstimate(sess.State):
		in, err = dialogue.ProjectInput(sess.State)
	default:
		return nil, apperr.Conflict(msgNotReady).WithOp("chat.Estimate")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConflict, msgNotReady, err)
	}

	result, err := s.price(ctx, in)
	if err != nil {
		return nil, err
	}
	return transport.NewEstimateView(result), nil
}

func (s *Service) load(ctx context.Context, sessionID string) (session.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return session.Session{}, apperr.NotFound(msgSessionGone)
	}
	if err != nil {
		return session.Session{}, apperr.Wrap(apperr.KindUnavailable, msgStoreDown, err)
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess session.Session) error {
	sess.UpdatedAt = s.now().UTC()
	if err := s.store.Put(ctx, sess); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, msgStoreDown, err)
	}
	return nil
}
