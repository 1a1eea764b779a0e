package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"campus-support/backend/ai"
	"campus-support/backend/internal/models"
	apperrors "campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/shared/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Apology is returned to the user when the oracle fails
const Apology = "I'm sorry, I couldn't process your request right now. Please try again in a moment, or ask to speak with our support team."

const maxFAQContext = 3

// AssistantConfig tunes a chat turn
type AssistantConfig struct {
	OracleTimeout time.Duration
	HistoryLimit  int
	MaxMessageLen int
}

// ChatRequest is one user turn. Context is free-form client state, such
// as the page the user is on, passed through to the oracle.
type ChatRequest struct {
	SessionID string
	Message   string
	Context   map[string]any
	Actor     models.Actor
}

// ChatResponse is the assistant's answer to a turn
type ChatResponse struct {
	SessionID          string                   `json:"session_id"`
	Message            string                   `json:"message"`
	Intent             string                   `json:"intent"`
	Confidence         float64                  `json:"confidence"`
	SuggestedActions   []models.SuggestedAction `json:"suggested_actions"`
	RequiresEscalation bool                     `json:"requires_escalation"`
	FAQs               []models.FAQ             `json:"faqs"`
}

// AssistantService runs a chat turn: persist the user message, consult the
// oracle with history and FAQ context, persist the reply
type AssistantService struct {
	conversations *ConversationService
	faqs          *FAQService
	oracle        ai.Oracle
	cfg           AssistantConfig
	metrics       *observability.Metrics
	log           *logger.Logger
}

// NewAssistantService creates a new AssistantService
func NewAssistantService(conversations *ConversationService, faqs *FAQService, oracle ai.Oracle, cfg AssistantConfig, metrics *observability.Metrics, log *logger.Logger) *AssistantService {
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 20 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.MaxMessageLen <= 0 {
		cfg.MaxMessageLen = 4000
	}
	return &AssistantService{
		conversations: conversations,
		faqs:          faqs,
		oracle:        oracle,
		cfg:           cfg,
		metrics:       metrics,
		log:           log,
	}
}

// Chat handles one turn. When the oracle fails after the user message was
// stored, the error is returned together with a response carrying only the
// session id so the client can keep the conversation.
func (s *AssistantService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := otel.Tracer("campus-support/assistant").Start(ctx, "assistant.chat")
	defer span.End()

	resp, err := s.chat(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(apperrors.KindOf(err).String())
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if resp != nil {
		span.SetAttributes(attribute.String("session.id", resp.SessionID))
	}
	s.metrics.ChatTurn(ctx, outcome)
	return resp, err
}

func (s *AssistantService) chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperrors.InvalidArgument("Message is required")
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageLen {
		return nil, apperrors.Newf(apperrors.KindInvalidArgument, "Message must be at most %d characters", s.cfg.MaxMessageLen)
	}
	if s.oracle == nil || !s.oracle.Configured() {
		return nil, apperrors.UpstreamUnavailable("The assistant is not available right now", ai.ErrNotConfigured)
	}

	session, err := s.conversations.EnsureSession(ctx, req.SessionID, req.Actor)
	if err != nil {
		return nil, err
	}
	userMsg, err := s.conversations.AppendMessage(ctx, session.ID, models.RoleUser, message, nil)
	if err != nil {
		return nil, err
	}
	partial := &ChatResponse{SessionID: session.ID}

	// One extra row: the message just stored is not part of the history.
	history, err := s.conversations.History(ctx, session.ID, s.cfg.HistoryLimit+1)
	if err != nil {
		return partial, err
	}
	faqs, err := s.faqs.Suggest(ctx, message, maxFAQContext)
	if err != nil {
		// FAQ context is optional for the oracle.
		s.log.WithContext(ctx).LogError(err, "Failed to load FAQ context", "session_id", session.ID)
		faqs = nil
	}

	genReq := buildGenerateRequest(message, userMsg.ID, history, s.cfg.HistoryLimit, faqs)
	genReq.Context = req.Context
	if !req.Actor.IsGuest() {
		genReq.Caller = &ai.Caller{ID: req.Actor.UserID, Email: req.Actor.Email, Role: req.Actor.Role}
	}
	gen, err := s.generate(ctx, genReq)
	if err != nil {
		return partial, err
	}

	_, err = s.conversations.AppendMessage(ctx, session.ID, models.RoleAssistant, gen.Reply, &models.MessageMetadata{
		Intent:           gen.Intent,
		Confidence:       gen.Confidence,
		SuggestedActions: gen.SuggestedActions,
	})
	if err != nil {
		return partial, err
	}

	if faqs == nil {
		faqs = []models.FAQ{}
	}
	actions := gen.SuggestedActions
	if actions == nil {
		actions = []models.SuggestedAction{}
	}
	return &ChatResponse{
		SessionID:          session.ID,
		Message:            gen.Reply,
		Intent:             gen.Intent,
		Confidence:         gen.Confidence,
		SuggestedActions:   actions,
		RequiresEscalation: gen.RequiresEscalation,
		FAQs:               faqs,
	}, nil
}

func (s *AssistantService) generate(ctx context.Context, req ai.GenerateRequest) (*ai.Generation, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()

	start := time.Now()
	gen, err := s.oracle.Generate(callCtx, req)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.metrics.OracleLatency(ctx, elapsed, "ok")
		return gen, nil
	case errors.Is(err, context.DeadlineExceeded):
		s.metrics.OracleLatency(ctx, elapsed, "timeout")
		s.log.WithContext(ctx).Warn("Oracle timed out", "timeout", s.cfg.OracleTimeout.String())
		return nil, apperrors.UpstreamTimeout("The assistant took too long to respond", err)
	default:
		s.metrics.OracleLatency(ctx, elapsed, "error")
		s.log.WithContext(ctx).LogError(err, "Oracle call failed")
		return nil, apperrors.UpstreamUnavailable("The assistant is temporarily unavailable", err)
	}
}

// buildGenerateRequest turns stored history into at most limit oracle
// turns, leaving out the message being answered
func buildGenerateRequest(message string, currentID uint, history []models.ChatMessage, limit int, faqs []models.FAQ) ai.GenerateRequest {
	req := ai.GenerateRequest{Message: message}
	for _, m := range history {
		if m.ID == currentID {
			continue
		}
		req.History = append(req.History, ai.Turn{Role: m.Role, Content: m.Content})
	}
	if len(req.History) > limit {
		req.History = req.History[len(req.History)-limit:]
	}
	for _, f := range faqs {
		req.FAQs = append(req.FAQs, ai.FAQContext{Category: f.Category, Question: f.Question, Answer: f.Answer})
	}
	return req
}
