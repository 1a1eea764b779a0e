package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"campus-support/backend/internal/models"
	"campus-support/backend/internal/notify"
	"campus-support/backend/internal/repository"
	apperrors "campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/shared/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	maxSubjectLen           = 200
	ticketNumberAttempts    = 5
	defaultTranscriptSize   = 5
	defaultNotifyTimeout    = 10 * time.Second
	transcriptHeader        = "Conversation transcript (most recent messages):"
	transcriptEmptyNotation = "(no messages)"
)

// EscalationConfig tunes escalation
type EscalationConfig struct {
	TranscriptSize int
	NotifyTimeout  time.Duration
}

// EscalateRequest asks for a human to take over
type EscalateRequest struct {
	ConversationID string
	Category       string
	Priority       string
	Subject        string
	Description    string
	Requester      models.Actor
}

// EscalationResult is the public view of the created ticket
type EscalationResult struct {
	ID           uint                `json:"id"`
	TicketNumber string              `json:"ticket_number"`
	Subject      string              `json:"subject"`
	Status       models.TicketStatus `json:"status"`
}

// EscalationService turns conversations into support tickets
type EscalationService struct {
	store    *repository.Store
	notifier notify.Notifier
	cfg      EscalationConfig
	metrics  *observability.Metrics
	log      *logger.Logger

	now     func() time.Time
	numbers func(time.Time) string
	wg      sync.WaitGroup
}

// NewEscalationService creates a new EscalationService
func NewEscalationService(store *repository.Store, notifier notify.Notifier, cfg EscalationConfig, metrics *observability.Metrics, log *logger.Logger) *EscalationService {
	if cfg.TranscriptSize <= 0 {
		cfg.TranscriptSize = defaultTranscriptSize
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}
	return &EscalationService{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
		numbers:  NewTicketNumber,
	}
}

// Escalate creates a ticket, attaches the conversation transcript when a
// conversation is given, and notifies staff after the commit
func (s *EscalationService) Escalate(ctx context.Context, req EscalateRequest) (*EscalationResult, error) {
	ctx, span := otel.Tracer("campus-support/escalation").Start(ctx, "escalation.create")
	defer span.End()

	ticket, err := s.newTicket(req)
	if err != nil {
		return nil, err
	}
	sessionID := req.ConversationID

	for attempt := 1; attempt <= ticketNumberAttempts; attempt++ {
		candidate := *ticket
		candidate.TicketNumber = s.numbers(s.now())
		err = s.store.Transaction(ctx, func(tx *repository.Store) error {
			return s.persist(ctx, tx, &candidate, sessionID)
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.log.WithContext(ctx).Warn("Ticket number collision, regenerating",
				"ticket_number", candidate.TicketNumber,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, apperrors.Internal(fmt.Errorf("create ticket: %w", err))
		}
		ticket = &candidate
		break
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("no free ticket number after %d attempts: %w", ticketNumberAttempts, err))
	}

	span.SetAttributes(attribute.String("ticket.number", ticket.TicketNumber))
	s.metrics.Escalation(ctx, ticket.Category, string(ticket.Priority))
	s.log.WithContext(ctx).Info("Ticket escalated",
		"ticket_id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
		"session_id", sessionID,
	)

	s.notifyAsync(ctx, ticket, req.Requester)

	return &EscalationResult{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Subject:      ticket.Subject,
		Status:       ticket.Status,
	}, nil
}

func (s *EscalationService) newTicket(req EscalateRequest) (*models.Ticket, error) {
	subject := strings.TrimSpace(req.Subject)
	description := strings.TrimSpace(req.Description)
	if subject == "" || description == "" {
		return nil, apperrors.InvalidArgument("Subject and description are required")
	}
	if utf8.RuneCountInString(subject) > maxSubjectLen {
		return nil, apperrors.Newf(apperrors.KindInvalidArgument, "Subject must be at most %d characters", maxSubjectLen)
	}
	if req.ConversationID != "" && !models.ValidSessionID(req.ConversationID) {
		return nil, apperrors.InvalidArgument("Invalid conversation id")
	}

	priority := models.TicketPriorityMedium
	if p := strings.TrimSpace(req.Priority); p != "" {
		priority = models.TicketPriority(strings.ToLower(p))
		if !priority.Valid() {
			return nil, apperrors.InvalidArgument("Priority must be one of low, medium, high, urgent")
		}
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = models.DefaultTicketCategory
	}

	ticket := &models.Ticket{
		UserID:         req.Requester.UserRef(),
		RequesterEmail: req.Requester.Email,
		Subject:        subject,
		Description:    description,
		Category:       category,
		Priority:       priority,
		Status:         models.TicketStatusOpen,
	}
	if req.ConversationID != "" {
		id := req.ConversationID
		ticket.EscalatedFromSessionID = &id
	}
	return ticket, nil
}

func (s *EscalationService) persist(ctx context.Context, tx *repository.Store, ticket *models.Ticket, sessionID string) error {
	if err := tx.Tickets.Create(ctx, ticket); err != nil {
		return err
	}
	if sessionID == "" {
		return nil
	}

	messages, err := tx.Conversations.Recent(ctx, sessionID, s.cfg.TranscriptSize)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	if err := tx.Tickets.AddMessage(ctx, &models.TicketMessage{
		TicketID: ticket.ID,
		Message:  BuildTranscript(messages),
		IsSystem: true,
	}); err != nil {
		return fmt.Errorf("store transcript: %w", err)
	}
	if _, err := tx.Conversations.LinkTicket(ctx, sessionID, ticket.ID); err != nil {
		return fmt.Errorf("link session: %w", err)
	}
	return nil
}

// BuildTranscript renders messages oldest first as User:/Bot: lines
func BuildTranscript(messages []models.ChatMessage) string {
	var b strings.Builder
	b.WriteString(transcriptHeader)
	if len(messages) == 0 {
		b.WriteString("\n" + transcriptEmptyNotation)
		return b.String()
	}
	for _, m := range messages {
		speaker := "User"
		switch m.Role {
		case models.RoleAssistant:
			speaker = "Bot"
		case models.RoleUser:
		}
		b.WriteString("\n" + speaker + ": " + m.Content)
	}
	return b.String()
}

func (s *EscalationService) notifyAsync(ctx context.Context, ticket *models.Ticket, requester models.Actor) {
	summary := notify.TicketSummary{
		TicketID:       ticket.ID,
		TicketNumber:   ticket.TicketNumber,
		Subject:        ticket.Subject,
		Category:       ticket.Category,
		Priority:       string(ticket.Priority),
		RequesterID:    requester.UserID,
		RequesterEmail: requester.Email,
	}
	if ticket.EscalatedFromSessionID != nil {
		summary.SessionID = *ticket.EscalatedFromSessionID
	}

	// Detached from the request so a client disconnect cannot cancel it.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.notifier.NotifyStaff(notifyCtx, summary); err != nil {
			s.metrics.NotifyFailure(notifyCtx)
			s.log.WithContext(notifyCtx).LogError(err, "Staff notification failed",
				"ticket_id", summary.TicketID,
				"ticket_number", summary.TicketNumber,
			)
		}
	}()
}

// Wait blocks until in-flight notifications finish
func (s *EscalationService) Wait() {
	s.wg.Wait()
}
