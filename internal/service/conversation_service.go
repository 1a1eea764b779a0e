package service

import (
	"context"
	"time"

	"campus-support/backend/internal/models"
	"campus-support/backend/internal/repository"
	apperrors "campus-support/backend/pkg/errors"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is used when callers pass a non-positive limit
const DefaultHistoryLimit = 10

// ConversationService keeps per-session message history
type ConversationService struct {
	store *repository.Store
	now   func() time.Time
}

// NewConversationService creates a new ConversationService
func NewConversationService(store *repository.Store) *ConversationService {
	return &ConversationService{store: store, now: time.Now}
}

// EnsureSession returns the session with the given id, creating it when
// absent. An empty id mints a new one. The owner is only recorded at creation.
func (s *ConversationService) EnsureSession(ctx context.Context, sessionID string, actor models.Actor) (*models.ChatSession, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !models.ValidSessionID(sessionID) {
		return nil, apperrors.InvalidArgument("Invalid session id")
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	session, err := s.store.Conversations.CreateIfAbsent(ctx, &models.ChatSession{
		ID:            sessionID,
		UserID:        actor.UserRef(),
		StartedAt:     now,
		LastMessageAt: now,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return session, nil
}

// AppendMessage adds the next message to a session. The first message of
// a session must come from the user.
func (s *ConversationService) AppendMessage(ctx context.Context, sessionID string, role models.Role, content string, metadata *models.MessageMetadata) (*models.ChatMessage, error) {
	if !role.Valid() {
		return nil, apperrors.InvalidArgument("Invalid message role")
	}

	msg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
	}
	err := s.store.Conversations.Append(ctx, msg, func(session *models.ChatSession) error {
		if session.MessageCount == 0 && role != models.RoleUser {
			return apperrors.InvalidArgument("A conversation must start with a user message")
		}
		return nil
	})
	if err != nil {
		return nil, toAppError(err, "Session not found")
	}
	return msg, nil
}

// History returns the last limit messages, oldest first
func (s *ConversationService) History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	messages, err := s.store.Conversations.Recent(ctx, sessionID, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return messages, nil
}

// GetSession returns NotFound for unknown sessions
func (s *ConversationService) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	session, err := s.store.Conversations.GetSession(ctx, sessionID)
	if err != nil {
		return nil, toAppError(err, "Session not found")
	}
	return session, nil
}

// SessionHistory returns a session's messages to a viewer. Sessions bound
// to a user are visible to that user and to staff.
func (s *ConversationService) SessionHistory(ctx context.Context, sessionID string, viewer models.Actor, limit int) (*models.ChatSession, []models.ChatMessage, error) {
	if !models.ValidSessionID(sessionID) {
		return nil, nil, apperrors.InvalidArgument("Invalid session id")
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.UserID != nil && *session.UserID != viewer.UserID && !viewer.Staff {
		return nil, nil, apperrors.Forbidden("This conversation belongs to another user")
	}
	messages, err := s.History(ctx, sessionID, limit)
	if err != nil {
		return nil, nil, err
	}
	return session, messages, nil
}
