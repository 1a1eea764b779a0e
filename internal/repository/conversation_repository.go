package repository

import (
	"context"
	"fmt"
	"time"

	"campus-support/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository persists chat sessions and their messages
type ConversationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// CreateIfAbsent inserts the session unless the id already exists, then
// returns the stored row. Concurrent callers converge on one row.
func (r *ConversationRepository) CreateIfAbsent(ctx context.Context, session *models.ChatSession) (*models.ChatSession, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return r.GetSession(ctx, session.ID)
}

// GetSession returns gorm.ErrRecordNotFound for unknown ids
func (r *ConversationRepository) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// Append stores msg as the next message of its session. The session row is
// locked for the duration; guard may veto the append after seeing it.
// Seq and CreatedAt are assigned here.
func (r *ConversationRepository) Append(ctx context.Context, msg *models.ChatMessage, guard func(*models.ChatSession) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.ChatSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.SessionID).
			First(&session).Error
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(&session); err != nil {
				return err
			}
		}

		stamp := r.now().UTC().Truncate(time.Microsecond)
		if session.MessageCount > 0 {
			floor := session.LastMessageAt.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
			if stamp.Before(floor) {
				stamp = floor
			}
		}
		msg.Seq = session.MessageCount + 1
		msg.CreatedAt = stamp

		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return tx.Model(&models.ChatSession{}).
			Where("id = ?", session.ID).
			Updates(map[string]any{
				"message_count":   gorm.Expr("message_count + ?", 1),
				"last_message_at": stamp,
			}).Error
	})
}

// Recent returns the last limit messages of a session, oldest first
func (r *ConversationRepository) Recent(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// LinkTicket records the escalated ticket on the session. It reports false
// when the session does not exist.
func (r *ConversationRepository) LinkTicket(ctx context.Context, sessionID string, ticketID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ChatSession{}).
		Where("id = ?", sessionID).
		Update("escalated_ticket_id", ticketID)
	return res.RowsAffected > 0, res.Error
}
