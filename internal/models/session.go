package models

import (
	"regexp"
	"time"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]{1,128}$`)

// ValidSessionID reports whether a client-supplied session id is acceptable
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// ChatSession is one conversation thread with the assistant
type ChatSession struct {
	ID                string        `json:"id" gorm:"primaryKey;size:128"`
	UserID            *string       `json:"user_id,omitempty" gorm:"size:64;index"`
	StartedAt         time.Time     `json:"started_at" gorm:"not null"`
	LastMessageAt     time.Time     `json:"last_message_at" gorm:"not null"`
	MessageCount      int           `json:"message_count" gorm:"not null;default:0"`
	EscalatedTicketID *uint         `json:"escalated_ticket_id,omitempty"`
	Messages          []ChatMessage `json:"-" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name
func (ChatSession) TableName() string {
	return "chat_sessions"
}
