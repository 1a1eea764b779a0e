package models

import (
	"time"
)

// Role identifies who authored a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}

// SuggestedAction is a follow-up the client can offer as a button
type SuggestedAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

// MessageMetadata is attached to assistant messages
type MessageMetadata struct {
	Intent           string            `json:"intent,omitempty"`
	Confidence       float64           `json:"confidence"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// ChatMessage is a single turn in a session. Seq is the per-session order.
type ChatMessage struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	SessionID string           `json:"session_id" gorm:"size:128;not null;uniqueIndex:idx_chat_messages_session_seq,priority:1"`
	Seq       int              `json:"seq" gorm:"not null;uniqueIndex:idx_chat_messages_session_seq,priority:2"`
	Role      Role             `json:"role" gorm:"size:16;not null"`
	Content   string           `json:"content" gorm:"type:text;not null"`
	Metadata  *MessageMetadata `json:"metadata,omitempty" gorm:"type:text;serializer:json"`
	CreatedAt time.Time        `json:"created_at" gorm:"not null"`
}

// TableName overrides the table name
func (ChatMessage) TableName() string {
	return "chat_messages"
}
