package models

import (
	"time"
)

// TicketStatus is the lifecycle state of a support ticket
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether staff may move a ticket from s to next.
// Resolved and closed tickets can only be reopened.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	switch s {
	case TicketStatusOpen:
		return next == TicketStatusInProgress || next == TicketStatusResolved || next == TicketStatusClosed
	case TicketStatusInProgress:
		return next == TicketStatusResolved || next == TicketStatusClosed
	case TicketStatusResolved:
		return next == TicketStatusClosed || next == TicketStatusOpen
	case TicketStatusClosed:
		return next == TicketStatusOpen
	}
	return false
}

// TicketPriority is the urgency of a ticket
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// DefaultTicketCategory is used when escalation omits a category
const DefaultTicketCategory = "general"

// Ticket is a durable support request handled by staff
type Ticket struct {
	ID                     uint               `json:"id" gorm:"primaryKey"`
	TicketNumber           string             `json:"ticket_number" gorm:"size:32;not null;uniqueIndex"`
	UserID                 *string            `json:"user_id,omitempty" gorm:"size:64;index"`
	RequesterEmail         string             `json:"requester_email,omitempty" gorm:"size:255"`
	Subject                string             `json:"subject" gorm:"size:255;not null"`
	Description            string             `json:"description" gorm:"type:text;not null"`
	Category               string             `json:"category" gorm:"size:64;not null;index"`
	Priority               TicketPriority     `json:"priority" gorm:"size:16;not null;index"`
	Status                 TicketStatus       `json:"status" gorm:"size:16;not null;index"`
	EscalatedFromSessionID *string            `json:"escalated_from_session_id,omitempty" gorm:"size:128;index"`
	FirstResponseAt        *time.Time         `json:"first_response_at,omitempty"`
	ResolvedAt             *time.Time         `json:"resolved_at,omitempty"`
	ClosedAt               *time.Time         `json:"closed_at,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
	Messages               []TicketMessage    `json:"messages,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Attachments            []TicketAttachment `json:"attachments,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name
func (Ticket) TableName() string {
	return "support_tickets"
}

// OwnedBy reports whether userID opened the ticket
func (t *Ticket) OwnedBy(userID string) bool {
	return userID != "" && t.UserID != nil && *t.UserID == userID
}

// TicketMessage is a reply on a ticket. System messages carry transcripts.
type TicketMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TicketID  uint      `json:"ticket_id" gorm:"not null;index"`
	AuthorID  *string   `json:"author_id,omitempty" gorm:"size:64"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	IsStaff   bool      `json:"is_staff" gorm:"not null"`
	IsSystem  bool      `json:"is_system" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name
func (TicketMessage) TableName() string {
	return "ticket_messages"
}

// TicketAttachment is file metadata; the bytes live in external storage
type TicketAttachment struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	TicketID        uint      `json:"ticket_id" gorm:"not null;index"`
	TicketMessageID *uint     `json:"ticket_message_id,omitempty"`
	FileName        string    `json:"file_name" gorm:"size:255;not null"`
	FileURL         string    `json:"file_url" gorm:"size:1024;not null"`
	ContentType     string    `json:"content_type" gorm:"size:128"`
	SizeBytes       int64     `json:"size_bytes"`
	UploadedBy      *string   `json:"uploaded_by,omitempty" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName overrides the table name
func (TicketAttachment) TableName() string {
	return "ticket_attachments"
}
