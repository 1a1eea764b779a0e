package repository

import (
	"context"

	"campus-support/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketRepository persists support tickets, replies and attachments
type TicketRepository struct {
	db *gorm.DB
}

// TicketFilter narrows ticket listings. Zero fields match everything.
type TicketFilter struct {
	UserID   string
	Status   models.TicketStatus
	Priority models.TicketPriority
	Category string
	Limit    int
	Offset   int
}

// Create inserts a ticket. A duplicate ticket number surfaces as
// gorm.ErrDuplicatedKey when the connection translates errors.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(ticket).Error
}

// Get loads a ticket. lock takes a row lock, which only makes sense inside
// a transaction.
func (r *TicketRepository) Get(ctx context.Context, id uint, lock bool) (*models.Ticket, error) {
	tx := r.db.WithContext(ctx)
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ticket models.Ticket
	if err := tx.Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetWithThread loads a ticket with its messages and attachments in order
func (r *TicketRepository) GetWithThread(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// List returns matching tickets, newest first, with the total match count
func (r *TicketRepository) List(ctx context.Context, f TicketFilter) ([]models.Ticket, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Ticket{})
	if f.UserID != "" {
		tx = tx.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		tx = tx.Where("priority = ?", f.Priority)
	}
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tickets []models.Ticket
	err := tx.Order("created_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&tickets).Error
	return tickets, total, err
}

// AddMessage appends a reply or system note to a ticket
func (r *TicketRepository) AddMessage(ctx context.Context, msg *models.TicketMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// MessageBelongs reports whether messageID is a message of ticketID
func (r *TicketRepository) MessageBelongs(ctx context.Context, ticketID, messageID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.TicketMessage{}).
		Where("id = ? AND ticket_id = ?", messageID, ticketID).
		Count(&n).Error
	return n > 0, err
}

// Update writes the given columns and bumps updated_at
func (r *TicketRepository) Update(ctx context.Context, ticket *models.Ticket, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(ticket).Updates(fields).Error
}

// AddAttachment records file metadata against a ticket
func (r *TicketRepository) AddAttachment(ctx context.Context, a *models.TicketAttachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}
