package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"campus-support/backend/internal/models"
	"campus-support/backend/internal/repository"
	apperrors "campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/logger"
)

const (
	defaultTicketPageSize = 20
	maxTicketPageSize     = 100
)

// TicketService handles replies and status changes on support tickets
type TicketService struct {
	store *repository.Store
	log   *logger.Logger
	now   func() time.Time
}

// NewTicketService creates a new TicketService
func NewTicketService(store *repository.Store, log *logger.Logger) *TicketService {
	return &TicketService{store: store, log: log, now: time.Now}
}

// Reply adds a message to a ticket. The first staff reply stamps
// first_response_at and moves an open ticket to in_progress.
func (s *TicketService) Reply(ctx context.Context, ticketID uint, author models.Actor, message string, asStaff bool) (*models.TicketMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.InvalidArgument("Message is required")
	}
	if author.IsGuest() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if asStaff && !author.Staff {
		return nil, apperrors.Forbidden("Only staff can post staff replies")
	}

	reply := &models.TicketMessage{
		TicketID: ticketID,
		AuthorID: author.UserRef(),
		Message:  message,
		IsStaff:  asStaff,
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		ticket, err := tx.Tickets.Get(ctx, ticketID, true)
		if err != nil {
			return err
		}
		// Ownership is checked before state.
		if !author.Staff && !ticket.OwnedBy(author.UserID) {
			return apperrors.Forbidden("You cannot reply to this ticket")
		}
		if ticket.Status == models.TicketStatusClosed {
			return apperrors.InvalidState("Ticket is closed")
		}

		if err := tx.Tickets.AddMessage(ctx, reply); err != nil {
			return err
		}

		now := s.now().UTC()
		fields := map[string]any{"updated_at": now}
		if asStaff {
			if ticket.FirstResponseAt == nil {
				fields["first_response_at"] = now
			}
			if ticket.Status == models.TicketStatusOpen {
				fields["status"] = models.TicketStatusInProgress
			}
		}
		return tx.Tickets.Update(ctx, ticket, fields)
	})
	if err != nil {
		return nil, toAppError(err, "Ticket not found")
	}
	return reply, nil
}

// UpdateStatus moves a ticket through its lifecycle. Staff only.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID uint, actor models.Actor, to models.TicketStatus) (*models.Ticket, error) {
	if actor.IsGuest() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if !actor.Staff {
		return nil, apperrors.Forbidden("Only staff can change ticket status")
	}
	if !to.Valid() {
		return nil, apperrors.InvalidArgument("Status must be one of open, in_progress, resolved, closed")
	}

	var updated *models.Ticket
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		ticket, err := tx.Tickets.Get(ctx, ticketID, true)
		if err != nil {
			return err
		}
		if !ticket.Status.CanTransitionTo(to) {
			return apperrors.Newf(apperrors.KindInvalidState, "Cannot move ticket from %s to %s", ticket.Status, to)
		}

		now := s.now().UTC()
		fields := map[string]any{"status": to, "updated_at": now}
		switch to {
		case models.TicketStatusResolved:
			fields["resolved_at"] = now
		case models.TicketStatusClosed:
			fields["closed_at"] = now
		case models.TicketStatusOpen:
			fields["resolved_at"] = nil
			fields["closed_at"] = nil
		case models.TicketStatusInProgress:
		}
		if err := tx.Tickets.Update(ctx, ticket, fields); err != nil {
			return err
		}
		updated, err = tx.Tickets.Get(ctx, ticketID, false)
		return err
	})
	if err != nil {
		return nil, toAppError(err, "Ticket not found")
	}
	s.log.WithContext(ctx).Info("Ticket status changed", "ticket_id", ticketID, "status", string(to), "actor", actor.UserID)
	return updated, nil
}

// Get returns a ticket with its thread to its owner or to staff
func (s *TicketService) Get(ctx context.Context, ticketID uint, viewer models.Actor) (*models.Ticket, error) {
	if viewer.IsGuest() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	ticket, err := s.store.Tickets.GetWithThread(ctx, ticketID)
	if err != nil {
		return nil, toAppError(err, "Ticket not found")
	}
	if !viewer.Staff && !ticket.OwnedBy(viewer.UserID) {
		return nil, apperrors.Forbidden("You cannot view this ticket")
	}
	return ticket, nil
}

// TicketQuery filters a listing
type TicketQuery struct {
	Status   string
	Priority string
	Category string
	Limit    int
	Offset   int
}

// TicketPage is one page of a listing
type TicketPage struct {
	Tickets []models.Ticket `json:"tickets"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// List returns tickets visible to the viewer: all for staff, own otherwise
func (s *TicketService) List(ctx context.Context, viewer models.Actor, q TicketQuery) (*TicketPage, error) {
	if viewer.IsGuest() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	filter := repository.TicketFilter{
		Category: strings.TrimSpace(q.Category),
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultTicketPageSize
	}
	if filter.Limit > maxTicketPageSize {
		filter.Limit = maxTicketPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if q.Status != "" {
		filter.Status = models.TicketStatus(q.Status)
		if !filter.Status.Valid() {
			return nil, apperrors.InvalidArgument("Unknown status filter")
		}
	}
	if q.Priority != "" {
		filter.Priority = models.TicketPriority(q.Priority)
		if !filter.Priority.Valid() {
			return nil, apperrors.InvalidArgument("Unknown priority filter")
		}
	}
	if !viewer.Staff {
		filter.UserID = viewer.UserID
	}

	tickets, total, err := s.store.Tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return &TicketPage{Tickets: tickets, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// AttachmentInput is file metadata supplied by the uploader
type AttachmentInput struct {
	TicketMessageID *uint
	FileName        string
	FileURL         string
	ContentType     string
	SizeBytes       int64
}

// AddAttachment records file metadata on an open ticket
func (s *TicketService) AddAttachment(ctx context.Context, ticketID uint, actor models.Actor, in AttachmentInput) (*models.TicketAttachment, error) {
	if actor.IsGuest() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	in.FileName = strings.TrimSpace(in.FileName)
	if in.FileName == "" {
		return nil, apperrors.InvalidArgument("file_name is required")
	}
	if u, err := url.Parse(strings.TrimSpace(in.FileURL)); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.InvalidArgument("file_url must be an http(s) URL")
	}
	if in.SizeBytes < 0 {
		return nil, apperrors.InvalidArgument("size_bytes must not be negative")
	}

	attachment := &models.TicketAttachment{
		TicketID:        ticketID,
		TicketMessageID: in.TicketMessageID,
		FileName:        in.FileName,
		FileURL:         strings.TrimSpace(in.FileURL),
		ContentType:     strings.TrimSpace(in.ContentType),
		SizeBytes:       in.SizeBytes,
		UploadedBy:      actor.UserRef(),
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		ticket, err := tx.Tickets.Get(ctx, ticketID, true)
		if err != nil {
			return err
		}
		if !actor.Staff && !ticket.OwnedBy(actor.UserID) {
			return apperrors.Forbidden("You cannot attach files to this ticket")
		}
		if ticket.Status == models.TicketStatusClosed {
			return apperrors.InvalidState("Ticket is closed")
		}
		if in.TicketMessageID != nil {
			ok, err := tx.Tickets.MessageBelongs(ctx, ticketID, *in.TicketMessageID)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.InvalidArgument("ticket_message_id does not belong to this ticket")
			}
		}
		if err := tx.Tickets.AddAttachment(ctx, attachment); err != nil {
			return err
		}
		return tx.Tickets.Update(ctx, ticket, map[string]any{"updated_at": s.now().UTC()})
	})
	if err != nil {
		return nil, toAppError(err, "Ticket not found")
	}
	return attachment, nil
}
