// Package notify tells staff about new support tickets.
package notify

import (
	"context"
	"errors"

	"campus-support/backend/pkg/logger"
)

// TicketSummary is what staff channels receive about a new ticket
type TicketSummary struct {
	TicketID       uint   `json:"ticket_id"`
	TicketNumber   string `json:"ticket_number"`
	Subject        string `json:"subject"`
	Category       string `json:"category"`
	Priority       string `json:"priority"`
	RequesterID    string `json:"requester_id,omitempty"`
	RequesterEmail string `json:"requester_email,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
}

// Notifier delivers a ticket summary to staff
type Notifier interface {
	NotifyStaff(ctx context.Context, ticket TicketSummary) error
}

// LogNotifier only logs; used when no channel is configured
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// NotifyStaff implements Notifier
func (n *LogNotifier) NotifyStaff(_ context.Context, t TicketSummary) error {
	n.log.Info("New support ticket",
		"ticket_id", t.TicketID,
		"ticket_number", t.TicketNumber,
		"category", t.Category,
		"priority", t.Priority,
	)
	return nil
}

// Multi fans a notification out to every channel and joins their errors
type Multi []Notifier

// NotifyStaff implements Notifier
func (m Multi) NotifyStaff(ctx context.Context, t TicketSummary) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyStaff(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
