package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// SlackNotifier posts to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
}

// NewSlackNotifier creates a SlackNotifier
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL}
}

// NotifyStaff implements Notifier
func (s *SlackNotifier) NotifyStaff(ctx context.Context, t TicketSummary) error {
	requester := t.RequesterEmail
	if requester == "" {
		requester = t.RequesterID
	}
	if requester == "" {
		requester = "guest"
	}

	msg := &slackapi.WebhookMessage{
		Text: fmt.Sprintf("New support ticket %s: %s", t.TicketNumber, t.Subject),
		Attachments: []slackapi.Attachment{{
			Color: priorityColor(t.Priority),
			Fields: []slackapi.AttachmentField{
				{Title: "Category", Value: t.Category, Short: true},
				{Title: "Priority", Value: t.Priority, Short: true},
				{Title: "Requester", Value: requester, Short: true},
			},
		}},
	}
	if err := slackapi.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}

func priorityColor(priority string) string {
	switch priority {
	case "urgent":
		return "danger"
	case "high":
		return "warning"
	}
	return "good"
}
