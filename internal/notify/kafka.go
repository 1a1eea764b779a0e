package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventTicketEscalated is the event name written for new tickets
const EventTicketEscalated = "ticket.escalated"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes ticket events for downstream staff tooling
type KafkaNotifier struct {
	writer messageWriter
}

// NewKafkaNotifier creates a producer for topic
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

type ticketEvent struct {
	Event string `json:"event"`
	TicketSummary
	OccurredAt time.Time `json:"occurred_at"`
}

// NotifyStaff implements Notifier
func (k *KafkaNotifier) NotifyStaff(ctx context.Context, t TicketSummary) error {
	body, err := json.Marshal(ticketEvent{Event: EventTicketEscalated, TicketSummary: t, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("kafka: marshal ticket event: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(t.TicketID), 10)),
		Value: body,
	})
	if err != nil {
		return fmt.Errorf("kafka: write ticket event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
