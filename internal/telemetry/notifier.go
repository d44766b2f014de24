package telemetry

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"reclaim/internal/models"
)

const previewRunes = 140

// NotificationEnvelope asks the mailer to tell a recipient about a new message.
type NotificationEnvelope struct {
	SchemaVersion  int    `json:"schema_version"`
	EventType      string `json:"event_type"`
	OccurredAt     string `json:"occurred_at"`
	Service        string `json:"service"`
	MessageID      int64  `json:"message_id"`
	RecipientID    int    `json:"recipient_id"`
	RecipientEmail string `json:"recipient_email,omitempty"`
	SenderID       int    `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	ItemID         int    `json:"item_id"`
	ItemTitle      string `json:"item_title"`
	Preview        string `json:"preview"`
	HasImage       bool   `json:"has_image"`
}

// Notifier publishes message notifications for the mail worker.
type Notifier struct {
	publisher  Publisher
	routingKey string
	service    string
}

func NewNotifier(publisher Publisher, routingKey, service string) *Notifier {
	return &Notifier{publisher: publisher, routingKey: routingKey, service: service}
}

// MessageCreated is fire-and-forget: failures are logged and dropped.
func (n *Notifier) MessageCreated(ctx context.Context, msg models.Message, sender models.User, recipient models.User, item models.Item) {
	if n == nil || n.publisher == nil {
		return
	}

	envelope := NotificationEnvelope{
		SchemaVersion:  1,
		EventType:      "message_created",
		OccurredAt:     time.Now().UTC().Format(time.RFC3339Nano),
		Service:        n.service,
		MessageID:      msg.ID,
		RecipientID:    recipient.ID,
		RecipientEmail: recipient.Email,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		ItemID:         item.ID,
		ItemTitle:      item.Title,
		Preview:        preview(msg.Content),
		HasImage:       msg.ImagePath != nil,
	}

	if err := n.publisher.Publish(ctx, n.routingKey, envelope); err != nil {
		log.Printf("notification publish failed message_id=%d: %v", msg.ID, err)
	}
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewRunes]) + "…"
}
