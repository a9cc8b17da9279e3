package application

import (
	"encoding/json"
	"time"

	"github.com/gearboxe-market/messaging/internal/domain"
)

const (
	EventMessageSent         = "MESSAGE_SENT"
	EventConversationCreated = "CONVERSATION_CREATED"
	EventConversationRead    = "CONVERSATION_READ"
)

// EventEnvelope wraps every outbox payload so consumers can dispatch on type
// before decoding the body.
type EventEnvelope struct {
	EventType     string          `json:"event_type"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

type MessageSentEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	VehicleID      string    `json:"vehicle_id"`
	Seq            int64     `json:"seq"`
	SentAt         time.Time `json:"sent_at"`
}

type ConversationCreatedEvent struct {
	ConversationID string    `json:"conversation_id"`
	VehicleID      string    `json:"vehicle_id"`
	Participant1ID string    `json:"participant1_id"`
	Participant2ID string    `json:"participant2_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationReadEvent struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	MessagesRead   int64     `json:"messages_read"`
	ReadAt         time.Time `json:"read_at"`
}

func marshalEnvelope(eventType string, occurredAt time.Time, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(EventEnvelope{
		EventType:     eventType,
		SchemaVersion: 1,
		OccurredAt:    occurredAt,
		Payload:       payload,
	})
}

func conversationCreatedEnvelope(conv *domain.Conversation) ([]byte, error) {
	return marshalEnvelope(EventConversationCreated, conv.CreatedAt, ConversationCreatedEvent{
		ConversationID: conv.ID,
		VehicleID:      conv.VehicleID,
		Participant1ID: conv.Participant1ID,
		Participant2ID: conv.Participant2ID,
		CreatedAt:      conv.CreatedAt,
	})
}
