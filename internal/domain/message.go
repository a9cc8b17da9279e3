package domain

import (
	"strings"
	"time"
)

const MaxMessageSize = 5000

// Message Invariants:
// 1. Ordering: (CreatedAt, Seq) is a total order per conversation; Seq is
//    store-assigned and breaks timestamp collisions.
// 2. Read state: Read flips false→true exactly once and never reverts.
// 3. Immutability: every other field is fixed at send time.
type Message struct {
	ID             string
	ConversationID *string // nil for legacy vehicle-scoped rows awaiting backfill
	SenderID       string
	RecipientID    string
	VehicleID      string
	Content        string
	Read           bool
	Seq            int64
	CreatedAt      time.Time
}

func NewMessage(
	id string,
	conversationID string,
	senderID string,
	recipientID string,
	vehicleID string,
	content string,
	now time.Time,
) (*Message, error) {

	if id == "" || conversationID == "" || senderID == "" || recipientID == "" || vehicleID == "" {
		return nil, ErrInvalidInput
	}

	if senderID == recipientID {
		return nil, ErrSelfMessage
	}

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	if len(content) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	return &Message{
		ID:             id,
		ConversationID: &conversationID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		VehicleID:      vehicleID,
		Content:        content,
		CreatedAt:      now,
	}, nil
}
