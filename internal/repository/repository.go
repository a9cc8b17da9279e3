package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gearboxe-market/messaging/internal/domain"
)

type Repository interface {
	// Conversations
	InsertConversation(ctx context.Context, tx *sql.Tx, conv *domain.Conversation, lookupKey string) (bool, error)
	GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error)
	GetConversationByLookupKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Conversation, error)
	TouchConversation(ctx context.Context, tx *sql.Tx, id string, ts time.Time) error
	ListConversationsByUser(ctx context.Context, userID string) ([]*domain.Conversation, error)

	// Messages
	InsertMessage(ctx context.Context, tx *sql.Tx, msg *domain.Message) (int64, error)
	GetMessage(ctx context.Context, tx *sql.Tx, id string) (*domain.Message, error)
	FetchMessagesByConversation(ctx context.Context, convID string) ([]*domain.Message, error)
	FetchMessagesByVehicle(ctx context.Context, vehicleID, userID string) ([]*domain.Message, error)
	LatestMessage(ctx context.Context, convID string) (*domain.Message, error)

	// Read state
	MarkMessageRead(ctx context.Context, tx *sql.Tx, msgID string) (bool, error)
	MarkConversationRead(ctx context.Context, tx *sql.Tx, convID, userID string) (int64, error)
	UnreadCountForUser(ctx context.Context, userID string) (int64, error)
	UnreadCountInConversation(ctx context.Context, convID, userID string) (int64, error)

	// Backfill
	FetchUnlinkedMessages(ctx context.Context, tx *sql.Tx, limit int) ([]*domain.Message, error)
	LinkMessagesToConversation(ctx context.Context, tx *sql.Tx, msgIDs []string, convID string) error

	// Idempotency
	TryInsertIdempotency(ctx context.Context, tx *sql.Tx, key, userID string, expiresAt time.Time) (bool, error)
	GetIdempotencyForUpdate(ctx context.Context, tx *sql.Tx, key, userID string) ([]byte, error)
	UpdateIdempotencyResponse(ctx context.Context, tx *sql.Tx, key, userID string, payload []byte) error

	// Outbox
	InsertOutbox(ctx context.Context, tx *sql.Tx, aggregateType, aggregateID, eventType string, payload []byte) error
}
