package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gearboxe-market/messaging/internal/domain"
	"github.com/gearboxe-market/messaging/internal/observability"
)

// ConversationByParticipants resolves the unique conversation for a vehicle
// and an unordered participant pair. Argument order does not matter; absence
// is reported as (nil, nil), not an error.
func (s *Service) ConversationByParticipants(
	ctx context.Context,
	vehicleID, userA, userB string,
) (*domain.Conversation, error) {

	if vehicleID == "" || userA == "" || userB == "" {
		return nil, domain.ErrInvalidInput
	}

	conv, err := s.repo.GetConversationByLookupKey(ctx, nil, domain.LookupKey(vehicleID, userA, userB))
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// GetOrCreateConversation returns the existing conversation for the key or
// creates one. Duplicate creation under concurrent first-sends resolves to
// the winning record; the loser's attempt is discarded, never surfaced.
func (s *Service) GetOrCreateConversation(
	ctx context.Context,
	vehicleID, senderID, recipientID string,
) (*domain.Conversation, error) {

	if vehicleID == "" || senderID == "" || recipientID == "" {
		return nil, domain.ErrInvalidInput
	}
	if senderID == recipientID {
		return nil, domain.ErrSelfMessage
	}

	// Best-effort lookup before opening a transaction.
	if existing, err := s.ConversationByParticipants(ctx, vehicleID, senderID, recipientID); err == nil && existing != nil {
		return existing, nil
	}

	var result *domain.Conversation
	txErr := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		conv, _, err := s.getOrCreateTx(ctx, tx, vehicleID, senderID, recipientID, time.Now().UTC())
		if err != nil {
			return err
		}
		result = conv
		return nil
	})
	return result, txErr
}

// getOrCreateTx carries the at-most-one-per-key guarantee: double-check under
// the transaction, insert, and on a unique violation refetch the row whoever
// won the race created. The second return value reports whether THIS call
// created the conversation.
func (s *Service) getOrCreateTx(
	ctx context.Context,
	tx *sql.Tx,
	vehicleID, senderID, recipientID string,
	now time.Time,
) (*domain.Conversation, bool, error) {

	key := domain.LookupKey(vehicleID, senderID, recipientID)

	if existing, err := s.repo.GetConversationByLookupKey(ctx, tx, key); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, false, err
	}

	conv := &domain.Conversation{
		ID:             uuid.NewString(),
		VehicleID:      vehicleID,
		Participant1ID: senderID,
		Participant2ID: recipientID,
		CreatedAt:      now,
		LastMessageAt:  now,
	}

	inserted, err := s.repo.InsertConversation(ctx, tx, conv, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}
	if !inserted {
		// Someone else won the race; use their record and discard ours.
		existing, errRefetch := s.repo.GetConversationByLookupKey(ctx, tx, key)
		if errRefetch != nil {
			return nil, false, fmt.Errorf("refetch after conflicting create: %w", errRefetch)
		}
		return existing, false, nil
	}

	envelope, err := conversationCreatedEnvelope(conv)
	if err != nil {
		return nil, false, err
	}
	if err := s.repo.InsertOutbox(ctx, tx, "conversation", conv.ID, EventConversationCreated, envelope); err != nil {
		return nil, false, fmt.Errorf("failed to save outbox event: %w", err)
	}

	observability.ConversationsCreatedTotal.WithLabelValues(serviceLabel).Inc()
	return conv, true, nil
}
