package application

import (
	"context"

	"github.com/gearboxe-market/messaging/internal/domain"
)

// ListMessages returns a conversation's messages in send order: ascending
// created_at with the store-assigned seq breaking timestamp collisions.
// Only participants may read a thread; everyone else gets the same
// ErrConversationNotFound an unknown id produces.
func (s *Service) ListMessages(
	ctx context.Context,
	conversationID string,
	userID string,
) ([]*domain.Message, error) {
	if conversationID == "" || userID == "" {
		return nil, domain.ErrInvalidInput
	}

	conv, err := s.repo.GetConversation(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrConversationNotFound
	}

	return s.repo.FetchMessagesByConversation(ctx, conversationID)
}

// ListMessagesByVehicle is the legacy read path for rows that predate
// conversation records, scoped to the threads the user took part in. New
// sends always carry a conversation id; this path exists until the backfill
// has linked every historical message.
func (s *Service) ListMessagesByVehicle(
	ctx context.Context,
	vehicleID string,
	userID string,
) ([]*domain.Message, error) {
	if vehicleID == "" || userID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.FetchMessagesByVehicle(ctx, vehicleID, userID)
}
