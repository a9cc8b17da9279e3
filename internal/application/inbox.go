package application

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/domain"
)

// Inbox builds the user's conversation list: one entry per conversation they
// participate in, annotated with the peer's display name, the vehicle title,
// the newest message, and the unread count addressed to this user. Entries
// are ordered most recently active first; conversations that have no messages
// yet are omitted.
func (s *Service) Inbox(ctx context.Context, userID string) ([]*domain.InboxEntry, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}

	conversations, err := s.repo.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.InboxEntry, 0, len(conversations))
	for _, conv := range conversations {
		last, err := s.repo.LatestMessage(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		if last == nil {
			continue
		}

		unread, err := s.repo.UnreadCountInConversation(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}

		entry := &domain.InboxEntry{
			Conversation: conv,
			PeerID:       conv.Peer(userID),
			LastMessage:  last,
			UnreadCount:  unread,
		}
		s.resolveDisplay(ctx, entry)
		entries = append(entries, entry)
	}

	// Most recently active first; conversation id keeps equal timestamps stable.
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].LastMessage.CreatedAt, entries[j].LastMessage.CreatedAt
		if ti.Equal(tj) {
			return entries[i].Conversation.ID < entries[j].Conversation.ID
		}
		return ti.After(tj)
	})

	return entries, nil
}

// resolveDisplay fills peer and vehicle display data. Lookup failures leave
// the fields blank rather than failing the whole inbox.
func (s *Service) resolveDisplay(ctx context.Context, entry *domain.InboxEntry) {
	if peer, err := s.users.GetUser(ctx, entry.PeerID); err == nil {
		entry.PeerName = peer.DisplayName
	} else {
		s.log.Warn("inbox: peer lookup failed", zap.String("user_id", entry.PeerID), zap.Error(err))
	}

	if vehicle, err := s.vehicles.GetVehicle(ctx, entry.Conversation.VehicleID); err == nil {
		entry.VehicleTitle = vehicle.Title
	} else {
		s.log.Warn("inbox: vehicle lookup failed",
			zap.String("vehicle_id", entry.Conversation.VehicleID),
			zap.Error(err),
		)
	}
}
