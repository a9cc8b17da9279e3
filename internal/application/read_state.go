package application

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/domain"
	"github.com/gearboxe-market/messaging/internal/notify"
	"github.com/gearboxe-market/messaging/internal/observability"
)

// MarkMessageRead flips one message to read. Only the recipient's call
// changes state: an already-read message and anyone else's attempt are both
// no-ops, and an unknown id reports ErrMessageNotFound so a stale client can
// treat it as such.
func (s *Service) MarkMessageRead(ctx context.Context, messageID, userID string) error {
	if messageID == "" || userID == "" {
		return domain.ErrInvalidInput
	}

	var flipped bool
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		msg, err := s.repo.GetMessage(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if msg.Read || msg.RecipientID != userID {
			return nil
		}
		if _, err := s.repo.MarkMessageRead(ctx, tx, messageID); err != nil {
			return fmt.Errorf("failed to mark message read: %w", err)
		}
		flipped = true
		return nil
	})
	if err != nil {
		return err
	}

	if flipped {
		s.invalidateUnread(ctx, userID)
	}
	return nil
}

// MarkConversationRead marks every unread message addressed to the user in
// the conversation. One UPDATE covers the whole batch, so no reader observes
// a partially-read thread.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return domain.ErrInvalidInput
	}

	var conv *domain.Conversation
	var affected int64

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		conv, err = s.repo.GetConversation(ctx, tx, conversationID)
		if err != nil {
			return err
		}

		affected, err = s.repo.MarkConversationRead(ctx, tx, conversationID, userID)
		if err != nil {
			return fmt.Errorf("failed to mark conversation read: %w", err)
		}
		if affected == 0 {
			return nil
		}

		now := time.Now().UTC()
		envelope, err := marshalEnvelope(EventConversationRead, now, ConversationReadEvent{
			ConversationID: conversationID,
			UserID:         userID,
			MessagesRead:   affected,
			ReadAt:         now,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event envelope: %w", err)
		}
		return s.repo.InsertOutbox(ctx, tx, "conversation", conversationID, EventConversationRead, envelope)
	})
	if err != nil {
		return err
	}

	if affected > 0 {
		s.invalidateUnread(ctx, userID)
		if s.notifier != nil {
			s.notifier.ConversationChanged(ctx, notify.ChangeSignal{
				ConversationID: conversationID,
				Kind:           "read",
				OccurredAt:     time.Now().UTC(),
			}, conv.Participant1ID, conv.Participant2ID)
		}
	}
	return nil
}

// UnreadCount returns the user's badge count: messages addressed to them that
// are still unread, across all conversations. Served from Redis when fresh.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, domain.ErrInvalidInput
	}

	if s.cache != nil {
		if n, ok := s.cache.GetUnreadCount(ctx, userID); ok {
			observability.UnreadCacheHitsTotal.WithLabelValues(serviceLabel, "cache").Inc()
			return n, nil
		}
	}

	n, err := s.repo.UnreadCountForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	observability.UnreadCacheHitsTotal.WithLabelValues(serviceLabel, "db").Inc()

	if s.cache != nil {
		if err := s.cache.SetUnreadCount(ctx, userID, n); err != nil {
			s.log.Warn("unread cache store failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return n, nil
}

func (s *Service) invalidateUnread(ctx context.Context, userID string) {
	if s.cache == nil || userID == "" {
		return
	}
	if err := s.cache.InvalidateUnreadCount(ctx, userID); err != nil {
		s.log.Warn("unread cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
