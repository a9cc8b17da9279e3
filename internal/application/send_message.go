package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/domain"
	"github.com/gearboxe-market/messaging/internal/notify"
	"github.com/gearboxe-market/messaging/internal/observability"
)

type SendMessageCommand struct {
	SenderID    string
	RecipientID string
	VehicleID   string
	Content     string
	ClientMsgID string
}

// SendMessage appends a message to the (vehicle, pair) conversation, creating
// the conversation on first contact. The insert, the last-activity touch, and
// the outbox event commit together; retries with the same ClientMsgID replay
// the stored response instead of appending twice.
func (s *Service) SendMessage(
	ctx context.Context,
	cmd SendMessageCommand,
) (*domain.Message, error) {

	if cmd.SenderID == "" || cmd.RecipientID == "" || cmd.VehicleID == "" {
		return nil, domain.ErrInvalidInput
	}
	if cmd.SenderID == cmd.RecipientID {
		return nil, domain.ErrSelfMessage
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return nil, domain.ErrEmptyContent
	}

	var result *domain.Message
	var conv *domain.Conversation
	var appended bool

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {

		now := time.Now().UTC()

		if cmd.ClientMsgID != "" {
			owned, err := s.repo.TryInsertIdempotency(ctx, tx, cmd.ClientMsgID, cmd.SenderID, now.Add(24*time.Hour))
			if err != nil {
				return fmt.Errorf("failed to check idempotency: %w", err)
			}
			if !owned {
				payload, err := s.repo.GetIdempotencyForUpdate(ctx, tx, cmd.ClientMsgID, cmd.SenderID)
				if err != nil {
					return fmt.Errorf("failed to fetch idempotency response: %w", err)
				}
				if payload != nil {
					var msg domain.Message
					if err := json.Unmarshal(payload, &msg); err != nil {
						return fmt.Errorf("failed to unmarshal cached message: %w", err)
					}
					result = &msg
					return nil
				}
			}
		}

		var created bool
		var err error
		conv, created, err = s.getOrCreateTx(ctx, tx, cmd.VehicleID, cmd.SenderID, cmd.RecipientID, now)
		if err != nil {
			return err
		}
		if created {
			s.log.Info("conversation created on first message",
				zap.String("conversation_id", conv.ID),
				zap.String("vehicle_id", conv.VehicleID),
			)
		}

		msg, err := domain.NewMessage(
			uuid.NewString(),
			conv.ID,
			cmd.SenderID,
			cmd.RecipientID,
			cmd.VehicleID,
			cmd.Content,
			now,
		)
		if err != nil {
			return err
		}

		if _, err := s.repo.InsertMessage(ctx, tx, msg); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}

		if err := s.repo.TouchConversation(ctx, tx, conv.ID, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}

		envelope, err := marshalEnvelope(EventMessageSent, msg.CreatedAt, MessageSentEvent{
			MessageID:      msg.ID,
			ConversationID: conv.ID,
			SenderID:       msg.SenderID,
			RecipientID:    msg.RecipientID,
			VehicleID:      msg.VehicleID,
			Seq:            msg.Seq,
			SentAt:         msg.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event envelope: %w", err)
		}
		if err := s.repo.InsertOutbox(ctx, tx, "conversation", conv.ID, EventMessageSent, envelope); err != nil {
			return fmt.Errorf("failed to save outbox event: %w", err)
		}

		if cmd.ClientMsgID != "" {
			payload, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("failed to marshal message for idempotency: %w", err)
			}
			if err := s.repo.UpdateIdempotencyResponse(ctx, tx, cmd.ClientMsgID, cmd.SenderID, payload); err != nil {
				return fmt.Errorf("failed to update idempotency response: %w", err)
			}
		}

		result = msg
		appended = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A replay served from the idempotency record changed nothing; the
	// original send already counted, invalidated, and notified.
	if !appended {
		return result, nil
	}

	observability.MessagesSentTotal.WithLabelValues(serviceLabel).Inc()

	if s.cache != nil {
		if err := s.cache.InvalidateUnreadCount(ctx, result.RecipientID); err != nil {
			s.log.Warn("unread cache invalidation failed",
				zap.String("user_id", result.RecipientID),
				zap.Error(err),
			)
		}
	}

	if s.notifier != nil && conv != nil {
		s.notifier.ConversationChanged(ctx, notify.ChangeSignal{
			ConversationID: conv.ID,
			Kind:           "message",
			OccurredAt:     result.CreatedAt,
		}, conv.Participant1ID, conv.Participant2ID)
	}

	return result, nil
}
