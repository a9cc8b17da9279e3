package application

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/domain"
)

const backfillBatchSize = 500

// Backfill is the one-shot migration for messages that predate conversation
// records: it groups conversation-less rows by (vehicle, unordered pair),
// get-or-creates the conversation for each group, and stamps the ids. Safe to
// re-run; it converges to zero unlinked rows.
func (s *Service) Backfill(ctx context.Context) (int, error) {
	total := 0
	for {
		linked, err := s.backfillBatch(ctx)
		if err != nil {
			return total, err
		}
		if linked == 0 {
			return total, nil
		}
		total += linked
		s.log.Info("backfill batch linked", zap.Int("messages", linked), zap.Int("total", total))
	}
}

func (s *Service) backfillBatch(ctx context.Context) (int, error) {
	linked := 0
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		linked = 0

		messages, err := s.repo.FetchUnlinkedMessages(ctx, tx, backfillBatchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch unlinked messages: %w", err)
		}
		if len(messages) == 0 {
			return nil
		}

		groups := make(map[string][]*domain.Message)
		for _, msg := range messages {
			key := domain.LookupKey(msg.VehicleID, msg.SenderID, msg.RecipientID)
			groups[key] = append(groups[key], msg)
		}

		for _, group := range groups {
			first := group[0]

			// Conversation timestamps derive from the group: created at the
			// oldest message, last active at the newest. The batch is already
			// in ascending send order.
			newest := group[len(group)-1]

			conv, created, err := s.getOrCreateTx(
				ctx, tx,
				first.VehicleID,
				first.SenderID,
				first.RecipientID,
				first.CreatedAt,
			)
			if err != nil {
				return err
			}

			ids := make([]string, len(group))
			for i, msg := range group {
				ids[i] = msg.ID
			}
			if err := s.repo.LinkMessagesToConversation(ctx, tx, ids, conv.ID); err != nil {
				return fmt.Errorf("failed to link messages: %w", err)
			}
			if err := s.repo.TouchConversation(ctx, tx, conv.ID, newest.CreatedAt); err != nil {
				return fmt.Errorf("failed to touch conversation: %w", err)
			}

			if created {
				s.log.Info("backfill created conversation",
					zap.String("conversation_id", conv.ID),
					zap.String("vehicle_id", conv.VehicleID),
					zap.Int("messages", len(group)),
				)
			}
			linked += len(group)
		}
		return nil
	})
	return linked, err
}
