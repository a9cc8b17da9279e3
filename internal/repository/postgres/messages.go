package postgres

import (
	"context"
	"database/sql"

	"github.com/gearboxe-market/messaging/internal/domain"
	"github.com/lib/pq"
)

const messageColumns = `
	id, conversation_id, sender_id, recipient_id,
	vehicle_id, content, read, seq, created_at
`

func (r *Repository) InsertMessage(
	ctx context.Context,
	tx *sql.Tx,
	msg *domain.Message,
) (int64, error) {
	q := r.getter(tx)

	var seq int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO messages (
			id, conversation_id, sender_id, recipient_id,
			vehicle_id, content, read, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING seq
	`,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.RecipientID,
		msg.VehicleID,
		msg.Content,
		msg.Read,
		msg.CreatedAt,
	).Scan(&seq)
	if err != nil {
		return 0, err
	}

	msg.Seq = seq
	return seq, nil
}

func (r *Repository) GetMessage(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Message, error) {
	q := r.getter(tx)
	row := q.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, id)

	msg, err := scanMessage(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (r *Repository) FetchMessagesByConversation(
	ctx context.Context,
	convID string,
) ([]*domain.Message, error) {
	return r.fetchMessages(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC
	`, convID)
}

// FetchMessagesByVehicle returns the user's side of a vehicle's legacy
// threads; rows between other parties stay invisible.
func (r *Repository) FetchMessagesByVehicle(
	ctx context.Context,
	vehicleID string,
	userID string,
) ([]*domain.Message, error) {
	return r.fetchMessages(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE vehicle_id = $1 AND (sender_id = $2 OR recipient_id = $2)
		ORDER BY created_at ASC, seq ASC
	`, vehicleID, userID)
}

func (r *Repository) LatestMessage(
	ctx context.Context,
	convID string,
) (*domain.Message, error) {
	row := r.db().QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, convID)

	msg, err := scanMessage(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

func (r *Repository) MarkMessageRead(
	ctx context.Context,
	tx *sql.Tx,
	msgID string,
) (bool, error) {
	q := r.getter(tx)
	result, err := q.ExecContext(ctx, `
		UPDATE messages
		SET read = TRUE
		WHERE id = $1 AND read = FALSE
	`, msgID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkConversationRead flips every unread message addressed to the user in a
// single statement so readers never observe a partially-read batch.
func (r *Repository) MarkConversationRead(
	ctx context.Context,
	tx *sql.Tx,
	convID, userID string,
) (int64, error) {
	q := r.getter(tx)
	result, err := q.ExecContext(ctx, `
		UPDATE messages
		SET read = TRUE
		WHERE conversation_id = $1
		  AND recipient_id = $2
		  AND read = FALSE
	`, convID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UnreadCountForUser is backed by the partial index on (recipient_id) WHERE NOT read.
func (r *Repository) UnreadCountForUser(
	ctx context.Context,
	userID string,
) (int64, error) {
	var n int64
	err := r.db().QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE recipient_id = $1 AND read = FALSE
	`, userID).Scan(&n)
	return n, err
}

func (r *Repository) UnreadCountInConversation(
	ctx context.Context,
	convID, userID string,
) (int64, error) {
	var n int64
	err := r.db().QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
		  AND recipient_id = $2
		  AND read = FALSE
	`, convID, userID).Scan(&n)
	return n, err
}

func (r *Repository) FetchUnlinkedMessages(
	ctx context.Context,
	tx *sql.Tx,
	limit int,
) ([]*domain.Message, error) {
	q := r.getter(tx)
	rows, err := q.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id IS NULL
		ORDER BY created_at ASC, seq ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *Repository) LinkMessagesToConversation(
	ctx context.Context,
	tx *sql.Tx,
	msgIDs []string,
	convID string,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		UPDATE messages
		SET conversation_id = $2
		WHERE id = ANY($1)
	`, pq.Array(msgIDs), convID)
	return err
}

func (r *Repository) fetchMessages(
	ctx context.Context,
	query string,
	args ...interface{},
) ([]*domain.Message, error) {
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanMessage(scan func(...interface{}) error) (*domain.Message, error) {
	var msg domain.Message
	var convID sql.NullString
	if err := scan(
		&msg.ID,
		&convID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.VehicleID,
		&msg.Content,
		&msg.Read,
		&msg.Seq,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	if convID.Valid {
		msg.ConversationID = &convID.String
	}
	return &msg, nil
}
