package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/gearboxe-market/messaging/internal/domain"
)

// InsertConversation reports true only when THIS call created the row.
// ON CONFLICT DO NOTHING keeps a lost creation race from aborting the
// surrounding transaction; the caller refetches by lookup key instead.
func (r *Repository) InsertConversation(
	ctx context.Context,
	tx *sql.Tx,
	conv *domain.Conversation,
	lookupKey string,
) (bool, error) {
	q := r.getter(tx)
	result, err := q.ExecContext(ctx, `
		INSERT INTO conversations (
			id, vehicle_id, participant1_id, participant2_id,
			lookup_key, created_at, last_message_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (lookup_key) DO NOTHING
	`,
		conv.ID,
		conv.VehicleID,
		conv.Participant1ID,
		conv.Participant2ID,
		lookupKey,
		conv.CreatedAt,
		conv.LastMessageAt,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Repository) GetConversation(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Conversation, error) {
	q := r.getter(tx)
	return scanConversation(q.QueryRowContext(ctx, `
		SELECT id, vehicle_id, participant1_id, participant2_id, created_at, last_message_at
		FROM conversations
		WHERE id = $1
	`, id))
}

func (r *Repository) GetConversationByLookupKey(
	ctx context.Context,
	tx *sql.Tx,
	key string,
) (*domain.Conversation, error) {
	q := r.getter(tx)
	return scanConversation(q.QueryRowContext(ctx, `
		SELECT id, vehicle_id, participant1_id, participant2_id, created_at, last_message_at
		FROM conversations
		WHERE lookup_key = $1
	`, key))
}

func (r *Repository) TouchConversation(
	ctx context.Context,
	tx *sql.Tx,
	id string,
	ts time.Time,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_at = GREATEST(last_message_at, $2)
		WHERE id = $1
	`, id, ts)
	return err
}

func (r *Repository) ListConversationsByUser(
	ctx context.Context,
	userID string,
) ([]*domain.Conversation, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, vehicle_id, participant1_id, participant2_id, created_at, last_message_at
		FROM conversations
		WHERE participant1_id = $1 OR participant2_id = $1
		ORDER BY last_message_at DESC, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(
			&c.ID,
			&c.VehicleID,
			&c.Participant1ID,
			&c.Participant2ID,
			&c.CreatedAt,
			&c.LastMessageAt,
		); err != nil {
			return nil, err
		}
		conversations = append(conversations, &c)
	}

	return conversations, rows.Err()
}

func scanConversation(row *sql.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID,
		&c.VehicleID,
		&c.Participant1ID,
		&c.Participant2ID,
		&c.CreatedAt,
		&c.LastMessageAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return &c, nil
}
