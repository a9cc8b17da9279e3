package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/gearboxe-market/messaging/internal/observability"
)

const serviceLabel = "messaging"

type Repository struct {
	DB *sql.DB
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// timed wraps a queryable so every statement lands in the
// db_query_duration_seconds histogram, inside or outside a transaction.
type timed struct {
	q queryable
}

func observeQuery(op string, start time.Time) {
	observability.DBQueryDuration.
		WithLabelValues(serviceLabel, op).
		Observe(time.Since(start).Seconds())
}

func (t timed) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer observeQuery("query_row", time.Now())
	return t.q.QueryRowContext(ctx, query, args...)
}

func (t timed) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer observeQuery("query", time.Now())
	return t.q.QueryContext(ctx, query, args...)
}

func (t timed) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer observeQuery("exec", time.Now())
	return t.q.ExecContext(ctx, query, args...)
}

func (r *Repository) getter(tx *sql.Tx) queryable {
	if tx != nil {
		return timed{tx}
	}
	return timed{r.DB}
}

func (r *Repository) db() queryable {
	return timed{r.DB}
}

func (r *Repository) TryInsertIdempotency(
	ctx context.Context,
	tx *sql.Tx,
	key, userID string,
	expiresAt time.Time,
) (bool, error) {
	// Returns true (owned) only when THIS call inserted the row.
	// ON CONFLICT DO NOTHING means a duplicate returns 0 RowsAffected.
	q := r.getter(tx)
	result, err := q.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key, user_id) DO NOTHING
	`, key, userID, expiresAt)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Repository) GetIdempotencyForUpdate(
	ctx context.Context,
	tx *sql.Tx,
	key, userID string,
) ([]byte, error) {
	q := r.getter(tx)
	var payload []byte
	err := q.QueryRowContext(ctx, `
		SELECT payload
		FROM idempotency_keys
		WHERE key = $1 AND user_id = $2
		FOR UPDATE
	`, key, userID).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return payload, nil
}

func (r *Repository) UpdateIdempotencyResponse(
	ctx context.Context,
	tx *sql.Tx,
	key, userID string,
	payload []byte,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		UPDATE idempotency_keys
		SET payload = $3
		WHERE key = $1 AND user_id = $2
	`, key, userID, payload)
	return err
}

func (r *Repository) InsertOutbox(
	ctx context.Context,
	tx *sql.Tx,
	aggregateType, aggregateID, eventType string,
	payload []byte,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, aggregateType, aggregateID, eventType, payload)
	return err
}
