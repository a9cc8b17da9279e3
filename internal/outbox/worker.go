package outbox

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/kafka"
	"github.com/gearboxe-market/messaging/internal/observability"
)

// Worker drains outbox_events into Kafka. Rows are claimed with
// FOR UPDATE SKIP LOCKED so multiple instances can poll the same table;
// rows that keep failing move to outbox_dlq after MaxRetries.
type Worker struct {
	DB         *sql.DB
	Producer   *kafka.Producer
	BatchSize  int
	PollDelay  time.Duration
	MaxRetries int
}

type pendingEvent struct {
	id            int64
	aggregateType string
	aggregateID   string
	eventType     string
	payload       []byte
	createdAt     time.Time
	retryCount    int
}

func (w *Worker) Start(ctx context.Context) {
	log := observability.GetLogger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := w.processBatch(ctx); err != nil {
				log.Error("outbox error", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.DB.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return err
	}

	events, err := w.claimEvents(ctx, tx)
	if err != nil {
		tx.Rollback()
		return err
	}

	if len(events) == 0 {
		tx.Rollback()
		time.Sleep(w.PollDelay)
		return nil
	}

	var batchErr error
	for _, e := range events {
		if err := w.Producer.Publish(ctx, e.aggregateID, e.payload); err != nil {
			observability.OutboxPublishFailuresTotal.WithLabelValues("messaging", "messaging-events").Inc()
			if dbErr := w.recordFailure(ctx, tx, e, err); dbErr != nil {
				tx.Rollback()
				return dbErr
			}
			batchErr = err
			break
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE outbox_events
			SET processed_at = now()
			WHERE id = $1
		`, e.id); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return batchErr
}

func (w *Worker) claimEvents(ctx context.Context, tx *sql.Tx) ([]pendingEvent, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, retry_count
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, w.BatchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []pendingEvent
	for rows.Next() {
		var e pendingEvent
		if err := rows.Scan(&e.id, &e.aggregateType, &e.aggregateID, &e.eventType, &e.payload, &e.createdAt, &e.retryCount); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// recordFailure bumps the retry counter, or moves the row to the DLQ once the
// budget is spent.
func (w *Worker) recordFailure(ctx context.Context, tx *sql.Tx, e pendingEvent, pubErr error) error {
	maxRetries := w.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	if e.retryCount < maxRetries {
		_, err := tx.ExecContext(ctx, `
			UPDATE outbox_events
			SET retry_count = retry_count + 1, error = $2
			WHERE id = $1
		`, e.id, pubErr.Error())
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_dlq (id, aggregate_type, aggregate_id, event_type, payload, created_at, failed_at, error, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7, $8)
	`, e.id, e.aggregateType, e.aggregateID, e.eventType, e.payload, e.createdAt, pubErr.Error(), e.retryCount+1); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		DELETE FROM outbox_events WHERE id = $1
	`, e.id)
	return err
}
