package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hookrelay/hookrelay/internal/domain"
)

// deliveryQueueRepository implements domain.DeliveryQueue on a Postgres
// scheduler table. Rows become ready when scheduled_at passes; claiming
// takes a lease via locked_until so a crashed worker's tasks are picked up
// again once the lease expires.
type deliveryQueueRepository struct {
	db *sql.DB
}

// NewDeliveryQueueRepository creates a new PostgreSQL delivery queue
func NewDeliveryQueueRepository(db *sql.DB) domain.DeliveryQueue {
	return &deliveryQueueRepository{db: db}
}

// Enqueue submits a task that becomes ready after the given delay
func (r *deliveryQueueRepository) Enqueue(ctx context.Context, task *domain.DeliveryTask, delay time.Duration) error {
	payloadJSON, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO delivery_queue (
			id, delivery_id, subscription_id, payload, attempt_number, event_type, scheduled_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		uuid.New().String(),
		task.DeliveryID,
		task.SubscriptionID,
		payloadJSON,
		task.AttemptNumber,
		nullString(task.EventType),
		now.Add(delay),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue delivery task: %w", err)
	}

	return nil
}

// Claim leases up to limit ready tasks. SKIP LOCKED keeps concurrent
// workers from claiming the same rows.
func (r *deliveryQueueRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*domain.QueuedTask, error) {
	query := `
		UPDATE delivery_queue
		SET locked_until = NOW() + $2 * INTERVAL '1 second'
		WHERE id IN (
			SELECT id FROM delivery_queue
			WHERE scheduled_at <= NOW()
				AND (locked_until IS NULL OR locked_until <= NOW())
			ORDER BY scheduled_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, delivery_id, subscription_id, payload, attempt_number, event_type
	`

	rows, err := r.db.QueryContext(ctx, query, limit, int(lease.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to claim delivery tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.QueuedTask
	for rows.Next() {
		var queued domain.QueuedTask
		var payloadJSON []byte
		var eventType sql.NullString

		err := rows.Scan(
			&queued.ID,
			&queued.Task.DeliveryID,
			&queued.Task.SubscriptionID,
			&payloadJSON,
			&queued.Task.AttemptNumber,
			&eventType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery task: %w", err)
		}

		if err := json.Unmarshal(payloadJSON, &queued.Task.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if eventType.Valid {
			queued.Task.EventType = eventType.String
		}

		tasks = append(tasks, &queued)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery tasks: %w", err)
	}

	return tasks, nil
}

// Ack removes a claimed entry once its attempt row is durable
func (r *deliveryQueueRepository) Ack(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM delivery_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to ack delivery task: %w", err)
	}
	return nil
}
