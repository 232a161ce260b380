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

// webhookLogRepository implements domain.WebhookLogRepository for PostgreSQL
type webhookLogRepository struct {
	db *sql.DB
}

// NewWebhookLogRepository creates a new PostgreSQL webhook log repository
func NewWebhookLogRepository(db *sql.DB) domain.WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

// Create appends one attempt row
func (r *webhookLogRepository) Create(ctx context.Context, log *domain.WebhookLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	payloadJSON, err := json.Marshal(log.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO webhook_logs (
			id, delivery_id, subscription_id, target_url, event_type,
			payload, attempt_number, status_code, status, error_details, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	var statusCode sql.NullInt32
	if log.StatusCode != nil {
		statusCode = sql.NullInt32{Int32: int32(*log.StatusCode), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.DeliveryID,
		log.SubscriptionID,
		nullString(log.TargetURL),
		nullString(log.EventType),
		payloadJSON,
		log.AttemptNumber,
		statusCode,
		log.Status,
		nullString(log.ErrorDetails),
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook log: %w", err)
	}

	return nil
}

// ListByDeliveryID returns all rows for a delivery, oldest first
func (r *webhookLogRepository) ListByDeliveryID(ctx context.Context, deliveryID string) ([]*domain.WebhookLog, error) {
	query := `
		SELECT id, delivery_id, subscription_id, target_url, event_type,
			payload, attempt_number, status_code, status, error_details, created_at
		FROM webhook_logs
		WHERE delivery_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook logs: %w", err)
	}
	defer rows.Close()

	return collectWebhookLogs(rows)
}

// ListBySubscriptionID returns the most recent rows for a subscription
func (r *webhookLogRepository) ListBySubscriptionID(ctx context.Context, subscriptionID string, limit int) ([]*domain.WebhookLog, error) {
	query := `
		SELECT id, delivery_id, subscription_id, target_url, event_type,
			payload, attempt_number, status_code, status, error_details, created_at
		FROM webhook_logs
		WHERE subscription_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook logs: %w", err)
	}
	defer rows.Close()

	return collectWebhookLogs(rows)
}

// CountDeliveries aggregates distinct delivery counts for a subscription.
// Counts are over DISTINCT delivery_id so duplicate attempt rows from queue
// redelivery do not inflate them.
func (r *webhookLogRepository) CountDeliveries(ctx context.Context, subscriptionID string) (*domain.SubscriptionDeliveryCounts, error) {
	query := `
		SELECT
			COUNT(DISTINCT delivery_id),
			COUNT(DISTINCT delivery_id) FILTER (WHERE status = 'SUCCESS'),
			COUNT(DISTINCT delivery_id) FILTER (WHERE status = 'FAILURE')
		FROM webhook_logs
		WHERE subscription_id = $1
	`

	var counts domain.SubscriptionDeliveryCounts
	err := r.db.QueryRowContext(ctx, query, subscriptionID).Scan(
		&counts.Total,
		&counts.Successful,
		&counts.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}

	return &counts, nil
}

// DeleteOlderThan removes rows created before the cutoff
func (r *webhookLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM webhook_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old webhook logs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return deleted, nil
}

func collectWebhookLogs(rows *sql.Rows) ([]*domain.WebhookLog, error) {
	var logs []*domain.WebhookLog
	for rows.Next() {
		log, err := scanWebhookLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook logs: %w", err)
	}

	return logs, nil
}

func scanWebhookLog(rows *sql.Rows) (*domain.WebhookLog, error) {
	var log domain.WebhookLog
	var targetURL sql.NullString
	var eventType sql.NullString
	var payloadJSON []byte
	var statusCode sql.NullInt32
	var errorDetails sql.NullString

	err := rows.Scan(
		&log.ID,
		&log.DeliveryID,
		&log.SubscriptionID,
		&targetURL,
		&eventType,
		&payloadJSON,
		&log.AttemptNumber,
		&statusCode,
		&log.Status,
		&errorDetails,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payloadJSON, &log.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if targetURL.Valid {
		log.TargetURL = targetURL.String
	}
	if eventType.Valid {
		log.EventType = eventType.String
	}
	if statusCode.Valid {
		code := int(statusCode.Int32)
		log.StatusCode = &code
	}
	if errorDetails.Valid {
		log.ErrorDetails = errorDetails.String
	}

	return &log, nil
}
