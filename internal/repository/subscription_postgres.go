package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hookrelay/hookrelay/internal/domain"
)

// subscriptionRepository implements domain.SubscriptionRepository for PostgreSQL
type subscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository
func NewSubscriptionRepository(db *sql.DB) domain.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Create inserts a new subscription, assigning id and timestamps
func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
		INSERT INTO subscriptions (id, target_url, secret_key, event_types, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.TargetURL,
		nullString(sub.SecretKey),
		nullString(joinEventTypes(sub.EventTypes)),
		sub.IsActive,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// GetByID retrieves a subscription by id
func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	query := `
		SELECT id, target_url, secret_key, event_types, is_active, created_at, updated_at
		FROM subscriptions
		WHERE id = $1
	`

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// List retrieves subscriptions with pagination, newest first
func (r *subscriptionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Subscription, error) {
	query := `
		SELECT id, target_url, secret_key, event_types, is_active, created_at, updated_at
		FROM subscriptions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}

// Update persists the mutable fields of an existing subscription
func (r *subscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE subscriptions
		SET target_url = $2, secret_key = $3, event_types = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.TargetURL,
		nullString(sub.SecretKey),
		nullString(joinEventTypes(sub.EventTypes)),
		sub.IsActive,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrSubscriptionNotFound
	}

	return nil
}

// Delete removes a subscription
func (r *subscriptionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrSubscriptionNotFound
	}

	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var sub domain.Subscription
	var secretKey sql.NullString
	var eventTypes sql.NullString

	err := row.Scan(
		&sub.ID,
		&sub.TargetURL,
		&secretKey,
		&eventTypes,
		&sub.IsActive,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if secretKey.Valid {
		sub.SecretKey = secretKey.String
	}
	if eventTypes.Valid {
		sub.EventTypes = splitEventTypes(eventTypes.String)
	}

	return &sub, nil
}

// joinEventTypes flattens the event type list to the comma-separated storage
// form; empty list stores as NULL (accept all).
func joinEventTypes(eventTypes []string) string {
	return strings.Join(eventTypes, ",")
}

func splitEventTypes(s string) []string {
	if s == "" {
		return nil
	}
	var types []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			types = append(types, trimmed)
		}
	}
	return types
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
