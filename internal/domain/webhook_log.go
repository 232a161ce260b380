package domain

import (
	"context"
	"time"
)

// Webhook attempt statuses. SUCCESS and FAILURE are terminal: once one of
// them is written for a delivery, no further tasks are produced for it.
const (
	WebhookStatusSuccess       = "SUCCESS"
	WebhookStatusFailedAttempt = "FAILED_ATTEMPT"
	WebhookStatusFailure       = "FAILURE"
)

// WebhookLog is one append-only attempt record. Rows are never mutated;
// the full history of a delivery is the ordered set of its rows.
type WebhookLog struct {
	ID             string                 `json:"id"`
	DeliveryID     string                 `json:"delivery_id"`
	SubscriptionID string                 `json:"subscription_id"`
	TargetURL      string                 `json:"target_url"`
	EventType      string                 `json:"event_type,omitempty"`
	Payload        map[string]interface{} `json:"payload"`
	AttemptNumber  int                    `json:"attempt_number"`
	StatusCode     *int                   `json:"status_code,omitempty"`
	Status         string                 `json:"status"`
	ErrorDetails   string                 `json:"error_details,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// SubscriptionDeliveryCounts aggregates distinct delivery outcomes for one
// subscription. A delivery counts as successful or failed when any of its
// rows carries the corresponding terminal status.
type SubscriptionDeliveryCounts struct {
	Total      int `json:"total_deliveries"`
	Successful int `json:"successful_deliveries"`
	Failed     int `json:"failed_deliveries"`
}

// WebhookLogRepository defines the interface for attempt log data access
type WebhookLogRepository interface {
	// Create appends one attempt row. Rows are never updated afterwards.
	Create(ctx context.Context, log *WebhookLog) error

	// ListByDeliveryID returns all rows for a delivery, created_at ascending.
	ListByDeliveryID(ctx context.Context, deliveryID string) ([]*WebhookLog, error)

	// ListBySubscriptionID returns the most recent rows for a subscription,
	// created_at descending, capped at limit.
	ListBySubscriptionID(ctx context.Context, subscriptionID string, limit int) ([]*WebhookLog, error)

	// CountDeliveries aggregates DISTINCT delivery_id counts for a subscription.
	CountDeliveries(ctx context.Context, subscriptionID string) (*SubscriptionDeliveryCounts, error)

	// DeleteOlderThan removes rows created before the cutoff and returns how
	// many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeliveryStatus is the per-delivery status view
type DeliveryStatus struct {
	DeliveryID     string        `json:"delivery_id"`
	SubscriptionID string        `json:"subscription_id"`
	TotalAttempts  int           `json:"total_attempts"`
	LatestStatus   string        `json:"latest_status"`
	LatestAttempt  time.Time     `json:"latest_attempt"`
	Logs           []*WebhookLog `json:"logs"`
}

// SubscriptionDeliveryStats is the per-subscription reporting view
type SubscriptionDeliveryStats struct {
	SubscriptionID       string        `json:"subscription_id"`
	TotalDeliveries      int           `json:"total_deliveries"`
	SuccessfulDeliveries int           `json:"successful_deliveries"`
	FailedDeliveries     int           `json:"failed_deliveries"`
	RecentLogs           []*WebhookLog `json:"recent_logs"`
}
