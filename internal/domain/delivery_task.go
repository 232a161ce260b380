package domain

import (
	"context"
	"net/http"
	"time"
)

// DeliveryTask is the queue payload for one delivery attempt. Retries are
// fresh tasks with an incremented attempt number, never in-process waits.
type DeliveryTask struct {
	DeliveryID     string                 `json:"delivery_id"`
	SubscriptionID string                 `json:"subscription_id"`
	Payload        map[string]interface{} `json:"payload"`
	AttemptNumber  int                    `json:"attempt_number"`
	EventType      string                 `json:"event_type,omitempty"`
}

// QueuedTask is a claimed queue entry: the task plus the queue row id the
// worker must ack once the attempt row is durable.
type QueuedTask struct {
	ID   string
	Task DeliveryTask
}

// DeliveryQueue is a durable task queue with delayed delivery. Entries stay
// queued until acked; a claimed entry whose lease expires becomes claimable
// again, which gives at-least-once processing under worker crash.
type DeliveryQueue interface {
	// Enqueue submits a task that becomes ready after the given delay.
	Enqueue(ctx context.Context, task *DeliveryTask, delay time.Duration) error

	// Claim leases up to limit ready tasks for exclusive processing.
	Claim(ctx context.Context, limit int, lease time.Duration) ([]*QueuedTask, error)

	// Ack removes a claimed entry. Called only after the attempt row is
	// written and any retry has been enqueued (late-ack discipline).
	Ack(ctx context.Context, id string) error
}

// Clock abstracts time for deterministic retry-timing tests
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// HTTPClient abstracts the outbound HTTP client for testability and fault
// injection. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
