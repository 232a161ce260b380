package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/pkg/crypto"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// IngestService accepts inbound webhook payloads and hands them to the queue.
// It does not deliver anything itself: once a task for attempt 1 is durably
// enqueued the caller gets a delivery id and everything else is asynchronous.
type IngestService struct {
	subscriptions *SubscriptionService
	queue         domain.DeliveryQueue
	logger        logger.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(subscriptions *SubscriptionService, queue domain.DeliveryQueue, log logger.Logger) *IngestService {
	return &IngestService{
		subscriptions: subscriptions,
		queue:         queue,
		logger:        log,
	}
}

// Ingest validates an inbound payload against the addressed subscription and
// enqueues the first delivery attempt. The signature, when the subscription
// carries a secret, is verified over the compact re-serialization of the
// parsed payload, the same canonical bytes the delivery engine signs on the
// way out. Returns the minted delivery id.
func (s *IngestService) Ingest(ctx context.Context, subscriptionID string, body []byte, signature, eventType string) (string, error) {
	sub, err := s.subscriptions.GetSnapshot(ctx, subscriptionID)
	if err != nil {
		return "", err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return "", domain.ErrInvalidPayload
	}

	if sub.SecretKey != "" {
		if signature == "" {
			return "", domain.ErrSignatureRequired
		}
		canonical, err := json.Marshal(payload)
		if err != nil {
			return "", domain.ErrInvalidPayload
		}
		provided := strings.TrimPrefix(signature, "sha256=")
		if !crypto.Verify(canonical, provided, sub.SecretKey) {
			s.logger.WithField("subscription_id", subscriptionID).Warn("Rejected payload with invalid signature")
			return "", domain.ErrInvalidSignature
		}
	}

	deliveryID := uuid.New().String()

	task := &domain.DeliveryTask{
		DeliveryID:     deliveryID,
		SubscriptionID: subscriptionID,
		Payload:        payload,
		AttemptNumber:  1,
		EventType:      eventType,
	}

	if err := s.queue.Enqueue(ctx, task, 0); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
			"error":           err.Error(),
		}).Error("Failed to enqueue delivery task")
		return "", fmt.Errorf("failed to enqueue delivery: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"delivery_id":     deliveryID,
		"subscription_id": subscriptionID,
		"event_type":      eventType,
	}).Info("Webhook queued for delivery")

	return deliveryID, nil
}
