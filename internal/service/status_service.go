package service

import (
	"context"

	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// StatusService assembles reporting views from the append-only attempt log
type StatusService struct {
	logs          domain.WebhookLogRepository
	subscriptions domain.SubscriptionRepository
	logger        logger.Logger
}

// NewStatusService creates a new status service
func NewStatusService(logs domain.WebhookLogRepository, subscriptions domain.SubscriptionRepository, log logger.Logger) *StatusService {
	return &StatusService{
		logs:          logs,
		subscriptions: subscriptions,
		logger:        log,
	}
}

// GetDeliveryStatus returns the full attempt history of a delivery plus its
// latest state. A delivery exists once its first attempt row is written.
func (s *StatusService) GetDeliveryStatus(ctx context.Context, deliveryID string) (*domain.DeliveryStatus, error) {
	logs, err := s.logs.ListByDeliveryID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, domain.ErrDeliveryNotFound
	}

	latest := logs[len(logs)-1]

	return &domain.DeliveryStatus{
		DeliveryID:     deliveryID,
		SubscriptionID: latest.SubscriptionID,
		TotalAttempts:  len(logs),
		LatestStatus:   latest.Status,
		LatestAttempt:  latest.CreatedAt,
		Logs:           logs,
	}, nil
}

// GetSubscriptionDeliveries returns aggregate delivery counts and the most
// recent attempt rows for a subscription.
func (s *StatusService) GetSubscriptionDeliveries(ctx context.Context, subscriptionID string, limit int) (*domain.SubscriptionDeliveryStats, error) {
	// Existence check first so an unknown subscription is distinguishable
	// from one that simply has no deliveries yet.
	if _, err := s.subscriptions.GetByID(ctx, subscriptionID); err != nil {
		return nil, err
	}

	counts, err := s.logs.CountDeliveries(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	logs, err := s.logs.ListBySubscriptionID(ctx, subscriptionID, limit)
	if err != nil {
		return nil, err
	}

	return &domain.SubscriptionDeliveryStats{
		SubscriptionID:       subscriptionID,
		TotalDeliveries:      counts.Total,
		SuccessfulDeliveries: counts.Successful,
		FailedDeliveries:     counts.Failed,
		RecentLogs:           logs,
	}, nil
}
