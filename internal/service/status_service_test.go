package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

func TestStatusService_GetDeliveryStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("NotFound", func(t *testing.T) {
		svc := NewStatusService(newFakeLogRepo(), newFakeSubscriptionRepo(), logger.NewMockLogger(t))

		_, err := svc.GetDeliveryStatus(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrDeliveryNotFound)
	})

	t.Run("LatestIsLastRow", func(t *testing.T) {
		logs := newFakeLogRepo()
		logs.byDelivery["del-1"] = []*domain.WebhookLog{
			{
				DeliveryID:     "del-1",
				SubscriptionID: "sub-1",
				AttemptNumber:  1,
				Status:         domain.WebhookStatusFailedAttempt,
				CreatedAt:      now,
			},
			{
				DeliveryID:     "del-1",
				SubscriptionID: "sub-1",
				AttemptNumber:  2,
				Status:         domain.WebhookStatusSuccess,
				CreatedAt:      now.Add(10 * time.Second),
			},
		}
		svc := NewStatusService(logs, newFakeSubscriptionRepo(), logger.NewMockLogger(t))

		status, err := svc.GetDeliveryStatus(ctx, "del-1")
		require.NoError(t, err)
		assert.Equal(t, "del-1", status.DeliveryID)
		assert.Equal(t, "sub-1", status.SubscriptionID)
		assert.Equal(t, 2, status.TotalAttempts)
		assert.Equal(t, domain.WebhookStatusSuccess, status.LatestStatus)
		assert.Equal(t, now.Add(10*time.Second), status.LatestAttempt)
		assert.Len(t, status.Logs, 2)
	})
}

func TestStatusService_GetSubscriptionDeliveries(t *testing.T) {
	ctx := context.Background()

	t.Run("SubscriptionNotFound", func(t *testing.T) {
		svc := NewStatusService(newFakeLogRepo(), newFakeSubscriptionRepo(), logger.NewMockLogger(t))

		_, err := svc.GetSubscriptionDeliveries(ctx, "missing", 20)
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	})

	t.Run("AggregatesCountsAndLogs", func(t *testing.T) {
		logs := newFakeLogRepo()
		logs.counts = &domain.SubscriptionDeliveryCounts{Total: 5, Successful: 3, Failed: 1}
		logs.bySub["sub-1"] = []*domain.WebhookLog{
			{DeliveryID: "del-3", Status: domain.WebhookStatusSuccess},
			{DeliveryID: "del-2", Status: domain.WebhookStatusFailure},
		}
		subs := newFakeSubscriptionRepo(&domain.Subscription{ID: "sub-1", TargetURL: "https://example.com"})
		svc := NewStatusService(logs, subs, logger.NewMockLogger(t))

		stats, err := svc.GetSubscriptionDeliveries(ctx, "sub-1", 20)
		require.NoError(t, err)
		assert.Equal(t, "sub-1", stats.SubscriptionID)
		assert.Equal(t, 5, stats.TotalDeliveries)
		assert.Equal(t, 3, stats.SuccessfulDeliveries)
		assert.Equal(t, 1, stats.FailedDeliveries)
		assert.Len(t, stats.RecentLogs, 2)
	})

	t.Run("EmptyHistory", func(t *testing.T) {
		subs := newFakeSubscriptionRepo(&domain.Subscription{ID: "sub-1", TargetURL: "https://example.com"})
		svc := NewStatusService(newFakeLogRepo(), subs, logger.NewMockLogger(t))

		stats, err := svc.GetSubscriptionDeliveries(ctx, "sub-1", 20)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalDeliveries)
		assert.Empty(t, stats.RecentLogs)
	})
}
