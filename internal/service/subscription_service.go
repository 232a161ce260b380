package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/pkg/cache"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// subscriptionCacheKey builds the cache key for a subscription snapshot
func subscriptionCacheKey(id string) string {
	return "subscription:" + id
}

// SubscriptionService manages subscriptions and their cached snapshots.
// The cache is best-effort: every cache failure falls back to the database
// and is logged, never surfaced to the caller.
type SubscriptionService struct {
	repo     domain.SubscriptionRepository
	cache    cache.Cache
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	repo domain.SubscriptionRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	log logger.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// Create validates and persists a new subscription
func (s *SubscriptionService) Create(ctx context.Context, req *domain.CreateSubscriptionRequest) (*domain.Subscription, error) {
	sub, err := req.Validate()
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to create subscription")
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID,
		"target_url":      sub.TargetURL,
	}).Info("Subscription created")

	return sub, nil
}

// Get retrieves a subscription directly from the database
func (s *SubscriptionService) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves subscriptions with pagination
func (s *SubscriptionService) List(ctx context.Context, limit, offset int) ([]*domain.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Update applies a partial update and invalidates the cached snapshot
func (s *SubscriptionService) Update(ctx context.Context, id string, req *domain.UpdateSubscriptionRequest) (*domain.Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(sub)

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	s.logger.WithField("subscription_id", id).Info("Subscription updated")

	return sub, nil
}

// Delete removes a subscription and invalidates the cached snapshot
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)

	s.logger.WithField("subscription_id", id).Info("Subscription deleted")

	return nil
}

// GetSnapshot returns the delivery-path view of a subscription, served from
// cache when possible. A stale snapshot can be observed until the TTL or the
// next mutation, whichever comes first.
func (s *SubscriptionService) GetSnapshot(ctx context.Context, id string) (*domain.SubscriptionSnapshot, error) {
	key := subscriptionCacheKey(id)

	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": id,
			"error":           err.Error(),
		}).Warn("Cache read failed, falling back to database")
	} else if found {
		var snapshot domain.SubscriptionSnapshot
		if err := json.Unmarshal(data, &snapshot); err == nil {
			return &snapshot, nil
		}
		s.logger.WithField("subscription_id", id).Warn("Discarding corrupt cache entry")
		_ = s.cache.Delete(ctx, key)
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshot := sub.Snapshot()

	if data, err := json.Marshal(snapshot); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"subscription_id": id,
				"error":           err.Error(),
			}).Warn("Failed to populate subscription cache")
		}
	}

	return snapshot, nil
}

func (s *SubscriptionService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, subscriptionCacheKey(id)); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": id,
			"error":           err.Error(),
		}).Warn("Failed to invalidate subscription cache")
	}
}
