package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/internal/service"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// Minimal in-memory fakes backing the real services in handler tests.

type stubSubscriptionRepo struct {
	subs map[string]*domain.Subscription
}

func newStubSubscriptionRepo(subs ...*domain.Subscription) *stubSubscriptionRepo {
	repo := &stubSubscriptionRepo{subs: make(map[string]*domain.Subscription)}
	for _, sub := range subs {
		repo.subs[sub.ID] = sub
	}
	return repo
}

func (r *stubSubscriptionRepo) Create(_ context.Context, sub *domain.Subscription) error {
	if sub.ID == "" {
		sub.ID = "generated-id"
	}
	r.subs[sub.ID] = sub
	return nil
}

func (r *stubSubscriptionRepo) GetByID(_ context.Context, id string) (*domain.Subscription, error) {
	sub, ok := r.subs[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (r *stubSubscriptionRepo) List(_ context.Context, _, _ int) ([]*domain.Subscription, error) {
	var subs []*domain.Subscription
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs, nil
}

func (r *stubSubscriptionRepo) Update(_ context.Context, sub *domain.Subscription) error {
	if _, ok := r.subs[sub.ID]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	r.subs[sub.ID] = sub
	return nil
}

func (r *stubSubscriptionRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.subs[id]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	delete(r.subs, id)
	return nil
}

type stubLogRepo struct {
	byDelivery map[string][]*domain.WebhookLog
	bySub      map[string][]*domain.WebhookLog
	counts     domain.SubscriptionDeliveryCounts
}

func newStubLogRepo() *stubLogRepo {
	return &stubLogRepo{
		byDelivery: make(map[string][]*domain.WebhookLog),
		bySub:      make(map[string][]*domain.WebhookLog),
	}
}

func (r *stubLogRepo) Create(_ context.Context, log *domain.WebhookLog) error {
	r.byDelivery[log.DeliveryID] = append(r.byDelivery[log.DeliveryID], log)
	return nil
}

func (r *stubLogRepo) ListByDeliveryID(_ context.Context, deliveryID string) ([]*domain.WebhookLog, error) {
	return r.byDelivery[deliveryID], nil
}

func (r *stubLogRepo) ListBySubscriptionID(_ context.Context, subscriptionID string, limit int) ([]*domain.WebhookLog, error) {
	logs := r.bySub[subscriptionID]
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (r *stubLogRepo) CountDeliveries(_ context.Context, _ string) (*domain.SubscriptionDeliveryCounts, error) {
	counts := r.counts
	return &counts, nil
}

func (r *stubLogRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type stubQueue struct {
	tasks []*domain.DeliveryTask
}

func (q *stubQueue) Enqueue(_ context.Context, task *domain.DeliveryTask, _ time.Duration) error {
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *stubQueue) Claim(_ context.Context, _ int, _ time.Duration) ([]*domain.QueuedTask, error) {
	return nil, nil
}

func (q *stubQueue) Ack(_ context.Context, _ string) error {
	return nil
}

type noopCache struct{}

func (noopCache) Get(_ context.Context, _ string) ([]byte, bool, error) { return nil, false, nil }
func (noopCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}
func (noopCache) Delete(_ context.Context, _ string) error { return nil }
func (noopCache) Stop()                                    {}

type testHarness struct {
	mux   *http.ServeMux
	subs  *stubSubscriptionRepo
	logs  *stubLogRepo
	queue *stubQueue
}

func newTestHarness(t *testing.T, subs ...*domain.Subscription) *testHarness {
	log := logger.NewMockLogger(t)
	subRepo := newStubSubscriptionRepo(subs...)
	logRepo := newStubLogRepo()
	queue := &stubQueue{}

	subSvc := service.NewSubscriptionService(subRepo, noopCache{}, time.Hour, log)
	ingestSvc := service.NewIngestService(subSvc, queue, log)
	statusSvc := service.NewStatusService(logRepo, subRepo, log)

	mux := http.NewServeMux()
	NewRootHandler("1.0", log).RegisterRoutes(mux)
	NewIngestHandler(ingestSvc, log).RegisterRoutes(mux)
	NewSubscriptionHandler(subSvc, log).RegisterRoutes(mux)
	NewStatusHandler(statusSvc, log).RegisterRoutes(mux)
	NewToolsHandler(log).RegisterRoutes(mux)

	return &testHarness{mux: mux, subs: subRepo, logs: logRepo, queue: queue}
}
