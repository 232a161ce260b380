package service

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hookrelay/hookrelay/internal/domain"
)

// Hand-written fakes shared by the service tests.

type fakeSubscriptionRepo struct {
	mu       sync.Mutex
	subs     map[string]*domain.Subscription
	getCalls int
	err      error
}

func newFakeSubscriptionRepo(subs ...*domain.Subscription) *fakeSubscriptionRepo {
	repo := &fakeSubscriptionRepo{subs: make(map[string]*domain.Subscription)}
	for _, sub := range subs {
		repo.subs[sub.ID] = sub
	}
	return repo
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if sub.ID == "" {
		sub.ID = "generated-id"
	}
	r.subs[sub.ID] = sub
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(_ context.Context, id string) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	if r.err != nil {
		return nil, r.err
	}
	sub, ok := r.subs[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (r *fakeSubscriptionRepo) List(_ context.Context, _, _ int) ([]*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var subs []*domain.Subscription
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs, nil
}

func (r *fakeSubscriptionRepo) Update(_ context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.subs[sub.ID]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	r.subs[sub.ID] = sub
	return nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.subs[id]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	delete(r.subs, id)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	value, ok := c.items[key]
	return value, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.items[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, key)
	delete(c.items, key)
	return nil
}

func (c *fakeCache) Stop() {}

type enqueuedTask struct {
	task  *domain.DeliveryTask
	delay time.Duration
}

type fakeQueue struct {
	mu         sync.Mutex
	enqueued   []enqueuedTask
	claimable  []*domain.QueuedTask
	acked      []string
	enqueueErr error
}

func (q *fakeQueue) Enqueue(_ context.Context, task *domain.DeliveryTask, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, enqueuedTask{task: task, delay: delay})
	return nil
}

func (q *fakeQueue) Claim(_ context.Context, limit int, _ time.Duration) ([]*domain.QueuedTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.claimable) == 0 {
		return nil, nil
	}
	n := len(q.claimable)
	if n > limit {
		n = limit
	}
	tasks := q.claimable[:n]
	q.claimable = q.claimable[n:]
	return tasks, nil
}

func (q *fakeQueue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, id)
	return nil
}

func (q *fakeQueue) enqueuedTasks() []enqueuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]enqueuedTask(nil), q.enqueued...)
}

func (q *fakeQueue) ackedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

type fakeLogRepo struct {
	mu            sync.Mutex
	created       []*domain.WebhookLog
	byDelivery    map[string][]*domain.WebhookLog
	bySub         map[string][]*domain.WebhookLog
	counts        *domain.SubscriptionDeliveryCounts
	createErr     error
	deleteCutoffs []time.Time
	deleteCount   int64
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{
		byDelivery: make(map[string][]*domain.WebhookLog),
		bySub:      make(map[string][]*domain.WebhookLog),
	}
}

func (r *fakeLogRepo) Create(_ context.Context, log *domain.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, log)
	r.byDelivery[log.DeliveryID] = append(r.byDelivery[log.DeliveryID], log)
	return nil
}

func (r *fakeLogRepo) ListByDeliveryID(_ context.Context, deliveryID string) ([]*domain.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byDelivery[deliveryID], nil
}

func (r *fakeLogRepo) ListBySubscriptionID(_ context.Context, subscriptionID string, limit int) ([]*domain.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logs := r.bySub[subscriptionID]
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (r *fakeLogRepo) CountDeliveries(_ context.Context, _ string) (*domain.SubscriptionDeliveryCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		return &domain.SubscriptionDeliveryCounts{}, nil
	}
	return r.counts, nil
}

func (r *fakeLogRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCutoffs = append(r.deleteCutoffs, cutoff)
	return r.deleteCount, nil
}

func (r *fakeLogRepo) createdRows() []*domain.WebhookLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.WebhookLog(nil), r.created...)
}

type fakeHTTPClient struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	respond  func(req *http.Request) (*http.Response, error)
}

func (c *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	c.bodies = append(c.bodies, body)
	c.mu.Unlock()
	return c.respond(req)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
