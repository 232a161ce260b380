package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hookrelay/hookrelay/config"
	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/pkg/crypto"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

const deliveryUserAgent = "Webhook-Delivery-Service/1.0"

// attemptOutcome is the result of executing one delivery attempt. Exactly one
// log row is written per outcome; retryable says whether a follow-up task may
// be scheduled (subject to the retry budget).
type attemptOutcome struct {
	status       string
	statusCode   *int
	errorDetails string
	targetURL    string
	retryable    bool
}

// DeliveryWorker drains the delivery queue and performs webhook attempts.
// Each claimed task produces exactly one attempt row; retries are scheduled
// as fresh queue entries with exponential backoff. The queue entry is acked
// only after the row (and any retry) is durable, so a crash mid-task leads
// to redelivery rather than a lost attempt.
type DeliveryWorker struct {
	queue         domain.DeliveryQueue
	logs          domain.WebhookLogRepository
	subscriptions *SubscriptionService
	httpClient    domain.HTTPClient
	clock         domain.Clock
	logger        logger.Logger
	cfg           config.DeliveryConfig

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	semaphore chan struct{}

	lastCleanupTime time.Time
	cleanupInterval time.Duration
}

// NewDeliveryWorker creates a new delivery worker
func NewDeliveryWorker(
	queue domain.DeliveryQueue,
	logs domain.WebhookLogRepository,
	subscriptions *SubscriptionService,
	httpClient domain.HTTPClient,
	clock domain.Clock,
	log logger.Logger,
	cfg config.DeliveryConfig,
) *DeliveryWorker {
	return &DeliveryWorker{
		queue:           queue,
		logs:            logs,
		subscriptions:   subscriptions,
		httpClient:      httpClient,
		clock:           clock,
		logger:          log,
		cfg:             cfg,
		semaphore:       make(chan struct{}, cfg.WorkerCount),
		cleanupInterval: time.Hour,
	}
}

// Start launches the poll loop. Returns an error if already running.
func (w *DeliveryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("delivery worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true

	w.wg.Add(1)
	go w.pollLoop(ctx)

	w.logger.WithFields(map[string]interface{}{
		"worker_count":  w.cfg.WorkerCount,
		"poll_interval": w.cfg.QueuePollInterval.String(),
	}).Info("Delivery worker started")

	return nil
}

// Stop cancels the poll loop and waits for in-flight tasks to finish
func (w *DeliveryWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	w.logger.Info("Delivery worker stopped")
}

func (w *DeliveryWorker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.QueuePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.maybeCleanup(ctx)
			w.drainOnce(ctx)
		}
	}
}

// drainOnce claims one batch and dispatches each task to the bounded pool
func (w *DeliveryWorker) drainOnce(ctx context.Context) {
	tasks, err := w.queue.Claim(ctx, w.cfg.QueueBatchSize, w.cfg.TaskLease)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.WithField("error", err.Error()).Error("Failed to claim delivery tasks")
		}
		return
	}

	for _, task := range tasks {
		select {
		case w.semaphore <- struct{}{}:
		case <-ctx.Done():
			return
		}

		w.wg.Add(1)
		go func(queued *domain.QueuedTask) {
			defer w.wg.Done()
			defer func() { <-w.semaphore }()
			w.processTask(ctx, queued)
		}(task)
	}
}

// processTask runs one attempt end to end: execute, log, schedule retry, ack.
// If logging the attempt fails the entry is left unacked so the lease expiry
// redelivers it.
func (w *DeliveryWorker) processTask(ctx context.Context, queued *domain.QueuedTask) {
	ctx, cancelTask := context.WithTimeout(ctx, w.cfg.TaskLease)
	defer cancelTask()

	task := &queued.Task
	outcome := w.executeAttempt(ctx, task)

	// Terminal cap: a retryable failure on the last allowed attempt becomes
	// the delivery's terminal FAILURE row.
	if outcome.retryable && task.AttemptNumber >= w.cfg.MaxRetryAttempts {
		outcome.status = domain.WebhookStatusFailure
		outcome.errorDetails = fmt.Sprintf("Maximum retry attempts reached. Last error: %s", outcome.errorDetails)
		outcome.retryable = false
	}

	logRow := &domain.WebhookLog{
		DeliveryID:     task.DeliveryID,
		SubscriptionID: task.SubscriptionID,
		TargetURL:      outcome.targetURL,
		EventType:      task.EventType,
		Payload:        task.Payload,
		AttemptNumber:  task.AttemptNumber,
		StatusCode:     outcome.statusCode,
		Status:         outcome.status,
		ErrorDetails:   outcome.errorDetails,
		CreatedAt:      w.clock.Now(),
	}

	if err := w.logs.Create(ctx, logRow); err != nil {
		w.logger.WithFields(map[string]interface{}{
			"delivery_id": task.DeliveryID,
			"attempt":     task.AttemptNumber,
			"error":       err.Error(),
		}).Error("Failed to record delivery attempt, leaving task for redelivery")
		return
	}

	if outcome.retryable {
		retry := &domain.DeliveryTask{
			DeliveryID:     task.DeliveryID,
			SubscriptionID: task.SubscriptionID,
			Payload:        task.Payload,
			AttemptNumber:  task.AttemptNumber + 1,
			EventType:      task.EventType,
		}
		delay := w.retryDelay(task.AttemptNumber)
		if err := w.queue.Enqueue(ctx, retry, delay); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"delivery_id": task.DeliveryID,
				"attempt":     task.AttemptNumber,
				"error":       err.Error(),
			}).Error("Failed to schedule retry, leaving task for redelivery")
			return
		}

		w.logger.WithFields(map[string]interface{}{
			"delivery_id":  task.DeliveryID,
			"next_attempt": retry.AttemptNumber,
			"delay":        delay.String(),
		}).Info("Delivery attempt failed, retry scheduled")
	}

	if err := w.queue.Ack(ctx, queued.ID); err != nil {
		w.logger.WithFields(map[string]interface{}{
			"delivery_id": task.DeliveryID,
			"error":       err.Error(),
		}).Error("Failed to ack delivery task")
	}
}

// executeAttempt performs the pre-flight checks and, if they pass, the
// outbound HTTP request. Panics inside the attempt are converted to a
// terminal outcome so the attempt is still recorded.
func (w *DeliveryWorker) executeAttempt(ctx context.Context, task *domain.DeliveryTask) (outcome attemptOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = attemptOutcome{
				status:       domain.WebhookStatusFailure,
				errorDetails: fmt.Sprintf("Unexpected error: %v", r),
			}
		}
	}()

	snapshot, err := w.subscriptions.GetSnapshot(ctx, task.SubscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return attemptOutcome{
				status:       domain.WebhookStatusFailure,
				errorDetails: "Subscription not found",
			}
		}
		return attemptOutcome{
			status:       domain.WebhookStatusFailure,
			errorDetails: fmt.Sprintf("Unexpected error: %s", err.Error()),
		}
	}

	targetURL := snapshot.TargetURL

	if !snapshot.IsActive {
		return attemptOutcome{
			status:       domain.WebhookStatusFailure,
			errorDetails: "Subscription is inactive",
			targetURL:    targetURL,
		}
	}

	if !domain.EventTypeMatches(task.EventType, snapshot.EventTypes) {
		return attemptOutcome{
			status:       domain.WebhookStatusFailure,
			errorDetails: fmt.Sprintf("Event type %s doesn't match subscription filters", task.EventType),
			targetURL:    targetURL,
		}
	}

	// Compact re-serialization of the stored payload. Key order is stable,
	// so every attempt of a delivery sends byte-identical body and signature.
	body, err := json.Marshal(task.Payload)
	if err != nil {
		return attemptOutcome{
			status:       domain.WebhookStatusFailure,
			errorDetails: fmt.Sprintf("Unexpected error: %s", err.Error()),
			targetURL:    targetURL,
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, w.cfg.WebhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return attemptOutcome{
			status:       domain.WebhookStatusFailedAttempt,
			errorDetails: fmt.Sprintf("Request error: %s", err.Error()),
			targetURL:    targetURL,
			retryable:    true,
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", deliveryUserAgent)
	req.Header.Set("X-Webhook-ID", task.DeliveryID)
	if snapshot.SecretKey != "" {
		req.Header.Set("X-Hub-Signature-256", "sha256="+crypto.Sign(body, snapshot.SecretKey))
	}
	if task.EventType != "" {
		req.Header.Set("X-Webhook-Event", task.EventType)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return attemptOutcome{
			status:       domain.WebhookStatusFailedAttempt,
			errorDetails: fmt.Sprintf("Request error: %s", err.Error()),
			targetURL:    targetURL,
			retryable:    true,
		}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return attemptOutcome{
			status:     domain.WebhookStatusSuccess,
			statusCode: &code,
			targetURL:  targetURL,
		}
	}

	return attemptOutcome{
		status:       domain.WebhookStatusFailedAttempt,
		statusCode:   &code,
		errorDetails: fmt.Sprintf("Target returned status code: %d", code),
		targetURL:    targetURL,
		retryable:    true,
	}
}

// retryDelay computes the backoff before the attempt following failedAttempt:
// initial * factor^(failedAttempt-1).
func (w *DeliveryWorker) retryDelay(failedAttempt int) time.Duration {
	delay := w.cfg.InitialRetryDelay
	for i := 1; i < failedAttempt; i++ {
		delay *= time.Duration(w.cfg.RetryBackoffFactor)
	}
	return delay
}

// maybeCleanup runs the retention sweep at most once per cleanupInterval
func (w *DeliveryWorker) maybeCleanup(ctx context.Context) {
	now := w.clock.Now()
	if now.Sub(w.lastCleanupTime) < w.cleanupInterval {
		return
	}
	w.lastCleanupTime = now

	cutoff := now.Add(-time.Duration(w.cfg.LogRetentionHours) * time.Hour)
	deleted, err := w.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.WithField("error", err.Error()).Error("Retention sweep failed")
		return
	}

	if deleted > 0 {
		w.logger.WithFields(map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Retention sweep removed old webhook logs")
	}
}
