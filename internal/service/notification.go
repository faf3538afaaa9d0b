package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

type deliveryJob struct {
	intent  domain.Intent
	retries int
}

// NotificationQueue records every intent in the notification outbox and delivers
// it on a pool of background workers, retrying with quadratic backoff.
type NotificationQueue struct {
	noteRepo   repository.NotificationRepository
	deliverer  Deliverer
	jobs       chan deliveryJob
	workers    int
	maxRetries int
	backoff    time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewNotificationQueue(noteRepo repository.NotificationRepository, deliverer Deliverer, workers, queueSize, maxRetries int) *NotificationQueue {
	return &NotificationQueue{
		noteRepo:   noteRepo,
		deliverer:  deliverer,
		jobs:       make(chan deliveryJob, queueSize),
		workers:    workers,
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
}

// Start begins processing intents asynchronously. Workers keep running after ctx
// is cancelled so that Shutdown can drain the queue; they stop when Shutdown
// returns.
func (q *NotificationQueue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Shutdown stops accepting intents and waits for queued ones to be delivered.
// When ctx expires first, in-flight deliveries are abandoned.
func (q *NotificationQueue) Shutdown(ctx context.Context) error {
	if q.cancel != nil {
		defer q.cancel()
	}
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Emit records the intent in the outbox and queues it for delivery. It does not
// wait for delivery.
func (q *NotificationQueue) Emit(ctx context.Context, intent domain.Intent) error {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now().UTC()
	}

	title, message := RenderIntent(intent)
	note := &domain.Notification{
		IntentID:      intent.ID,
		Kind:          intent.Kind,
		Recipient:     intent.Recipient,
		TransactionID: intent.TransactionID,
		Title:         title,
		Message:       message,
		Attributes:    intentAttributes(intent),
		CreatedOn:     intent.CreatedAt,
	}
	if err := q.noteRepo.Create(ctx, note); err != nil {
		return fmt.Errorf("record notification %s: %w", intent.ID, err)
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- deliveryJob{intent: intent}:
		logger.Debug("Notification queued", "intentID", intent.ID, "kind", intent.Kind, "transactionID", intent.TransactionID)
		return nil
	default:
		logger.Error("Notification queue full, dropping intent",
			"intentID", intent.ID, "kind", intent.Kind, "transactionID", intent.TransactionID)
		return ErrQueueFull
	}
}

func (q *NotificationQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	log := logger.WithService("notification-worker").With("worker", id, "transport", q.deliverer.Name())
	log.Debug("Notification worker started")

	for job := range q.jobs {
		q.process(ctx, job)
	}
	log.Debug("Notification worker stopped")
}

func (q *NotificationQueue) process(ctx context.Context, job deliveryJob) {
	for {
		logger.ExternalServiceCall(q.deliverer.Name(), "Deliver", "intentID", job.intent.ID, "attempt", job.retries+1)
		err := q.deliverer.Deliver(ctx, job.intent)
		logger.ExternalServiceResult(q.deliverer.Name(), "Deliver", err, "intentID", job.intent.ID)
		if err == nil {
			logger.Info("Notification delivered",
				"intentID", job.intent.ID, "kind", job.intent.Kind, "recipient", job.intent.Recipient)
			return
		}
		if job.retries >= q.maxRetries {
			logger.Error("Notification delivery failed after retries",
				"intentID", job.intent.ID, "kind", job.intent.Kind, "retries", job.retries, "error", err)
			return
		}

		job.retries++
		backoff := time.Duration(job.retries*job.retries) * q.backoff
		logger.Warn("Retrying notification delivery",
			"intentID", job.intent.ID, "backoff", backoff, "attempt", job.retries, "maxRetries", q.maxRetries)
		select {
		case <-ctx.Done():
			logger.Error("Notification delivery abandoned", "intentID", job.intent.ID, "error", ctx.Err())
			return
		case <-time.After(backoff):
		}
	}
}

// logDeliverer writes intents to the log instead of a transport.
type logDeliverer struct{}

func NewLogDeliverer() Deliverer {
	return logDeliverer{}
}

func (logDeliverer) Name() string { return "log" }

func (logDeliverer) Deliver(ctx context.Context, intent domain.Intent) error {
	subject, body := RenderIntent(intent)
	logger.Info("Notification", "kind", intent.Kind, "recipient", intent.Recipient, "subject", subject, "body", body)
	return nil
}
