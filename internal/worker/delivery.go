package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qbooking/internal/mailer"
	"qbooking/internal/metrics"
	"qbooking/internal/models"
)

// Queue is the delivery side of the notification queue
type Queue interface {
	FetchBatch(ctx context.Context, maxCount int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	MarkUndeliverable(ctx context.Context, id int64, errMsg string) error
	MarkForRetry(ctx context.Context, id int64, errMsg string) error
}

// UserStore resolves the recipient address
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// DeliveryWorker drains the notification queue on a fixed interval and
// sends each entry by email. Batches come back urgent-first, oldest-first
// within a priority tier; failed sends reschedule with backoff until the
// per-notification retry limit retires them.
type DeliveryWorker struct {
	queue     Queue
	users     UserStore
	mailer    mailer.Mailer
	interval  time.Duration
	batchSize int
	ticker    *time.Ticker
	done      chan bool
}

func NewDeliveryWorker(queue Queue, users UserStore, m mailer.Mailer, interval time.Duration, batchSize int) *DeliveryWorker {
	return &DeliveryWorker{
		queue:     queue,
		users:     users,
		mailer:    m,
		interval:  interval,
		batchSize: batchSize,
		done:      make(chan bool),
	}
}

// Start begins the background delivery loop
func (w *DeliveryWorker) Start(ctx context.Context) {
	slog.Info("Starting notification delivery worker",
		"poll_interval", w.interval.String(), "batch_size", w.batchSize)

	w.ticker = time.NewTicker(w.interval)

	// Drain once immediately instead of waiting a full interval
	go w.deliverBatch(ctx)

	go func() {
		for {
			select {
			case <-w.ticker.C:
				go w.deliverBatch(ctx)
			case <-w.done:
				slog.Info("Notification delivery worker stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the delivery loop
func (w *DeliveryWorker) Stop() {
	if w.ticker != nil {
		w.ticker.Stop()
	}
	close(w.done)
}

func (w *DeliveryWorker) deliverBatch(ctx context.Context) {
	batch, err := w.queue.FetchBatch(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to fetch notification batch", "error", err)
		return
	}
	if len(batch) == 0 {
		slog.Debug("No deliverable notifications")
		return
	}

	slog.Info("Delivering notification batch", "count", len(batch))

	for i := range batch {
		w.deliver(ctx, &batch[i])
	}
}

func (w *DeliveryWorker) deliver(ctx context.Context, n *models.Notification) {
	user, err := w.users.GetByID(ctx, n.UserID)
	if err != nil {
		slog.Error("Failed to resolve notification recipient",
			"error", err, "notification_id", n.ID, "user_id", n.UserID)
		return
	}
	if user == nil || user.Email == "" {
		// No address will ever appear for this user; retire immediately
		// instead of burning through the retry budget
		if err := w.queue.MarkUndeliverable(ctx, n.ID, fmt.Sprintf("user %d has no email address", n.UserID)); err != nil {
			slog.Error("Failed to retire undeliverable notification", "error", err, "notification_id", n.ID)
		}
		metrics.NotificationsDelivered.WithLabelValues("no_recipient").Inc()
		return
	}

	if err := w.mailer.Send(user.Email, n.Title, n.Message); err != nil {
		w.handleSendFailure(ctx, n, err)
		return
	}

	if err := w.queue.MarkSent(ctx, n.ID); err != nil {
		slog.Error("Failed to mark notification sent", "error", err, "notification_id", n.ID)
		return
	}

	metrics.NotificationsDelivered.WithLabelValues("sent").Inc()
	slog.Info("Delivered notification",
		"notification_id", n.ID, "user_id", n.UserID, "type", n.Type, "priority", n.Priority)
}

func (w *DeliveryWorker) handleSendFailure(ctx context.Context, n *models.Notification, sendErr error) {
	slog.Error("Failed to send notification email",
		"error", sendErr, "notification_id", n.ID,
		"retry_count", n.EmailRetryCount, "max_retries", n.MaxEmailRetries)

	if n.EmailRetryCount+1 >= n.MaxEmailRetries {
		if err := w.queue.MarkFailed(ctx, n.ID, sendErr.Error()); err != nil {
			slog.Error("Failed to retire notification", "error", err, "notification_id", n.ID)
			return
		}
		metrics.NotificationsDelivered.WithLabelValues("exhausted").Inc()
		slog.Warn("Notification retired after exhausting retries",
			"notification_id", n.ID, "attempts", n.EmailRetryCount+1)
		return
	}

	if err := w.queue.MarkForRetry(ctx, n.ID, sendErr.Error()); err != nil {
		slog.Error("Failed to schedule notification retry", "error", err, "notification_id", n.ID)
		return
	}
	metrics.NotificationsDelivered.WithLabelValues("retried").Inc()
}
