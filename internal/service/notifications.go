package service

import (
	"context"
	"fmt"
	"time"

	apperrors "qbooking/internal/errors"
	"qbooking/internal/logger"
	"qbooking/internal/metrics"
	"qbooking/internal/models"
	"qbooking/internal/push"
)

// maxBackoffExponent caps the retry delay at 2^10 minutes (~17 hours) so
// raising the retry limit can never schedule a delivery years out.
const maxBackoffExponent = 10

// Notifier is what the other settlement components see of the queue:
// enqueue and forget. Delivery is the worker's business.
type Notifier interface {
	Enqueue(ctx context.Context, userID int64, notifType, title, message string) (int64, error)
}

// NotificationStore is the persistence the queue needs
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id int64) (*models.Notification, error)
	FetchBatch(ctx context.Context, maxCount int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	MarkUndeliverable(ctx context.Context, id int64, errMsg string) error
	MarkForRetry(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
}

// NotificationService persists outbound notification intents and tracks
// their delivery state. The persisted row is the durable source of truth;
// the push channel is a best-effort latency optimization on top.
type NotificationService struct {
	store NotificationStore
	push  push.Channel
}

func NewNotificationService(store NotificationStore, pushChannel push.Channel) *NotificationService {
	return &NotificationService{
		store: store,
		push:  pushChannel,
	}
}

// Enqueue persists the notification and pushes it to the user's real-time
// channel. Push failures never affect the persisted state.
func (s *NotificationService) Enqueue(ctx context.Context, userID int64, notifType, title, message string) (int64, error) {
	meta, ok := models.NotificationMetaFor(notifType)
	if !ok {
		return 0, apperrors.Validationf("unknown notification type %q", notifType)
	}

	notification := &models.Notification{
		UserID:          userID,
		Type:            notifType,
		Title:           title,
		Message:         message,
		Priority:        meta.Priority,
		MaxEmailRetries: meta.MaxEmailRetries,
	}

	if err := s.store.Create(ctx, notification); err != nil {
		return 0, fmt.Errorf("failed to enqueue notification: %w", err)
	}
	metrics.NotificationsEnqueued.Inc()

	s.push.Publish(push.UserTopic(userID), push.EventReceiveNotification, notification)

	return notification.ID, nil
}

// FetchBatch hands the delivery worker the next deliverable notifications,
// urgent before high before normal before low, oldest-first within a tier.
func (s *NotificationService) FetchBatch(ctx context.Context, maxCount int) ([]models.Notification, error) {
	if maxCount <= 0 {
		return nil, apperrors.Validationf("batch size must be positive, got %d", maxCount)
	}
	return s.store.FetchBatch(ctx, maxCount)
}

// MarkSent records a successful delivery
func (s *NotificationService) MarkSent(ctx context.Context, id int64) error {
	return s.store.MarkSent(ctx, id)
}

// MarkFailed counts a failed attempt; hitting the retry limit retires the
// notification as delivered-as-failed.
func (s *NotificationService) MarkFailed(ctx context.Context, id int64, deliveryErr string) error {
	return s.store.MarkFailed(ctx, id, deliveryErr)
}

// MarkUndeliverable retires a notification that can never be delivered,
// such as one addressed to a user without an email, without burning
// through the remaining retry budget.
func (s *NotificationService) MarkUndeliverable(ctx context.Context, id int64, deliveryErr string) error {
	return s.store.MarkUndeliverable(ctx, id, deliveryErr)
}

// MarkForRetry counts a failed attempt and schedules the next one with
// exponential backoff.
func (s *NotificationService) MarkForRetry(ctx context.Context, id int64, deliveryErr string) error {
	notification, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load notification %d: %w", id, err)
	}
	if notification == nil {
		return apperrors.NotFoundf("notification %d", id)
	}

	nextRetryAt := time.Now().Add(RetryBackoff(notification.EmailRetryCount))
	return s.store.MarkForRetry(ctx, id, deliveryErr, nextRetryAt)
}

// ListForUser is a side-effect-free projection; errors are logged and an
// empty result returned.
func (s *NotificationService) ListForUser(ctx context.Context, userID int64, limit int) []models.Notification {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notifications, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to list notifications", "error", err, "user_id", userID)
		return nil
	}
	return notifications
}

// RetryBackoff returns 2^retryCount minutes, capped at 2^10
func RetryBackoff(retryCount int) time.Duration {
	exp := retryCount
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	return time.Duration(int64(1)<<exp) * time.Minute
}
