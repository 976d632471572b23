package repository

import (
	"context"
	"database/sql"
	"time"

	"qbooking/internal/database"
	"qbooking/internal/models"
)

type NotificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `
	id, user_id, type, title, message, priority, is_read, email_sent,
	email_error, email_retry_count, max_email_retries, next_email_retry_at, created_at`

func scanNotificationRow(scan func(dest ...any) error) (*models.Notification, error) {
	n := &models.Notification{}
	err := scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Priority,
		&n.IsRead,
		&n.EmailSent,
		&n.EmailError,
		&n.EmailRetryCount,
		&n.MaxEmailRetries,
		&n.NextEmailRetryAt,
		&n.CreatedAt,
	)
	return n, err
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message, priority, max_email_retries)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		n.Priority,
		n.MaxEmailRetries,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotificationRow(r.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

// FetchBatch returns undelivered notifications that still have retries
// left and whose backoff has elapsed, highest priority first and
// oldest-first within a priority band. The WHERE clause and ORDER BY
// encode the same contract as models.EmailDeliverable and
// models.EmailDeliveryBefore.
func (r *NotificationRepository) FetchBatch(ctx context.Context, maxCount int) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE email_sent = FALSE
		  AND email_retry_count < max_email_retries
		  AND (next_email_retry_at IS NULL OR next_email_retry_at <= NOW())
		ORDER BY priority DESC, created_at ASC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, maxCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotificationRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// MarkSent records a successful delivery and clears any previous error
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET email_sent = TRUE, email_error = NULL WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// MarkFailed counts a failed attempt. Once the counter reaches the retry
// limit the row is terminally delivered-as-failed and never refetched.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `
		UPDATE notifications
		SET email_retry_count = email_retry_count + 1,
		    email_error = $2,
		    email_sent = (email_retry_count + 1 >= max_email_retries)
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, errMsg)
	return err
}

// MarkUndeliverable retires a notification immediately, without burning
// through the remaining retry budget.
func (r *NotificationRepository) MarkUndeliverable(ctx context.Context, id int64, errMsg string) error {
	query := `
		UPDATE notifications
		SET email_sent = TRUE,
		    email_error = $2,
		    email_retry_count = max_email_retries
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, errMsg)
	return err
}

// MarkForRetry counts a failed attempt and schedules the next one
func (r *NotificationRepository) MarkForRetry(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	query := `
		UPDATE notifications
		SET email_retry_count = email_retry_count + 1,
		    email_error = $2,
		    next_email_retry_at = $3
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, errMsg, nextRetryAt)
	return err
}

// ListByUser returns the user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotificationRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}
