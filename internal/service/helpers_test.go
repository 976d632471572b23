package service

import (
	"context"

	"qbooking/internal/models"
)

// recordingNotifier captures enqueued notifications instead of persisting
type recordingNotifier struct {
	entries []enqueuedNotification
	err     error
}

type enqueuedNotification struct {
	userID    int64
	notifType string
	title     string
	message   string
}

func (n *recordingNotifier) Enqueue(ctx context.Context, userID int64, notifType, title, message string) (int64, error) {
	if n.err != nil {
		return 0, n.err
	}
	n.entries = append(n.entries, enqueuedNotification{
		userID:    userID,
		notifType: notifType,
		title:     title,
		message:   message,
	})
	return int64(len(n.entries)), nil
}

// recordingAudit captures audit entries
type recordingAudit struct {
	actions []auditedAction
}

type auditedAction struct {
	actionType string
	tableName  string
	recordID   int64
}

func (a *recordingAudit) RecordAction(ctx context.Context, actionType, tableName string, recordID int64, oldValues, newValues string) {
	a.actions = append(a.actions, auditedAction{
		actionType: actionType,
		tableName:  tableName,
		recordID:   recordID,
	})
}

func ptrInt64(v int64) *int64 { return &v }

func paidConfirmedBooking(id int64, code string, amount int64) *models.Booking {
	return &models.Booking{
		ID:            id,
		BookingCode:   code,
		CustomerID:    ptrInt64(100),
		TotalAmount:   amount,
		Status:        models.BookingStatusConfirmed,
		PaymentStatus: models.PaymentStatusPaid,
	}
}
