package models

import "time"

// Notification priorities, ordered for the delivery queue. Higher ranks
// are fetched first; creation time breaks ties within a rank.
const (
	PriorityLow    = 1
	PriorityNormal = 2
	PriorityHigh   = 3
	PriorityUrgent = 4
)

// Notification types form a closed set. Anything outside the table below
// is rejected at enqueue time.
const (
	NotifBookingConfirmed   = "booking_confirmed"
	NotifBookingCancelled   = "booking_cancelled"
	NotifHostBookingPaid    = "host_booking_paid"
	NotifRefundTicketCreate = "refund_ticket_created"
	NotifRefundApproved     = "refund_approved"
	NotifRefundRejected     = "refund_rejected"
	NotifPayoutCompleted    = "payout_completed"
	NotifAccountSuspended   = "account_suspended"
)

const (
	defaultMaxEmailRetries  = 3
	securityMaxEmailRetries = 5
)

// NotificationMeta describes delivery policy for one notification type
type NotificationMeta struct {
	Priority        int
	RelatedTable    string
	MaxEmailRetries int
}

var notificationMeta = map[string]NotificationMeta{
	NotifBookingConfirmed:   {PriorityHigh, "bookings", defaultMaxEmailRetries},
	NotifBookingCancelled:   {PriorityHigh, "bookings", defaultMaxEmailRetries},
	NotifHostBookingPaid:    {PriorityNormal, "bookings", defaultMaxEmailRetries},
	NotifRefundTicketCreate: {PriorityNormal, "refund_tickets", defaultMaxEmailRetries},
	NotifRefundApproved:     {PriorityHigh, "refund_tickets", defaultMaxEmailRetries},
	NotifRefundRejected:     {PriorityNormal, "refund_tickets", defaultMaxEmailRetries},
	NotifPayoutCompleted:    {PriorityNormal, "host_payouts", defaultMaxEmailRetries},
	NotifAccountSuspended:   {PriorityUrgent, "users", securityMaxEmailRetries},
}

// NotificationMetaFor returns the delivery policy for a notification type.
// The second result is false for types outside the closed set.
func NotificationMetaFor(notifType string) (NotificationMeta, bool) {
	meta, ok := notificationMeta[notifType]
	return meta, ok
}

// EmailDeliverable reports whether the delivery worker may pick this
// notification up at the given instant: not yet delivered, retries left,
// and any scheduled backoff elapsed.
func (n *Notification) EmailDeliverable(now time.Time) bool {
	if n.EmailSent || n.EmailRetryCount >= n.MaxEmailRetries {
		return false
	}
	return n.NextEmailRetryAt == nil || !n.NextEmailRetryAt.After(now)
}

// EmailDeliveryBefore orders the delivery queue: higher priority first,
// oldest first within a priority band.
func EmailDeliveryBefore(a, b *Notification) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
