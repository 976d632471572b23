package repository

import (
	"qbooking/internal/database"
)

type Repositories struct {
	Users         *UserRepository
	Bookings      *BookingRepository
	Payments      *PaymentRepository
	Earnings      *EarningRepository
	Payouts       *PayoutRepository
	Refunds       *RefundRepository
	Notifications *NotificationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Bookings:      NewBookingRepository(db),
		Payments:      NewPaymentRepository(db),
		Earnings:      NewEarningRepository(db),
		Payouts:       NewPayoutRepository(db),
		Refunds:       NewRefundRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}
