package service

import (
	"qbooking/internal/audit"
	"qbooking/internal/push"
	"qbooking/internal/repository"
)

type Services struct {
	Payments      *PaymentService
	Earnings      *EarningService
	Payouts       *PayoutService
	Refunds       *RefundService
	Notifications *NotificationService
}

func NewServices(repos *repository.Repositories, auditSink audit.Sink, pushChannel push.Channel, bookingCodePrefix string) *Services {
	notificationService := NewNotificationService(repos.Notifications, pushChannel)
	paymentService := NewPaymentService(repos.Payments, repos.Bookings, notificationService, bookingCodePrefix)
	earningService := NewEarningService(repos.Earnings, repos.Bookings, auditSink)
	payoutService := NewPayoutService(repos.Payouts, auditSink, notificationService)
	refundService := NewRefundService(repos.Refunds, repos.Bookings, auditSink, notificationService)

	return &Services{
		Payments:      paymentService,
		Earnings:      earningService,
		Payouts:       payoutService,
		Refunds:       refundService,
		Notifications: notificationService,
	}
}
