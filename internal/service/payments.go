package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	apperrors "qbooking/internal/errors"
	"qbooking/internal/logger"
	"qbooking/internal/metrics"
	"qbooking/internal/models"
)

// PaymentBookingStore is the booking access the ingestor needs
type PaymentBookingStore interface {
	GetByCodeAndAmount(ctx context.Context, code string, amount int64) (*models.Booking, error)
	HostID(ctx context.Context, bookingID int64) (int64, error)
}

// PaymentStore persists settled payments
type PaymentStore interface {
	GetCompleted(ctx context.Context, bookingID int64, transactionID string) (*models.Payment, error)
	ApplyCompleted(ctx context.Context, payment *models.Payment) error
}

// PaymentService applies inbound bank-gateway callbacks to bookings.
// Processing is idempotent per (booking, gateway reference).
type PaymentService struct {
	payments   PaymentStore
	bookings   PaymentBookingStore
	notifier   Notifier
	codePrefix string
}

func NewPaymentService(payments PaymentStore, bookings PaymentBookingStore, notifier Notifier, codePrefix string) *PaymentService {
	return &PaymentService{
		payments:   payments,
		bookings:   bookings,
		notifier:   notifier,
		codePrefix: codePrefix,
	}
}

// ProcessPaymentEvent validates and applies one webhook delivery. The
// transactional phase either fully applies (payment row + booking
// confirmation) or not at all; notification failures after commit are
// logged and swallowed.
func (s *PaymentService) ProcessPaymentEvent(ctx context.Context, payload *models.PaymentWebhookPayload) (*models.PaymentResult, error) {
	if payload.TransferType != "in" {
		metrics.PaymentsProcessed.WithLabelValues("rejected").Inc()
		return nil, apperrors.Validationf("transfer type %q is not processed, only inbound transfers settle bookings", payload.TransferType)
	}
	if payload.TransferAmount <= 0 {
		metrics.PaymentsProcessed.WithLabelValues("rejected").Inc()
		return nil, apperrors.Validationf("transfer amount must be positive, got %d", payload.TransferAmount)
	}

	code, ok := ExtractBookingCode(payload.Content, s.codePrefix)
	if !ok {
		metrics.PaymentsProcessed.WithLabelValues("code_not_found").Inc()
		return nil, apperrors.NotFoundf("no booking code in transfer content")
	}

	booking, err := s.bookings.GetByCodeAndAmount(ctx, code, payload.TransferAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking %s: %w", code, err)
	}
	if booking == nil {
		metrics.PaymentsProcessed.WithLabelValues("booking_mismatch").Inc()
		return nil, apperrors.NotFoundf("no booking matches code %s with amount %d", code, payload.TransferAmount)
	}

	// Idempotency: a redelivered webhook returns the already-applied
	// payment without new rows or side effects.
	existing, err := s.payments.GetCompleted(ctx, booking.ID, payload.ReferenceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payment: %w", err)
	}
	if existing != nil {
		metrics.PaymentsProcessed.WithLabelValues("duplicate").Inc()
		return paymentResult(existing, booking, true), nil
	}

	payment := &models.Payment{
		BookingID:     booking.ID,
		TransactionID: payload.ReferenceCode,
		Amount:        payload.TransferAmount,
		PaidAt:        payload.TransactionDate,
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now()
	}
	if payload.Gateway != "" {
		payment.Gateway = &payload.Gateway
	}
	if payload.Content != "" {
		payment.Content = &payload.Content
	}

	if err := s.payments.ApplyCompleted(ctx, payment); err != nil {
		// A concurrent delivery won the unique key race; treat ours as
		// the duplicate it is.
		if apperrors.Is(err, apperrors.ErrConflict) {
			applied, lookupErr := s.payments.GetCompleted(ctx, booking.ID, payload.ReferenceCode)
			if lookupErr == nil && applied != nil {
				metrics.PaymentsProcessed.WithLabelValues("duplicate").Inc()
				return paymentResult(applied, booking, true), nil
			}
		}
		metrics.PaymentsProcessed.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}

	metrics.PaymentsProcessed.WithLabelValues("applied").Inc()
	s.notifyPaymentApplied(ctx, booking)

	return paymentResult(payment, booking, false), nil
}

// notifyPaymentApplied enqueues the post-commit notifications. The payment
// is already committed; a notification failure must not undo it.
func (s *PaymentService) notifyPaymentApplied(ctx context.Context, booking *models.Booking) {
	if booking.CustomerID != nil {
		title := "Booking confirmed"
		message := fmt.Sprintf("Payment for booking %s was received. Your reservation is confirmed.", booking.BookingCode)
		if _, err := s.notifier.Enqueue(ctx, *booking.CustomerID, models.NotifBookingConfirmed, title, message); err != nil {
			logger.WithContext(ctx).Error("Failed to enqueue guest confirmation",
				"error", err, "booking_id", booking.ID)
		}
	}

	hostID, err := s.bookings.HostID(ctx, booking.ID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to resolve host for booking",
			"error", err, "booking_id", booking.ID)
		return
	}
	if hostID == 0 {
		return
	}

	title := "Booking paid"
	message := fmt.Sprintf("Booking %s was paid (%d VND).", booking.BookingCode, booking.TotalAmount)
	if _, err := s.notifier.Enqueue(ctx, hostID, models.NotifHostBookingPaid, title, message); err != nil {
		logger.WithContext(ctx).Error("Failed to enqueue host notification",
			"error", err, "booking_id", booking.ID, "host_id", hostID)
	}
}

func paymentResult(payment *models.Payment, booking *models.Booking, duplicate bool) *models.PaymentResult {
	return &models.PaymentResult{
		PaymentID:   payment.ID,
		BookingID:   booking.ID,
		BookingCode: booking.BookingCode,
		Amount:      payment.Amount,
		Duplicate:   duplicate,
	}
}

// ExtractBookingCode pulls the booking code out of bank-transfer memo
// text: the first whitespace-delimited token if it carries the prefix,
// otherwise the token starting at the first occurrence of the prefix.
func ExtractBookingCode(content, prefix string) (string, bool) {
	fields := strings.Fields(content)
	if len(fields) > 0 && strings.HasPrefix(fields[0], prefix) {
		return fields[0], true
	}

	idx := strings.Index(content, prefix)
	if idx < 0 {
		return "", false
	}

	end := idx
	for end < len(content) && !unicode.IsSpace(rune(content[end])) {
		end++
	}
	return content[idx:end], true
}
