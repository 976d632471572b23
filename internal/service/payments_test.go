package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "qbooking/internal/errors"
	"qbooking/internal/models"
)

type fakePaymentBookingStore struct {
	bookings map[string]*models.Booking // keyed by code
	hosts    map[int64]int64            // booking id -> host id
}

func (s *fakePaymentBookingStore) GetByCodeAndAmount(ctx context.Context, code string, amount int64) (*models.Booking, error) {
	b, ok := s.bookings[code]
	if !ok || b.TotalAmount != amount {
		return nil, nil
	}
	return b, nil
}

func (s *fakePaymentBookingStore) HostID(ctx context.Context, bookingID int64) (int64, error) {
	return s.hosts[bookingID], nil
}

type fakePaymentStore struct {
	applied      map[string]*models.Payment // keyed by transaction id
	conflictOnce bool
	nextID       int64
}

func (s *fakePaymentStore) GetCompleted(ctx context.Context, bookingID int64, transactionID string) (*models.Payment, error) {
	p, ok := s.applied[transactionID]
	if !ok || p.BookingID != bookingID {
		return nil, nil
	}
	return p, nil
}

func (s *fakePaymentStore) ApplyCompleted(ctx context.Context, payment *models.Payment) error {
	if s.conflictOnce {
		s.conflictOnce = false
		s.applied[payment.TransactionID] = &models.Payment{
			ID:            777,
			BookingID:     payment.BookingID,
			TransactionID: payment.TransactionID,
			Amount:        payment.Amount,
		}
		return apperrors.Conflictf("payment already applied")
	}
	if _, ok := s.applied[payment.TransactionID]; ok {
		return apperrors.Conflictf("payment already applied")
	}
	s.nextID++
	payment.ID = s.nextID
	s.applied[payment.TransactionID] = payment
	return nil
}

func newPaymentFixture() (*PaymentService, *fakePaymentStore, *fakePaymentBookingStore, *recordingNotifier) {
	bookings := &fakePaymentBookingStore{
		bookings: map[string]*models.Booking{
			"BK20250101": paidConfirmedBooking(1, "BK20250101", 2500000),
		},
		hosts: map[int64]int64{1: 42},
	}
	payments := &fakePaymentStore{applied: map[string]*models.Payment{}}
	notifier := &recordingNotifier{}
	svc := NewPaymentService(payments, bookings, notifier, "BK")
	return svc, payments, bookings, notifier
}

func webhookPayload() *models.PaymentWebhookPayload {
	return &models.PaymentWebhookPayload{
		TransferType:    "in",
		Content:         "BK20250101 thanh toan dat phong",
		TransferAmount:  2500000,
		ReferenceCode:   "FT25001",
		TransactionDate: time.Now(),
		Gateway:         "VCB",
	}
}

func TestProcessPaymentEventApplies(t *testing.T) {
	svc, payments, _, notifier := newPaymentFixture()

	result, err := svc.ProcessPaymentEvent(context.Background(), webhookPayload())
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, int64(1), result.BookingID)
	assert.Equal(t, "BK20250101", result.BookingCode)
	assert.Equal(t, int64(2500000), result.Amount)

	applied := payments.applied["FT25001"]
	require.NotNil(t, applied)
	assert.Equal(t, "VCB", *applied.Gateway)

	// Guest confirmation plus host notification
	require.Len(t, notifier.entries, 2)
	assert.Equal(t, int64(100), notifier.entries[0].userID)
	assert.Equal(t, models.NotifBookingConfirmed, notifier.entries[0].notifType)
	assert.Equal(t, int64(42), notifier.entries[1].userID)
	assert.Equal(t, models.NotifHostBookingPaid, notifier.entries[1].notifType)
}

func TestProcessPaymentEventRedeliveryIsIdempotent(t *testing.T) {
	svc, payments, _, notifier := newPaymentFixture()

	first, err := svc.ProcessPaymentEvent(context.Background(), webhookPayload())
	require.NoError(t, err)

	second, err := svc.ProcessPaymentEvent(context.Background(), webhookPayload())
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.PaymentID, second.PaymentID)

	// No second payment row, no second round of notifications
	assert.Len(t, payments.applied, 1)
	assert.Len(t, notifier.entries, 2)
}

func TestProcessPaymentEventConcurrentConflict(t *testing.T) {
	svc, payments, _, _ := newPaymentFixture()
	payments.conflictOnce = true

	result, err := svc.ProcessPaymentEvent(context.Background(), webhookPayload())
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, int64(777), result.PaymentID)
}

func TestProcessPaymentEventRejectsOutboundTransfer(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()

	payload := webhookPayload()
	payload.TransferType = "out"

	_, err := svc.ProcessPaymentEvent(context.Background(), payload)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestProcessPaymentEventRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()

	payload := webhookPayload()
	payload.TransferAmount = 0

	_, err := svc.ProcessPaymentEvent(context.Background(), payload)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestProcessPaymentEventNoCodeInContent(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()

	payload := webhookPayload()
	payload.Content = "chuyen tien khong ro noi dung"

	_, err := svc.ProcessPaymentEvent(context.Background(), payload)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestProcessPaymentEventAmountMismatch(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()

	payload := webhookPayload()
	payload.TransferAmount = 2500001

	_, err := svc.ProcessPaymentEvent(context.Background(), payload)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestExtractBookingCode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		found   bool
	}{
		{"leading token", "BK20250101 thanh toan", "BK20250101", true},
		{"embedded token", "thanh toan BK20250101 phong 2", "BK20250101", true},
		{"code at end", "dat phong BK20250101", "BK20250101", true},
		{"glued prefix mid-word", "chuyenBK123 tien", "BK123", true},
		{"no code", "chuyen tien", "", false},
		{"empty content", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractBookingCode(tt.content, "BK")
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
