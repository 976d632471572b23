package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "qbooking/internal/errors"
	"qbooking/internal/models"
)

type fakeRefundBookingStore struct {
	booking *models.Booking
}

func (s *fakeRefundBookingStore) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	if s.booking == nil || s.booking.ID != id {
		return nil, nil
	}
	return s.booking, nil
}

func (s *fakeRefundBookingStore) GetForCustomer(ctx context.Context, id, customerID int64) (*models.Booking, error) {
	b, err := s.GetByID(ctx, id)
	if err != nil || b == nil {
		return nil, err
	}
	if b.CustomerID == nil || *b.CustomerID != customerID {
		return nil, nil
	}
	return b, nil
}

type fakeRefundStore struct {
	tickets  map[int64]*models.RefundTicket
	refunds  map[int64]*models.Refund // keyed by ticket id
	booking  *models.Booking          // shared with the booking store for Approve
	nextID   int64
	statsErr error
}

func (s *fakeRefundStore) CreateTicket(ctx context.Context, ticket *models.RefundTicket) error {
	s.nextID++
	ticket.ID = s.nextID
	s.tickets[ticket.ID] = ticket
	return nil
}

func (s *fakeRefundStore) GetTicketByID(ctx context.Context, id int64) (*models.RefundTicket, error) {
	return s.tickets[id], nil
}

func (s *fakeRefundStore) HasPendingTicket(ctx context.Context, bookingID int64) (bool, error) {
	for _, t := range s.tickets {
		if t.BookingID == bookingID && t.Status == models.TicketStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeRefundStore) CancelTicket(ctx context.Context, id, customerID int64) (bool, error) {
	t := s.tickets[id]
	if t == nil || t.CustomerID != customerID || t.Status != models.TicketStatusPending {
		return false, nil
	}
	t.Status = models.TicketStatusCancelled
	return true, nil
}

func (s *fakeRefundStore) UpdateTicketStatus(ctx context.Context, id int64, status, adminNote string, adminID int64) (bool, error) {
	t := s.tickets[id]
	if t == nil || t.Status != models.TicketStatusPending {
		return false, nil
	}
	t.Status = status
	return true, nil
}

func (s *fakeRefundStore) Approve(ctx context.Context, ticketID, approverID int64, reference string) (*models.Refund, error) {
	t := s.tickets[ticketID]
	if t == nil {
		return nil, apperrors.NotFoundf("refund ticket %d", ticketID)
	}
	if t.Status != models.TicketStatusPending {
		return nil, apperrors.InvalidStatef("refund ticket %d is %s", ticketID, t.Status)
	}
	if s.booking.Status == models.BookingStatusCancelled || s.booking.Status == models.BookingStatusCompleted {
		return nil, apperrors.InvalidStatef("booking %d is %s", s.booking.ID, s.booking.Status)
	}

	t.Status = models.TicketStatusApproved
	s.booking.Status = models.BookingStatusCancelled

	refund := &models.Refund{
		ID:             int64(len(s.refunds) + 1),
		RefundTicketID: ticketID,
		BookingID:      t.BookingID,
		Amount:         t.RequestedAmount,
		Reference:      reference,
		RefundedBy:     &approverID,
	}
	s.refunds[ticketID] = refund
	return refund, nil
}

func (s *fakeRefundStore) ListTicketsByCustomer(ctx context.Context, customerID int64) ([]models.RefundTicket, error) {
	var out []models.RefundTicket
	for _, t := range s.tickets {
		if t.CustomerID == customerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeRefundStore) ListTicketsByStatus(ctx context.Context, status string) ([]models.RefundTicket, error) {
	var out []models.RefundTicket
	for _, t := range s.tickets {
		if status == "" || t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeRefundStore) GetRefundByTicket(ctx context.Context, ticketID int64) (*models.Refund, error) {
	return s.refunds[ticketID], nil
}

func (s *fakeRefundStore) Stats(ctx context.Context) (*models.RefundStats, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	stats := &models.RefundStats{}
	for _, t := range s.tickets {
		switch t.Status {
		case models.TicketStatusPending:
			stats.PendingCount++
		case models.TicketStatusApproved:
			stats.ApprovedCount++
		case models.TicketStatusRejected:
			stats.RejectedCount++
		case models.TicketStatusCancelled:
			stats.CancelledCount++
		}
	}
	for _, r := range s.refunds {
		stats.TotalRefunded += r.Amount
	}
	return stats, nil
}

func newRefundFixture(booking *models.Booking) (*RefundService, *fakeRefundStore, *recordingNotifier, *recordingAudit) {
	bookings := &fakeRefundBookingStore{booking: booking}
	store := &fakeRefundStore{
		tickets: map[int64]*models.RefundTicket{},
		refunds: map[int64]*models.Refund{},
		booking: booking,
	}
	notifier := &recordingNotifier{}
	auditSink := &recordingAudit{}
	svc := NewRefundService(store, bookings, auditSink, notifier)
	return svc, store, notifier, auditSink
}

func refundRequest() *models.CreateRefundTicketRequest {
	return &models.CreateRefundTicketRequest{
		BookingID:       1,
		RequestedAmount: 2500000,
		Reason:          "trip cancelled",
		BankName:        "VCB",
	}
}

func TestCreateRefundTicket(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, notifier, auditSink := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusPending, ticket.Status)
	assert.Equal(t, int64(2500000), ticket.RequestedAmount)
	require.NotNil(t, ticket.Reason)
	assert.Equal(t, "trip cancelled", *ticket.Reason)

	require.Len(t, notifier.entries, 1)
	assert.Equal(t, models.NotifRefundTicketCreate, notifier.entries[0].notifType)
	require.Len(t, auditSink.actions, 1)
	assert.Equal(t, "refund_tickets", auditSink.actions[0].tableName)
}

func TestCreateRefundTicketNotOwned(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, _, _ := newRefundFixture(booking)

	_, err := svc.CreateTicket(context.Background(), 999, refundRequest())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestCreateRefundTicketCancelledBooking(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	booking.Status = models.BookingStatusCancelled
	svc, _, _, _ := newRefundFixture(booking)

	_, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestCreateRefundTicketUnpaidBooking(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	booking.PaymentStatus = models.PaymentStatusUnpaid
	svc, _, _, _ := newRefundFixture(booking)

	_, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestCreateRefundTicketExcessiveAmount(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, _, _ := newRefundFixture(booking)

	req := refundRequest()
	req.RequestedAmount = 2500001
	_, err := svc.CreateTicket(context.Background(), 100, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestCreateRefundTicketDuplicatePending(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, _, _ := newRefundFixture(booking)

	_, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	_, err = svc.CreateTicket(context.Background(), 100, refundRequest())
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestProcessRefundApprovesAndCancelsBooking(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, store, notifier, _ := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	refund, err := svc.ProcessRefund(context.Background(), ticket.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2500000), refund.Amount)
	assert.NotEmpty(t, refund.Reference)
	assert.Equal(t, models.TicketStatusApproved, store.tickets[ticket.ID].Status)
	assert.Equal(t, models.BookingStatusCancelled, booking.Status)

	// ticket-created, booking-cancelled, refund-approved
	require.Len(t, notifier.entries, 3)
	assert.Equal(t, models.NotifBookingCancelled, notifier.entries[1].notifType)
	assert.Equal(t, models.NotifRefundApproved, notifier.entries[2].notifType)
}

func TestProcessRefundTwiceFails(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, store, _, _ := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	_, err = svc.ProcessRefund(context.Background(), ticket.ID, 7)
	require.NoError(t, err)

	_, err = svc.ProcessRefund(context.Background(), ticket.ID, 7)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
	assert.Len(t, store.refunds, 1)
}

func TestProcessRefundCompletedBooking(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, _, auditSink := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	booking.Status = models.BookingStatusCompleted

	_, err = svc.ProcessRefund(context.Background(), ticket.ID, 7)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))

	var failed bool
	for _, a := range auditSink.actions {
		if a.actionType == "REFUND_PROCESS_FAILED" {
			failed = true
		}
	}
	assert.True(t, failed)
}

func TestCancelRefundTicket(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, store, _, _ := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	require.NoError(t, svc.CancelTicket(context.Background(), ticket.ID, 100))
	assert.Equal(t, models.TicketStatusCancelled, store.tickets[ticket.ID].Status)

	// Already cancelled
	err = svc.CancelTicket(context.Background(), ticket.ID, 100)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestCancelRefundTicketWrongCustomer(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, _, _ := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	err = svc.CancelTicket(context.Background(), ticket.ID, 999)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestUpdateTicketStatusRejects(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, store, notifier, _ := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTicketStatus(context.Background(), ticket.ID, models.TicketStatusRejected, "out of policy", 7))
	assert.Equal(t, models.TicketStatusRejected, store.tickets[ticket.ID].Status)

	// Booking is untouched by rejection
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)

	require.Len(t, notifier.entries, 2)
	assert.Equal(t, models.NotifRefundRejected, notifier.entries[1].notifType)
}

func TestUpdateTicketStatusCannotApprove(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, _, _ := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	err = svc.UpdateTicketStatus(context.Background(), ticket.ID, models.TicketStatusApproved, "", 7)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestAdminGetTicket(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, _, _ := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)

	// Pending ticket, no refund executed yet
	got, refund, err := svc.AdminGetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
	assert.Nil(t, refund)

	_, err = svc.ProcessRefund(context.Background(), ticket.ID, 7)
	require.NoError(t, err)

	_, refund, err = svc.AdminGetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, refund)
	assert.Equal(t, ticket.ID, refund.RefundTicketID)

	_, _, err = svc.AdminGetTicket(context.Background(), 999)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRefundStats(t *testing.T) {
	booking := paidConfirmedBooking(1, "BK20250101", 2500000)
	svc, _, _, _ := newRefundFixture(booking)

	ticket, err := svc.CreateTicket(context.Background(), 100, refundRequest())
	require.NoError(t, err)
	_, err = svc.ProcessRefund(context.Background(), ticket.ID, 7)
	require.NoError(t, err)

	stats := svc.Stats(context.Background())
	assert.Equal(t, 1, stats.ApprovedCount)
	assert.Equal(t, int64(2500000), stats.TotalRefunded)
}
