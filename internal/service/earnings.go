package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"qbooking/internal/audit"
	apperrors "qbooking/internal/errors"
	"qbooking/internal/models"
)

// Revenue split rates in basis points. These are system constants, not
// per-booking configuration; integer math keeps every split exact.
const (
	platformFeeBps = 1500
	taxBps         = 1000
	bpsDenominator = 10000
)

// EarningBookingStore is the booking access the earnings generator needs
type EarningBookingStore interface {
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	HostID(ctx context.Context, bookingID int64) (int64, error)
	MarkCompleted(ctx context.Context, id int64) (bool, error)
}

// EarningStore persists derived earnings
type EarningStore interface {
	Create(ctx context.Context, earning *models.HostEarning) error
	GetByID(ctx context.Context, id int64) (*models.HostEarning, error)
	Decide(ctx context.Context, id int64, status string) (bool, error)
	ListByPayout(ctx context.Context, payoutID int64) ([]models.HostEarning, error)
}

// EarningService derives a host's revenue split from a paid booking at
// checkout completion.
type EarningService struct {
	earnings EarningStore
	bookings EarningBookingStore
	audit    audit.Sink
}

func NewEarningService(earnings EarningStore, bookings EarningBookingStore, auditSink audit.Sink) *EarningService {
	return &EarningService{
		earnings: earnings,
		bookings: bookings,
		audit:    auditSink,
	}
}

// CompleteCheckout marks a confirmed booking completed and derives the
// host earning for it.
func (s *EarningService) CompleteCheckout(ctx context.Context, bookingID int64) (*models.HostEarning, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %d: %w", bookingID, err)
	}
	if booking == nil {
		return nil, apperrors.NotFoundf("booking %d", bookingID)
	}
	if booking.PaymentStatus != models.PaymentStatusPaid {
		return nil, apperrors.InvalidStatef("booking %d is not paid", bookingID)
	}

	completed, err := s.bookings.MarkCompleted(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete booking %d: %w", bookingID, err)
	}
	if !completed {
		return nil, apperrors.InvalidStatef("booking %d is %s, only confirmed bookings complete checkout", bookingID, booking.Status)
	}

	return s.DeriveEarning(ctx, booking)
}

// DeriveEarning splits the booking total into platform fee, tax and the
// host's net share. The host is the property owner at derivation time and
// is never re-resolved. A second derivation for the same booking is a
// conflict, not a silent duplicate.
func (s *EarningService) DeriveEarning(ctx context.Context, booking *models.Booking) (*models.HostEarning, error) {
	hostID, err := s.bookings.HostID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve host for booking %d: %w", booking.ID, err)
	}
	if hostID == 0 {
		return nil, apperrors.NotFoundf("booking %d has no resolvable host", booking.ID)
	}

	fee, tax, net := SplitAmount(booking.TotalAmount)
	earning := &models.HostEarning{
		BookingID:     booking.ID,
		HostID:        hostID,
		EarningAmount: booking.TotalAmount,
		PlatformFee:   fee,
		TaxAmount:     tax,
		NetAmount:     net,
		Status:        models.EarningStatusPending,
		EarnedDate:    time.Now(),
	}

	if err := s.earnings.Create(ctx, earning); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create earning for booking %d: %w", booking.ID, err)
	}

	newValues, _ := json.Marshal(earning)
	s.audit.RecordAction(ctx, "INSERT", "host_earnings", earning.ID, "", string(newValues))

	return earning, nil
}

// Approve releases a pending earning into the payout-eligible pool
func (s *EarningService) Approve(ctx context.Context, id, adminID int64) error {
	return s.decide(ctx, id, adminID, models.EarningStatusApproved)
}

// Reject terminally declines a pending earning
func (s *EarningService) Reject(ctx context.Context, id, adminID int64) error {
	return s.decide(ctx, id, adminID, models.EarningStatusRejected)
}

func (s *EarningService) decide(ctx context.Context, id, adminID int64, status string) error {
	earning, err := s.earnings.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load earning %d: %w", id, err)
	}
	if earning == nil {
		return apperrors.NotFoundf("earning %d", id)
	}

	decided, err := s.earnings.Decide(ctx, id, status)
	if err != nil {
		return fmt.Errorf("failed to update earning %d: %w", id, err)
	}
	if !decided {
		return apperrors.InvalidStatef("earning %d is %s, only pending earnings can be decided", id, earning.Status)
	}

	s.audit.RecordAction(ctx, "UPDATE", "host_earnings", id,
		fmt.Sprintf(`{"status":%q,"decided_by":%d}`, earning.Status, adminID),
		fmt.Sprintf(`{"status":%q,"decided_by":%d}`, status, adminID))
	return nil
}

// ListForPayout returns the member earnings frozen into a payout batch
func (s *EarningService) ListForPayout(ctx context.Context, payoutID int64) ([]models.HostEarning, error) {
	return s.earnings.ListByPayout(ctx, payoutID)
}

// SplitAmount applies the fixed fee/tax rates to a booking total.
// NetAmount always equals total minus fee minus tax, exactly.
func SplitAmount(total int64) (platformFee, taxAmount, netAmount int64) {
	platformFee = total * platformFeeBps / bpsDenominator
	taxAmount = total * taxBps / bpsDenominator
	netAmount = total - platformFee - taxAmount
	return platformFee, taxAmount, netAmount
}
