package service

import (
	"context"
	"fmt"
	"time"

	"qbooking/internal/audit"
	apperrors "qbooking/internal/errors"
	"qbooking/internal/logger"
	"qbooking/internal/metrics"
	"qbooking/internal/models"
)

// PayoutStore persists payout batches and their member earnings
type PayoutStore interface {
	CreateBatch(ctx context.Context, hostID int64, periodStart, periodEnd time.Time) (*models.HostPayout, error)
	GetByID(ctx context.Context, id int64) (*models.HostPayout, error)
	MarkProcessing(ctx context.Context, id int64, reference, notes string, adminID int64) (bool, error)
	CompleteWithEarnings(ctx context.Context, id int64) (bool, error)
	CancelAndRelease(ctx context.Context, id int64) (bool, error)
	ListByHost(ctx context.Context, hostID int64) ([]models.HostPayout, error)
}

// PayoutService drives payout batches through
// pending -> processing -> completed, with cancellation as the escape
// hatch from the two non-terminal states.
type PayoutService struct {
	payouts  PayoutStore
	audit    audit.Sink
	notifier Notifier
}

func NewPayoutService(payouts PayoutStore, auditSink audit.Sink, notifier Notifier) *PayoutService {
	return &PayoutService{
		payouts:  payouts,
		audit:    auditSink,
		notifier: notifier,
	}
}

// CreateBatch freezes the host's approved, unbatched earnings in the
// period into a new payout. An empty selection creates nothing and is not
// an error.
func (s *PayoutService) CreateBatch(ctx context.Context, hostID int64, periodStart, periodEnd time.Time, adminID int64) (*models.HostPayout, error) {
	if periodEnd.Before(periodStart) {
		return nil, apperrors.Validationf("period end %s is before period start %s",
			periodEnd.Format("2006-01-02"), periodStart.Format("2006-01-02"))
	}

	payout, err := s.payouts.CreateBatch(ctx, hostID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout batch: %w", err)
	}
	if payout == nil {
		return nil, nil
	}

	metrics.PayoutTransitions.WithLabelValues(models.PayoutStatusPending).Inc()
	s.audit.RecordAction(ctx, "CREATE", "host_payouts", payout.ID, "",
		fmt.Sprintf(`{"status":%q,"net_payout_amount":%d,"booking_count":%d,"created_by":%d}`,
			payout.Status, payout.NetPayoutAmount, payout.BookingCount, adminID))

	return payout, nil
}

// Process records that the bank transfer is underway
func (s *PayoutService) Process(ctx context.Context, id int64, reference, notes string, adminID int64) error {
	payout, err := s.getPayout(ctx, id)
	if err != nil {
		return err
	}

	processed, err := s.payouts.MarkProcessing(ctx, id, reference, notes, adminID)
	if err != nil {
		return fmt.Errorf("failed to process payout %d: %w", id, err)
	}
	if !processed {
		return apperrors.InvalidStatef("payout %d is %s, only pending payouts can be processed", id, payout.Status)
	}

	metrics.PayoutTransitions.WithLabelValues(models.PayoutStatusProcessing).Inc()
	s.recordTransition(ctx, id, payout.Status, models.PayoutStatusProcessing, adminID)
	return nil
}

// Complete finishes the payout and cascades every member earning to paid
func (s *PayoutService) Complete(ctx context.Context, id, adminID int64) error {
	payout, err := s.getPayout(ctx, id)
	if err != nil {
		return err
	}

	completed, err := s.payouts.CompleteWithEarnings(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to complete payout %d: %w", id, err)
	}
	if !completed {
		return apperrors.InvalidStatef("payout %d is %s, only processing payouts can be completed", id, payout.Status)
	}

	metrics.PayoutTransitions.WithLabelValues(models.PayoutStatusCompleted).Inc()
	s.recordTransition(ctx, id, payout.Status, models.PayoutStatusCompleted, adminID)

	title := "Payout completed"
	message := fmt.Sprintf("Your payout of %d VND for %d bookings has been transferred.",
		payout.NetPayoutAmount, payout.BookingCount)
	if _, err := s.notifier.Enqueue(ctx, payout.HostID, models.NotifPayoutCompleted, title, message); err != nil {
		logger.WithContext(ctx).Error("Failed to enqueue payout notification",
			"error", err, "payout_id", id, "host_id", payout.HostID)
	}

	return nil
}

// Cancel abandons the payout and releases its member earnings back into
// the unbatched pool.
func (s *PayoutService) Cancel(ctx context.Context, id, adminID int64) error {
	payout, err := s.getPayout(ctx, id)
	if err != nil {
		return err
	}

	cancelled, err := s.payouts.CancelAndRelease(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to cancel payout %d: %w", id, err)
	}
	if !cancelled {
		return apperrors.InvalidStatef("payout %d is %s and cannot be cancelled", id, payout.Status)
	}

	metrics.PayoutTransitions.WithLabelValues(models.PayoutStatusCancelled).Inc()
	s.recordTransition(ctx, id, payout.Status, models.PayoutStatusCancelled, adminID)
	return nil
}

// ListByHost is a side-effect-free projection; errors are logged and an
// empty result returned.
func (s *PayoutService) ListByHost(ctx context.Context, hostID int64) []models.HostPayout {
	payouts, err := s.payouts.ListByHost(ctx, hostID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to list payouts", "error", err, "host_id", hostID)
		return nil
	}
	return payouts
}

func (s *PayoutService) getPayout(ctx context.Context, id int64) (*models.HostPayout, error) {
	payout, err := s.payouts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payout %d: %w", id, err)
	}
	if payout == nil {
		return nil, apperrors.NotFoundf("payout %d", id)
	}
	return payout, nil
}

func (s *PayoutService) recordTransition(ctx context.Context, id int64, fromStatus, toStatus string, adminID int64) {
	s.audit.RecordAction(ctx, "UPDATE", "host_payouts", id,
		fmt.Sprintf(`{"status":%q}`, fromStatus),
		fmt.Sprintf(`{"status":%q,"changed_by":%d}`, toStatus, adminID))
}
