package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"qbooking/internal/audit"
	apperrors "qbooking/internal/errors"
	"qbooking/internal/logger"
	"qbooking/internal/metrics"
	"qbooking/internal/models"
)

// RefundBookingStore is the booking access the refund workflow needs
type RefundBookingStore interface {
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetForCustomer(ctx context.Context, id, customerID int64) (*models.Booking, error)
}

// RefundStore persists the refund aggregate
type RefundStore interface {
	CreateTicket(ctx context.Context, ticket *models.RefundTicket) error
	GetTicketByID(ctx context.Context, id int64) (*models.RefundTicket, error)
	HasPendingTicket(ctx context.Context, bookingID int64) (bool, error)
	CancelTicket(ctx context.Context, id, customerID int64) (bool, error)
	UpdateTicketStatus(ctx context.Context, id int64, status, adminNote string, adminID int64) (bool, error)
	Approve(ctx context.Context, ticketID, approverID int64, reference string) (*models.Refund, error)
	ListTicketsByCustomer(ctx context.Context, customerID int64) ([]models.RefundTicket, error)
	ListTicketsByStatus(ctx context.Context, status string) ([]models.RefundTicket, error)
	Stats(ctx context.Context) (*models.RefundStats, error)
	GetRefundByTicket(ctx context.Context, ticketID int64) (*models.Refund, error)
}

// RefundService validates refund eligibility and drives tickets through
// their one-way state machine. Approval and the compensating booking
// cancellation are atomic.
type RefundService struct {
	refunds  RefundStore
	bookings RefundBookingStore
	audit    audit.Sink
	notifier Notifier
}

func NewRefundService(refunds RefundStore, bookings RefundBookingStore, auditSink audit.Sink, notifier Notifier) *RefundService {
	return &RefundService{
		refunds:  refunds,
		bookings: bookings,
		audit:    auditSink,
		notifier: notifier,
	}
}

// CreateTicket opens a refund request for a paid booking
func (s *RefundService) CreateTicket(ctx context.Context, customerID int64, req *models.CreateRefundTicketRequest) (*models.RefundTicket, error) {
	booking, err := s.bookings.GetForCustomer(ctx, req.BookingID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %d: %w", req.BookingID, err)
	}
	if booking == nil {
		return nil, apperrors.NotFoundf("booking %d for customer %d", req.BookingID, customerID)
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, apperrors.InvalidStatef("booking %d is already cancelled", booking.ID)
	}
	if booking.PaymentStatus != models.PaymentStatusPaid {
		return nil, apperrors.InvalidStatef("booking %d is not paid", booking.ID)
	}
	if req.RequestedAmount <= 0 || req.RequestedAmount > booking.TotalAmount {
		return nil, apperrors.Validationf("requested amount %d is outside (0, %d]", req.RequestedAmount, booking.TotalAmount)
	}

	pending, err := s.refunds.HasPendingTicket(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending tickets: %w", err)
	}
	if pending {
		return nil, apperrors.Conflictf("booking %d already has a pending refund ticket", booking.ID)
	}

	ticket := &models.RefundTicket{
		BookingID:       booking.ID,
		CustomerID:      customerID,
		RequestedAmount: req.RequestedAmount,
		Status:          models.TicketStatusPending,
	}
	if req.Reason != "" {
		ticket.Reason = &req.Reason
	}
	if req.BankName != "" {
		ticket.BankName = &req.BankName
	}
	if req.BankAccountNumber != "" {
		ticket.BankAccountNumber = &req.BankAccountNumber
	}
	if req.BankAccountHolder != "" {
		ticket.BankAccountHolder = &req.BankAccountHolder
	}

	if err := s.refunds.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create refund ticket: %w", err)
	}

	newValues, _ := json.Marshal(ticket)
	s.audit.RecordAction(ctx, "INSERT", "refund_tickets", ticket.ID, "", string(newValues))

	title := "Refund request received"
	message := fmt.Sprintf("Your refund request for booking %s (%d VND) is being reviewed.",
		booking.BookingCode, ticket.RequestedAmount)
	if _, err := s.notifier.Enqueue(ctx, customerID, models.NotifRefundTicketCreate, title, message); err != nil {
		logger.WithContext(ctx).Error("Failed to enqueue ticket notification",
			"error", err, "ticket_id", ticket.ID)
	}

	return ticket, nil
}

// CancelTicket lets the owning customer withdraw a still-pending request
func (s *RefundService) CancelTicket(ctx context.Context, ticketID, customerID int64) error {
	ticket, err := s.refunds.GetTicketByID(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to load refund ticket %d: %w", ticketID, err)
	}
	if ticket == nil || ticket.CustomerID != customerID {
		return apperrors.NotFoundf("refund ticket %d for customer %d", ticketID, customerID)
	}

	cancelled, err := s.refunds.CancelTicket(ctx, ticketID, customerID)
	if err != nil {
		return fmt.Errorf("failed to cancel refund ticket %d: %w", ticketID, err)
	}
	if !cancelled {
		return apperrors.InvalidStatef("refund ticket %d is %s, only pending tickets can be cancelled", ticketID, ticket.Status)
	}

	s.audit.RecordAction(ctx, "UPDATE", "refund_tickets", ticketID,
		fmt.Sprintf(`{"status":%q}`, ticket.Status),
		fmt.Sprintf(`{"status":%q}`, models.TicketStatusCancelled))
	return nil
}

// ProcessRefund approves the ticket, executes the refund and cancels the
// booking in one transaction; none of the three happens without the
// others. Post-commit notifications and audit entries are best effort.
func (s *RefundService) ProcessRefund(ctx context.Context, ticketID, approverID int64) (*models.Refund, error) {
	ticket, err := s.refunds.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load refund ticket %d: %w", ticketID, err)
	}
	if ticket == nil {
		return nil, apperrors.NotFoundf("refund ticket %d", ticketID)
	}

	booking, err := s.bookings.GetByID(ctx, ticket.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %d: %w", ticket.BookingID, err)
	}
	if booking == nil {
		return nil, apperrors.NotFoundf("booking %d", ticket.BookingID)
	}

	reference := uuid.New().String()
	refund, err := s.refunds.Approve(ctx, ticketID, approverID, reference)
	if err != nil {
		metrics.RefundsProcessed.WithLabelValues("failed").Inc()
		s.audit.RecordAction(ctx, "REFUND_PROCESS_FAILED", "refund_tickets", ticketID,
			fmt.Sprintf(`{"status":%q}`, ticket.Status), err.Error())
		return nil, err
	}
	metrics.RefundsProcessed.WithLabelValues("approved").Inc()

	s.audit.RecordAction(ctx, "UPDATE", "refund_tickets", ticketID,
		fmt.Sprintf(`{"status":%q}`, ticket.Status),
		fmt.Sprintf(`{"status":%q,"approved_by":%d}`, models.TicketStatusApproved, approverID))
	s.audit.RecordAction(ctx, "UPDATE", "bookings", booking.ID,
		fmt.Sprintf(`{"status":%q}`, booking.Status),
		fmt.Sprintf(`{"status":%q}`, models.BookingStatusCancelled))
	s.audit.RecordAction(ctx, "REFUND_PROCESSED", "refunds", refund.ID, "",
		fmt.Sprintf(`{"ticket_id":%d,"booking_id":%d,"amount":%d,"reference":%q}`,
			ticketID, booking.ID, refund.Amount, reference))

	if booking.CustomerID != nil {
		title := "Booking cancelled"
		message := fmt.Sprintf("Booking %s was cancelled following your refund request.", booking.BookingCode)
		if _, err := s.notifier.Enqueue(ctx, *booking.CustomerID, models.NotifBookingCancelled, title, message); err != nil {
			logger.WithContext(ctx).Error("Failed to enqueue cancellation notification",
				"error", err, "booking_id", booking.ID)
		}
	}

	title := "Refund approved"
	message := fmt.Sprintf("Your refund of %d VND for booking %s was approved (reference %s).",
		refund.Amount, booking.BookingCode, reference)
	if _, err := s.notifier.Enqueue(ctx, ticket.CustomerID, models.NotifRefundApproved, title, message); err != nil {
		logger.WithContext(ctx).Error("Failed to enqueue refund notification",
			"error", err, "ticket_id", ticketID)
	}

	return refund, nil
}

// UpdateTicketStatus is the administrative override path (direct
// rejection or cancellation). It never touches the booking; approvals
// must go through ProcessRefund so the refund row and the compensating
// cancellation stay atomic.
func (s *RefundService) UpdateTicketStatus(ctx context.Context, ticketID int64, status, adminNote string, adminID int64) error {
	if status != models.TicketStatusRejected && status != models.TicketStatusCancelled {
		return apperrors.Validationf("status %q is not an administrative override, use the refund processing path for approvals", status)
	}

	ticket, err := s.refunds.GetTicketByID(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to load refund ticket %d: %w", ticketID, err)
	}
	if ticket == nil {
		return apperrors.NotFoundf("refund ticket %d", ticketID)
	}

	updated, err := s.refunds.UpdateTicketStatus(ctx, ticketID, status, adminNote, adminID)
	if err != nil {
		return fmt.Errorf("failed to update refund ticket %d: %w", ticketID, err)
	}
	if !updated {
		return apperrors.InvalidStatef("refund ticket %d is %s, only pending tickets can be updated", ticketID, ticket.Status)
	}

	s.audit.RecordAction(ctx, "UPDATE", "refund_tickets", ticketID,
		fmt.Sprintf(`{"status":%q}`, ticket.Status),
		fmt.Sprintf(`{"status":%q,"updated_by":%d}`, status, adminID))

	if status == models.TicketStatusRejected {
		title := "Refund request rejected"
		message := fmt.Sprintf("Your refund request #%d was rejected. %s", ticketID, adminNote)
		if _, err := s.notifier.Enqueue(ctx, ticket.CustomerID, models.NotifRefundRejected, title, message); err != nil {
			logger.WithContext(ctx).Error("Failed to enqueue rejection notification",
				"error", err, "ticket_id", ticketID)
		}
	}

	return nil
}

// GetTicket returns the ticket when it belongs to the customer
func (s *RefundService) GetTicket(ctx context.Context, ticketID, customerID int64) (*models.RefundTicket, error) {
	ticket, err := s.refunds.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load refund ticket %d: %w", ticketID, err)
	}
	if ticket == nil || ticket.CustomerID != customerID {
		return nil, apperrors.NotFoundf("refund ticket %d for customer %d", ticketID, customerID)
	}
	return ticket, nil
}

// AdminGetTicket returns any ticket with its executed refund, if one
// exists yet.
func (s *RefundService) AdminGetTicket(ctx context.Context, ticketID int64) (*models.RefundTicket, *models.Refund, error) {
	ticket, err := s.refunds.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load refund ticket %d: %w", ticketID, err)
	}
	if ticket == nil {
		return nil, nil, apperrors.NotFoundf("refund ticket %d", ticketID)
	}

	refund, err := s.refunds.GetRefundByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load refund for ticket %d: %w", ticketID, err)
	}
	return ticket, refund, nil
}

// ListForCustomer is a side-effect-free projection; errors are logged and
// an empty result returned.
func (s *RefundService) ListForCustomer(ctx context.Context, customerID int64) []models.RefundTicket {
	tickets, err := s.refunds.ListTicketsByCustomer(ctx, customerID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to list refund tickets", "error", err, "customer_id", customerID)
		return nil
	}
	return tickets
}

// ListByStatus is the admin listing ("" for all statuses)
func (s *RefundService) ListByStatus(ctx context.Context, status string) []models.RefundTicket {
	tickets, err := s.refunds.ListTicketsByStatus(ctx, status)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to list refund tickets", "error", err, "status", status)
		return nil
	}
	return tickets
}

// Stats aggregates ticket counts and refunded totals; zero-valued on error
func (s *RefundService) Stats(ctx context.Context) *models.RefundStats {
	stats, err := s.refunds.Stats(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to aggregate refund stats", "error", err)
		return &models.RefundStats{}
	}
	return stats
}
