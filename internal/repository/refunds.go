package repository

import (
	"context"
	"database/sql"

	"qbooking/internal/database"
	apperrors "qbooking/internal/errors"
	"qbooking/internal/models"
)

// RefundRepository owns the refund aggregate: tickets plus executed refunds
type RefundRepository struct {
	db *database.DB
}

func NewRefundRepository(db *database.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

const ticketColumns = `
	id, booking_id, customer_id, requested_amount, reason, bank_name,
	bank_account_number, bank_account_holder, status, admin_note,
	processed_by, processed_at, created_at, updated_at`

func scanTicketRow(scan func(dest ...any) error) (*models.RefundTicket, error) {
	ticket := &models.RefundTicket{}
	err := scan(
		&ticket.ID,
		&ticket.BookingID,
		&ticket.CustomerID,
		&ticket.RequestedAmount,
		&ticket.Reason,
		&ticket.BankName,
		&ticket.BankAccountNumber,
		&ticket.BankAccountHolder,
		&ticket.Status,
		&ticket.AdminNote,
		&ticket.ProcessedBy,
		&ticket.ProcessedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	return ticket, err
}

func (r *RefundRepository) CreateTicket(ctx context.Context, ticket *models.RefundTicket) error {
	query := `
		INSERT INTO refund_tickets (booking_id, customer_id, requested_amount, reason,
		                            bank_name, bank_account_number, bank_account_holder, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		ticket.BookingID,
		ticket.CustomerID,
		ticket.RequestedAmount,
		ticket.Reason,
		ticket.BankName,
		ticket.BankAccountNumber,
		ticket.BankAccountHolder,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *RefundRepository) GetTicketByID(ctx context.Context, id int64) (*models.RefundTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM refund_tickets WHERE id = $1`
	ticket, err := scanTicketRow(r.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ticket, err
}

// HasPendingTicket reports whether the booking already has an open ticket
func (r *RefundRepository) HasPendingTicket(ctx context.Context, bookingID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM refund_tickets WHERE booking_id = $1 AND status = $2)`
	err := r.db.QueryRowContext(ctx, query, bookingID, models.TicketStatusPending).Scan(&exists)
	return exists, err
}

// CancelTicket lets the owning customer withdraw a pending ticket.
// Returns false when the ticket is not pending or not theirs.
func (r *RefundRepository) CancelTicket(ctx context.Context, id, customerID int64) (bool, error) {
	query := `
		UPDATE refund_tickets
		SET status = $1, processed_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND customer_id = $3 AND status = $4`

	res, err := r.db.ExecContext(ctx, query, models.TicketStatusCancelled, id, customerID, models.TicketStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// UpdateTicketStatus is the administrative override path. It stamps the
// processing fields but never touches the booking. Returns false when the
// ticket was not pending.
func (r *RefundRepository) UpdateTicketStatus(ctx context.Context, id int64, status, adminNote string, adminID int64) (bool, error) {
	query := `
		UPDATE refund_tickets
		SET status = $1, admin_note = $2, processed_by = $3, processed_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND status = $5`

	res, err := r.db.ExecContext(ctx, query, status, adminNote, adminID, id, models.TicketStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// Approve executes the refund in a single transaction: the ticket must
// still be pending and the booking must still be refundable; the Refund
// row is inserted, the ticket approved and the booking cancelled. One
// cannot happen without the others.
func (r *RefundRepository) Approve(ctx context.Context, ticketID int64, approverID int64, reference string) (*models.Refund, error) {
	var refund *models.Refund

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var (
			bookingID    int64
			ticketStatus string
			amount       int64
		)
		lockTicket := `
			SELECT booking_id, status, requested_amount
			FROM refund_tickets
			WHERE id = $1
			FOR UPDATE`

		err := tx.QueryRowContext(ctx, lockTicket, ticketID).Scan(&bookingID, &ticketStatus, &amount)
		if err == sql.ErrNoRows {
			return apperrors.NotFoundf("refund ticket %d", ticketID)
		}
		if err != nil {
			return err
		}
		if ticketStatus != models.TicketStatusPending {
			return apperrors.InvalidStatef("refund ticket %d is %s, not pending", ticketID, ticketStatus)
		}

		var bookingStatus string
		lockBooking := `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, lockBooking, bookingID).Scan(&bookingStatus); err != nil {
			return err
		}
		if bookingStatus == models.BookingStatusCancelled || bookingStatus == models.BookingStatusCompleted {
			return apperrors.InvalidStatef("booking %d is %s and cannot be refunded", bookingID, bookingStatus)
		}

		created := &models.Refund{}
		insert := `
			INSERT INTO refunds (refund_ticket_id, booking_id, amount, reference, refunded_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`

		err = tx.QueryRowContext(ctx, insert, ticketID, bookingID, amount, reference, approverID).
			Scan(&created.ID, &created.CreatedAt)
		if err != nil {
			return err
		}
		created.RefundTicketID = ticketID
		created.BookingID = bookingID
		created.Amount = amount
		created.Reference = reference
		created.RefundedBy = &approverID

		approve := `
			UPDATE refund_tickets
			SET status = $1, processed_by = $2, processed_at = NOW(), updated_at = NOW()
			WHERE id = $3`
		if _, err := tx.ExecContext(ctx, approve, models.TicketStatusApproved, approverID, ticketID); err != nil {
			return err
		}

		cancelBooking := `
			UPDATE bookings
			SET status = $1, cancelled_at = NOW(), updated_at = NOW()
			WHERE id = $2`
		if _, err := tx.ExecContext(ctx, cancelBooking, models.BookingStatusCancelled, bookingID); err != nil {
			return err
		}

		refund = created
		return nil
	})

	return refund, err
}

// ListTicketsByCustomer returns the customer's tickets, newest first
func (r *RefundRepository) ListTicketsByCustomer(ctx context.Context, customerID int64) ([]models.RefundTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM refund_tickets WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.listTickets(ctx, query, customerID)
}

// ListTicketsByStatus returns every ticket in the given status ("" for all)
func (r *RefundRepository) ListTicketsByStatus(ctx context.Context, status string) ([]models.RefundTicket, error) {
	if status == "" {
		query := `SELECT ` + ticketColumns + ` FROM refund_tickets ORDER BY created_at DESC`
		return r.listTickets(ctx, query)
	}
	query := `SELECT ` + ticketColumns + ` FROM refund_tickets WHERE status = $1 ORDER BY created_at DESC`
	return r.listTickets(ctx, query, status)
}

func (r *RefundRepository) listTickets(ctx context.Context, query string, args ...any) ([]models.RefundTicket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.RefundTicket
	for rows.Next() {
		ticket, err := scanTicketRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

// Stats aggregates ticket counts and the total refunded amount
func (r *RefundRepository) Stats(ctx context.Context) (*models.RefundStats, error) {
	stats := &models.RefundStats{}

	counts := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM refund_tickets`

	err := r.db.QueryRowContext(ctx, counts).Scan(
		&stats.PendingCount,
		&stats.ApprovedCount,
		&stats.RejectedCount,
		&stats.CancelledCount,
	)
	if err != nil {
		return nil, err
	}

	total := `SELECT COALESCE(SUM(amount), 0) FROM refunds`
	if err := r.db.QueryRowContext(ctx, total).Scan(&stats.TotalRefunded); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetRefundByTicket returns the executed refund for a ticket, if any
func (r *RefundRepository) GetRefundByTicket(ctx context.Context, ticketID int64) (*models.Refund, error) {
	refund := &models.Refund{}
	query := `
		SELECT id, refund_ticket_id, booking_id, amount, reference, refunded_by, created_at
		FROM refunds
		WHERE refund_ticket_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRowContext(ctx, query, ticketID).Scan(
		&refund.ID,
		&refund.RefundTicketID,
		&refund.BookingID,
		&refund.Amount,
		&refund.Reference,
		&refund.RefundedBy,
		&refund.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return refund, nil
}
