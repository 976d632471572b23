package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"qbooking/internal/database"
	apperrors "qbooking/internal/errors"
	"qbooking/internal/models"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row *sql.Row) (*models.Payment, error) {
	payment := &models.Payment{}
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.TransactionID,
		&payment.Amount,
		&payment.Gateway,
		&payment.Content,
		&payment.Status,
		&payment.PaidAt,
		&payment.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return payment, err
}

// GetCompleted returns the completed payment for (booking, transaction)
// if one exists. This is the idempotency probe for webhook redelivery.
func (r *PaymentRepository) GetCompleted(ctx context.Context, bookingID int64, transactionID string) (*models.Payment, error) {
	query := `
		SELECT id, booking_id, transaction_id, amount, gateway, content, status, paid_at, created_at
		FROM payments
		WHERE booking_id = $1 AND transaction_id = $2 AND status = 'completed'`

	return scanPayment(r.db.QueryRowContext(ctx, query, bookingID, transactionID))
}

// ApplyCompleted inserts the completed payment and confirms the booking
// atomically. Either both rows change or neither does. A concurrent
// duplicate trips the (booking_id, transaction_id) unique key and comes
// back as a conflict for the caller to resolve idempotently.
func (r *PaymentRepository) ApplyCompleted(ctx context.Context, payment *models.Payment) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		insert := `
			INSERT INTO payments (booking_id, transaction_id, amount, gateway, content, status, paid_at)
			VALUES ($1, $2, $3, $4, $5, 'completed', $6)
			RETURNING id, created_at`

		err := tx.QueryRowContext(ctx, insert,
			payment.BookingID,
			payment.TransactionID,
			payment.Amount,
			payment.Gateway,
			payment.Content,
			payment.PaidAt,
		).Scan(&payment.ID, &payment.CreatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return apperrors.Conflictf("payment already applied for booking %d transaction %s",
					payment.BookingID, payment.TransactionID)
			}
			return err
		}
		payment.Status = "completed"

		confirm := `
			UPDATE bookings
			SET payment_status = $1, status = $2, confirmed_at = NOW(), updated_at = NOW()
			WHERE id = $3`

		_, err = tx.ExecContext(ctx, confirm,
			models.PaymentStatusPaid, models.BookingStatusConfirmed, payment.BookingID)
		return err
	})
}
