package repository

import (
	"context"
	"database/sql"

	"qbooking/internal/database"
	"qbooking/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, booking_code, property_id, customer_id, guest_name, guest_email,
	guest_phone, check_in, check_out, total_amount, status, payment_status,
	confirmed_at, cancelled_at, created_at, updated_at`

func scanBooking(row *sql.Row) (*models.Booking, error) {
	booking := &models.Booking{}
	err := row.Scan(
		&booking.ID,
		&booking.BookingCode,
		&booking.PropertyID,
		&booking.CustomerID,
		&booking.GuestName,
		&booking.GuestEmail,
		&booking.GuestPhone,
		&booking.CheckIn,
		&booking.CheckOut,
		&booking.TotalAmount,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.ConfirmedAt,
		&booking.CancelledAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return booking, err
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRowContext(ctx, query, id))
}

// GetByCodeAndAmount correlates an inbound bank transfer with a booking.
// Wrong code or wrong amount both miss; no auto-correction is attempted.
func (r *BookingRepository) GetByCodeAndAmount(ctx context.Context, code string, amount int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_code = $1 AND total_amount = $2`
	return scanBooking(r.db.QueryRowContext(ctx, query, code, amount))
}

// GetForCustomer returns the booking only if it belongs to the customer
func (r *BookingRepository) GetForCustomer(ctx context.Context, id, customerID int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND customer_id = $2`
	return scanBooking(r.db.QueryRowContext(ctx, query, id, customerID))
}

// HostID resolves the owner of the booking's property. Returns 0 when the
// property has no resolvable host.
func (r *BookingRepository) HostID(ctx context.Context, bookingID int64) (int64, error) {
	var hostID int64
	query := `
		SELECT p.host_id
		FROM bookings b
		JOIN properties p ON p.id = b.property_id
		WHERE b.id = $1`

	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(&hostID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return hostID, err
}

// MarkCompleted transitions a confirmed booking to completed. Returns
// false when the booking was not in the confirmed state.
func (r *BookingRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, models.BookingStatusCompleted, id, models.BookingStatusConfirmed)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}
