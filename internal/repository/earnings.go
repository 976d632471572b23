package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"qbooking/internal/database"
	apperrors "qbooking/internal/errors"
	"qbooking/internal/models"
)

type EarningRepository struct {
	db *database.DB
}

func NewEarningRepository(db *database.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

const earningColumns = `
	id, booking_id, host_id, earning_amount, platform_fee, tax_amount, net_amount,
	status, earned_date, paid_date, payout_id, created_at, updated_at`

func scanEarningRow(scan func(dest ...any) error) (*models.HostEarning, error) {
	earning := &models.HostEarning{}
	err := scan(
		&earning.ID,
		&earning.BookingID,
		&earning.HostID,
		&earning.EarningAmount,
		&earning.PlatformFee,
		&earning.TaxAmount,
		&earning.NetAmount,
		&earning.Status,
		&earning.EarnedDate,
		&earning.PaidDate,
		&earning.PayoutID,
		&earning.CreatedAt,
		&earning.UpdatedAt,
	)
	return earning, err
}

// Create inserts a derived earning. One booking derives at most one
// earning; the unique key on booking_id surfaces duplicates as conflicts.
func (r *EarningRepository) Create(ctx context.Context, earning *models.HostEarning) error {
	query := `
		INSERT INTO host_earnings (booking_id, host_id, earning_amount, platform_fee, tax_amount, net_amount, status, earned_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		earning.BookingID,
		earning.HostID,
		earning.EarningAmount,
		earning.PlatformFee,
		earning.TaxAmount,
		earning.NetAmount,
		earning.Status,
		earning.EarnedDate,
	).Scan(&earning.ID, &earning.CreatedAt, &earning.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return apperrors.Conflictf("earning already derived for booking %d", earning.BookingID)
	}
	return err
}

func (r *EarningRepository) GetByID(ctx context.Context, id int64) (*models.HostEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM host_earnings WHERE id = $1`
	earning, err := scanEarningRow(r.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return earning, err
}

// Decide moves a pending earning to approved or rejected. Returns false
// when the earning was not pending (the decision is terminal).
func (r *EarningRepository) Decide(ctx context.Context, id int64, status string) (bool, error) {
	query := `
		UPDATE host_earnings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, status, id, models.EarningStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// ListByPayout returns all member earnings of a payout batch
func (r *EarningRepository) ListByPayout(ctx context.Context, payoutID int64) ([]models.HostEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM host_earnings WHERE payout_id = $1 ORDER BY earned_date ASC`

	rows, err := r.db.QueryContext(ctx, query, payoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var earnings []models.HostEarning
	for rows.Next() {
		earning, err := scanEarningRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		earnings = append(earnings, *earning)
	}
	return earnings, rows.Err()
}
