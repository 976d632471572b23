package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"qbooking/internal/database"
	"qbooking/internal/models"
)

type PayoutRepository struct {
	db *database.DB
}

func NewPayoutRepository(db *database.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

const payoutColumns = `
	id, host_id, period_start, period_end, total_earnings, total_platform_fee,
	total_tax, net_payout_amount, booking_count, status, payment_reference,
	notes, processed_by, processed_at, completed_at, created_at, updated_at`

func scanPayoutRow(scan func(dest ...any) error) (*models.HostPayout, error) {
	payout := &models.HostPayout{}
	err := scan(
		&payout.ID,
		&payout.HostID,
		&payout.PeriodStart,
		&payout.PeriodEnd,
		&payout.TotalEarnings,
		&payout.TotalPlatformFee,
		&payout.TotalTax,
		&payout.NetPayoutAmount,
		&payout.BookingCount,
		&payout.Status,
		&payout.PaymentReference,
		&payout.Notes,
		&payout.ProcessedBy,
		&payout.ProcessedAt,
		&payout.CompletedAt,
		&payout.CreatedAt,
		&payout.UpdatedAt,
	)
	return payout, err
}

func (r *PayoutRepository) GetByID(ctx context.Context, id int64) (*models.HostPayout, error) {
	query := `SELECT ` + payoutColumns + ` FROM host_payouts WHERE id = $1`
	payout, err := scanPayoutRow(r.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return payout, err
}

func (r *PayoutRepository) ListByHost(ctx context.Context, hostID int64) ([]models.HostPayout, error) {
	query := `SELECT ` + payoutColumns + ` FROM host_payouts WHERE host_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []models.HostPayout
	for rows.Next() {
		payout, err := scanPayoutRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *payout)
	}
	return payouts, rows.Err()
}

// CreateBatch selects the host's approved, unbatched earnings in the
// period, freezes their aggregates into a new payout and stamps each
// member with the payout id, all in one transaction. An empty selection
// creates nothing and returns nil.
func (r *PayoutRepository) CreateBatch(ctx context.Context, hostID int64, periodStart, periodEnd time.Time) (*models.HostPayout, error) {
	var payout *models.HostPayout

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		selectEarnings := `
			SELECT id, earning_amount, platform_fee, tax_amount, net_amount
			FROM host_earnings
			WHERE host_id = $1 AND status = $2 AND payout_id IS NULL
			  AND earned_date >= $3 AND earned_date <= $4
			FOR UPDATE`

		rows, err := tx.QueryContext(ctx, selectEarnings, hostID, models.EarningStatusApproved, periodStart, periodEnd)
		if err != nil {
			return err
		}
		defer rows.Close()

		var ids []int64
		var totalEarnings, totalFee, totalTax, totalNet int64
		for rows.Next() {
			var id, earningAmount, platformFee, taxAmount, netAmount int64
			if err := rows.Scan(&id, &earningAmount, &platformFee, &taxAmount, &netAmount); err != nil {
				return err
			}
			ids = append(ids, id)
			totalEarnings += earningAmount
			totalFee += platformFee
			totalTax += taxAmount
			totalNet += netAmount
		}
		if err := rows.Err(); err != nil {
			return err
		}

		// Nothing to batch: explicit non-creation, not an error
		if len(ids) == 0 {
			return nil
		}

		insert := `
			INSERT INTO host_payouts (host_id, period_start, period_end, total_earnings,
			                          total_platform_fee, total_tax, net_payout_amount, booking_count, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING ` + payoutColumns

		created, err := scanPayoutRow(tx.QueryRowContext(ctx, insert,
			hostID, periodStart, periodEnd,
			totalEarnings, totalFee, totalTax, totalNet,
			len(ids), models.PayoutStatusPending,
		).Scan)
		if err != nil {
			return err
		}

		stamp := `UPDATE host_earnings SET payout_id = $1, updated_at = NOW() WHERE id = ANY($2)`
		if _, err := tx.ExecContext(ctx, stamp, created.ID, pq.Array(ids)); err != nil {
			return err
		}

		payout = created
		return nil
	})

	return payout, err
}

// MarkProcessing moves a pending payout to processing. Returns false when
// the payout was not pending.
func (r *PayoutRepository) MarkProcessing(ctx context.Context, id int64, reference, notes string, adminID int64) (bool, error) {
	query := `
		UPDATE host_payouts
		SET status = $1, payment_reference = $2, notes = $3, processed_by = $4,
		    processed_at = NOW(), updated_at = NOW()
		WHERE id = $5 AND status = $6`

	res, err := r.db.ExecContext(ctx, query,
		models.PayoutStatusProcessing, reference, notes, adminID, id, models.PayoutStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// CompleteWithEarnings completes a processing payout and cascades every
// member earning to paid in the same transaction. Returns false when the
// payout was not processing.
func (r *PayoutRepository) CompleteWithEarnings(ctx context.Context, id int64) (bool, error) {
	completed := false

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		complete := `
			UPDATE host_payouts
			SET status = $1, completed_at = NOW(), updated_at = NOW()
			WHERE id = $2 AND status = $3`

		res, err := tx.ExecContext(ctx, complete, models.PayoutStatusCompleted, id, models.PayoutStatusProcessing)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}

		cascade := `
			UPDATE host_earnings
			SET status = $1, paid_date = NOW(), updated_at = NOW()
			WHERE payout_id = $2`

		if _, err := tx.ExecContext(ctx, cascade, models.EarningStatusPaid, id); err != nil {
			return err
		}

		completed = true
		return nil
	})

	return completed, err
}

// CancelAndRelease cancels a pending or processing payout and releases
// every member earning back into the unbatched pool. Returns false when
// the payout was already terminal.
func (r *PayoutRepository) CancelAndRelease(ctx context.Context, id int64) (bool, error) {
	cancelled := false

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		cancel := `
			UPDATE host_payouts
			SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status IN ($3, $4)`

		res, err := tx.ExecContext(ctx, cancel,
			models.PayoutStatusCancelled, id, models.PayoutStatusPending, models.PayoutStatusProcessing)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}

		release := `UPDATE host_earnings SET payout_id = NULL, updated_at = NOW() WHERE payout_id = $1`
		if _, err := tx.ExecContext(ctx, release, id); err != nil {
			return err
		}

		cancelled = true
		return nil
	})

	return cancelled, err
}
