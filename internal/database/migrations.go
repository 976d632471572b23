package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createPropertiesTable,
		createBookingsTable,
		createPaymentsTable,
		createHostPayoutsTable,
		createHostEarningsTable,
		createRefundTicketsTable,
		createRefundsTable,
		createNotificationsTable,
		createNotificationsPendingIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    full_name VARCHAR(200) NOT NULL,
    phone VARCHAR(20),
    role VARCHAR(20) NOT NULL DEFAULT 'customer',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (role IN ('customer', 'host', 'admin'))
);`

const createPropertiesTable = `
CREATE TABLE IF NOT EXISTS properties (
    id SERIAL PRIMARY KEY,
    host_id INTEGER NOT NULL REFERENCES users(id),
    name VARCHAR(300) NOT NULL,
    address TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    booking_code VARCHAR(30) UNIQUE NOT NULL,
    property_id INTEGER NOT NULL REFERENCES properties(id),
    customer_id INTEGER REFERENCES users(id),
    guest_name VARCHAR(200) NOT NULL,
    guest_email VARCHAR(255),
    guest_phone VARCHAR(20),
    check_in DATE NOT NULL,
    check_out DATE NOT NULL,
    total_amount BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'unpaid',
    confirmed_at TIMESTAMP,
    cancelled_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
    CHECK (payment_status IN ('unpaid', 'paid'))
);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id SERIAL PRIMARY KEY,
    booking_id INTEGER NOT NULL REFERENCES bookings(id),
    transaction_id VARCHAR(100) NOT NULL,
    amount BIGINT NOT NULL,
    gateway VARCHAR(50),
    content TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'completed',
    paid_at TIMESTAMP NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE (booking_id, transaction_id)
);`

const createHostPayoutsTable = `
CREATE TABLE IF NOT EXISTS host_payouts (
    id SERIAL PRIMARY KEY,
    host_id INTEGER NOT NULL REFERENCES users(id),
    period_start DATE NOT NULL,
    period_end DATE NOT NULL,
    total_earnings BIGINT NOT NULL,
    total_platform_fee BIGINT NOT NULL,
    total_tax BIGINT NOT NULL,
    net_payout_amount BIGINT NOT NULL,
    booking_count INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_reference VARCHAR(100),
    notes TEXT,
    processed_by INTEGER REFERENCES users(id),
    processed_at TIMESTAMP,
    completed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'processing', 'completed', 'cancelled'))
);`

const createHostEarningsTable = `
CREATE TABLE IF NOT EXISTS host_earnings (
    id SERIAL PRIMARY KEY,
    booking_id INTEGER NOT NULL REFERENCES bookings(id),
    host_id INTEGER NOT NULL REFERENCES users(id),
    earning_amount BIGINT NOT NULL,
    platform_fee BIGINT NOT NULL,
    tax_amount BIGINT NOT NULL,
    net_amount BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    earned_date DATE NOT NULL,
    paid_date DATE,
    payout_id INTEGER REFERENCES host_payouts(id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE (booking_id),
    CHECK (status IN ('pending', 'approved', 'rejected', 'paid'))
);`

const createRefundTicketsTable = `
CREATE TABLE IF NOT EXISTS refund_tickets (
    id SERIAL PRIMARY KEY,
    booking_id INTEGER NOT NULL REFERENCES bookings(id),
    customer_id INTEGER NOT NULL REFERENCES users(id),
    requested_amount BIGINT NOT NULL,
    reason TEXT,
    bank_name VARCHAR(100),
    bank_account_number VARCHAR(50),
    bank_account_holder VARCHAR(200),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    admin_note TEXT,
    processed_by INTEGER REFERENCES users(id),
    processed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'approved', 'rejected', 'cancelled'))
);`

const createRefundsTable = `
CREATE TABLE IF NOT EXISTS refunds (
    id SERIAL PRIMARY KEY,
    refund_ticket_id INTEGER NOT NULL REFERENCES refund_tickets(id),
    booking_id INTEGER NOT NULL REFERENCES bookings(id),
    amount BIGINT NOT NULL,
    reference VARCHAR(100) NOT NULL,
    refunded_by INTEGER REFERENCES users(id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id),
    type VARCHAR(50) NOT NULL,
    title VARCHAR(300) NOT NULL,
    message TEXT NOT NULL,
    priority INTEGER NOT NULL DEFAULT 2,
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    email_sent BOOLEAN NOT NULL DEFAULT FALSE,
    email_error TEXT,
    email_retry_count INTEGER NOT NULL DEFAULT 0,
    max_email_retries INTEGER NOT NULL DEFAULT 3,
    next_email_retry_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (priority BETWEEN 1 AND 4)
);`

const createNotificationsPendingIndex = `
CREATE INDEX IF NOT EXISTS idx_notifications_pending
ON notifications (priority DESC, created_at ASC)
WHERE email_sent = FALSE;`
