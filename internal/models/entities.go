package models

import (
	"time"
)

// Booking statuses. The settlement core only transitions these; bookings
// are created and deleted by the reservation subsystem.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"

	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// HostEarning statuses
const (
	EarningStatusPending  = "pending"
	EarningStatusApproved = "approved"
	EarningStatusRejected = "rejected"
	EarningStatusPaid     = "paid"
)

// HostPayout statuses
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusCancelled  = "cancelled"
)

// RefundTicket statuses
const (
	TicketStatusPending   = "pending"
	TicketStatusApproved  = "approved"
	TicketStatusRejected  = "rejected"
	TicketStatusCancelled = "cancelled"
)

// User roles
const (
	RoleCustomer = "customer"
	RoleHost     = "host"
	RoleAdmin    = "admin"
)

// User represents a platform account (customer, host or admin)
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Phone        *string   `json:"phone" db:"phone"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Property represents a host-owned rental property
type Property struct {
	ID        int64     `json:"id" db:"id"`
	HostID    int64     `json:"host_id" db:"host_id"`
	Name      string    `json:"name" db:"name"`
	Address   *string   `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Booking represents a reservation. All amounts are whole VND.
type Booking struct {
	ID            int64      `json:"id" db:"id"`
	BookingCode   string     `json:"booking_code" db:"booking_code"`
	PropertyID    int64      `json:"property_id" db:"property_id"`
	CustomerID    *int64     `json:"customer_id" db:"customer_id"`
	GuestName     string     `json:"guest_name" db:"guest_name"`
	GuestEmail    *string    `json:"guest_email" db:"guest_email"`
	GuestPhone    *string    `json:"guest_phone" db:"guest_phone"`
	CheckIn       time.Time  `json:"check_in" db:"check_in"`
	CheckOut      time.Time  `json:"check_out" db:"check_out"`
	TotalAmount   int64      `json:"total_amount" db:"total_amount"`
	Status        string     `json:"status" db:"status"`
	PaymentStatus string     `json:"payment_status" db:"payment_status"`
	ConfirmedAt   *time.Time `json:"confirmed_at" db:"confirmed_at"`
	CancelledAt   *time.Time `json:"cancelled_at" db:"cancelled_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Payment is one settled monetary event against a booking, immutable once
// completed. (booking_id, transaction_id) is unique.
type Payment struct {
	ID            int64     `json:"id" db:"id"`
	BookingID     int64     `json:"booking_id" db:"booking_id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	Amount        int64     `json:"amount" db:"amount"`
	Gateway       *string   `json:"gateway" db:"gateway"`
	Content       *string   `json:"content" db:"content"`
	Status        string    `json:"status" db:"status"`
	PaidAt        time.Time `json:"paid_at" db:"paid_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// HostEarning is the host's revenue split for one booking.
// NetAmount = EarningAmount - PlatformFee - TaxAmount always holds.
type HostEarning struct {
	ID            int64      `json:"id" db:"id"`
	BookingID     int64      `json:"booking_id" db:"booking_id"`
	HostID        int64      `json:"host_id" db:"host_id"`
	EarningAmount int64      `json:"earning_amount" db:"earning_amount"`
	PlatformFee   int64      `json:"platform_fee" db:"platform_fee"`
	TaxAmount     int64      `json:"tax_amount" db:"tax_amount"`
	NetAmount     int64      `json:"net_amount" db:"net_amount"`
	Status        string     `json:"status" db:"status"`
	EarnedDate    time.Time  `json:"earned_date" db:"earned_date"`
	PaidDate      *time.Time `json:"paid_date" db:"paid_date"`
	PayoutID      *int64     `json:"payout_id" db:"payout_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// HostPayout is a frozen batch of approved earnings for one host.
// Aggregates are snapshots computed at creation time, never recomputed.
type HostPayout struct {
	ID               int64      `json:"id" db:"id"`
	HostID           int64      `json:"host_id" db:"host_id"`
	PeriodStart      time.Time  `json:"period_start" db:"period_start"`
	PeriodEnd        time.Time  `json:"period_end" db:"period_end"`
	TotalEarnings    int64      `json:"total_earnings" db:"total_earnings"`
	TotalPlatformFee int64      `json:"total_platform_fee" db:"total_platform_fee"`
	TotalTax         int64      `json:"total_tax" db:"total_tax"`
	NetPayoutAmount  int64      `json:"net_payout_amount" db:"net_payout_amount"`
	BookingCount     int        `json:"booking_count" db:"booking_count"`
	Status           string     `json:"status" db:"status"`
	PaymentReference *string    `json:"payment_reference" db:"payment_reference"`
	Notes            *string    `json:"notes" db:"notes"`
	ProcessedBy      *int64     `json:"processed_by" db:"processed_by"`
	ProcessedAt      *time.Time `json:"processed_at" db:"processed_at"`
	CompletedAt      *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// RefundTicket is a customer's refund request, distinct from the executed
// Refund record.
type RefundTicket struct {
	ID                int64      `json:"id" db:"id"`
	BookingID         int64      `json:"booking_id" db:"booking_id"`
	CustomerID        int64      `json:"customer_id" db:"customer_id"`
	RequestedAmount   int64      `json:"requested_amount" db:"requested_amount"`
	Reason            *string    `json:"reason" db:"reason"`
	BankName          *string    `json:"bank_name" db:"bank_name"`
	BankAccountNumber *string    `json:"bank_account_number" db:"bank_account_number"`
	BankAccountHolder *string    `json:"bank_account_holder" db:"bank_account_holder"`
	Status            string     `json:"status" db:"status"`
	AdminNote         *string    `json:"admin_note" db:"admin_note"`
	ProcessedBy       *int64     `json:"processed_by" db:"processed_by"`
	ProcessedAt       *time.Time `json:"processed_at" db:"processed_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Refund is the executed monetary reversal, immutable after creation
type Refund struct {
	ID             int64     `json:"id" db:"id"`
	RefundTicketID int64     `json:"refund_ticket_id" db:"refund_ticket_id"`
	BookingID      int64     `json:"booking_id" db:"booking_id"`
	Amount         int64     `json:"amount" db:"amount"`
	Reference      string    `json:"reference" db:"reference"`
	RefundedBy     *int64    `json:"refunded_by" db:"refunded_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Notification is an outbound message intent, consumed only by the
// delivery worker.
type Notification struct {
	ID               int64      `json:"id" db:"id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	Type             string     `json:"type" db:"type"`
	Title            string     `json:"title" db:"title"`
	Message          string     `json:"message" db:"message"`
	Priority         int        `json:"priority" db:"priority"`
	IsRead           bool       `json:"is_read" db:"is_read"`
	EmailSent        bool       `json:"email_sent" db:"email_sent"`
	EmailError       *string    `json:"email_error" db:"email_error"`
	EmailRetryCount  int        `json:"email_retry_count" db:"email_retry_count"`
	MaxEmailRetries  int        `json:"max_email_retries" db:"max_email_retries"`
	NextEmailRetryAt *time.Time `json:"next_email_retry_at" db:"next_email_retry_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}
