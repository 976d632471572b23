package models

import "time"

// PaymentWebhookPayload is the inbound bank gateway callback.
// Only transferType "in" is processed.
type PaymentWebhookPayload struct {
	TransferType    string    `json:"transferType" binding:"required"`
	Content         string    `json:"content" binding:"required"`
	TransferAmount  int64     `json:"transferAmount" binding:"required"`
	ReferenceCode   string    `json:"referenceCode" binding:"required"`
	TransactionDate time.Time `json:"transactionDate"`
	Gateway         string    `json:"gateway"`
}

// PaymentResult is the outcome of processing one webhook delivery
type PaymentResult struct {
	PaymentID   int64  `json:"payment_id"`
	BookingID   int64  `json:"booking_id"`
	BookingCode string `json:"booking_code"`
	Amount      int64  `json:"amount"`
	Duplicate   bool   `json:"duplicate"`
}

// CreatePayoutRequest selects approved earnings of one host over a range
type CreatePayoutRequest struct {
	HostID      int64  `json:"host_id" binding:"required"`
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

// ProcessPayoutRequest moves a payout from pending to processing
type ProcessPayoutRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
	Notes            string `json:"notes"`
}

// CreateRefundTicketRequest is the customer's refund request
type CreateRefundTicketRequest struct {
	BookingID         int64  `json:"booking_id" binding:"required"`
	RequestedAmount   int64  `json:"requested_amount" binding:"required"`
	Reason            string `json:"reason"`
	BankName          string `json:"bank_name"`
	BankAccountNumber string `json:"bank_account_number"`
	BankAccountHolder string `json:"bank_account_holder"`
}

// UpdateTicketStatusRequest is the admin override path
type UpdateTicketStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	AdminNote string `json:"admin_note"`
}

// RefundStats are side-effect-free aggregates over refund tickets
type RefundStats struct {
	PendingCount   int   `json:"pending_count"`
	ApprovedCount  int   `json:"approved_count"`
	RejectedCount  int   `json:"rejected_count"`
	CancelledCount int   `json:"cancelled_count"`
	TotalRefunded  int64 `json:"total_refunded"`
}

// APIResponse is the envelope every mutating endpoint returns
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}
