package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"qbooking/internal/models"
)

// CreatePayout - POST /api/admin/payouts
// Batches the host's approved earnings in the period into a payout
func (h *Handlers) CreatePayout(c *gin.Context) {
	var req models.CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	periodStart, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		respondError(c, http.StatusBadRequest, "period_start must be YYYY-MM-DD")
		return
	}
	periodEnd, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		respondError(c, http.StatusBadRequest, "period_end must be YYYY-MM-DD")
		return
	}

	adminID, _ := authenticatedUserID(c)

	payout, svcErr := h.services.Payouts.CreateBatch(c.Request.Context(), req.HostID, periodStart, periodEnd, adminID)
	if svcErr != nil {
		respondServiceError(c, svcErr, "Failed to create payout")
		return
	}
	if payout == nil {
		respondOK(c, "No approved earnings in period", nil)
		return
	}

	respondCreated(c, "Payout created", payout)
}

// ProcessPayout - PATCH /api/admin/payouts/:id/process
func (h *Handlers) ProcessPayout(c *gin.Context) {
	payoutID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid payout id")
		return
	}

	var req models.ProcessPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	adminID, _ := authenticatedUserID(c)

	if svcErr := h.services.Payouts.Process(c.Request.Context(), payoutID, req.PaymentReference, req.Notes, adminID); svcErr != nil {
		respondServiceError(c, svcErr, "Failed to process payout")
		return
	}

	respondOK(c, "Payout processing", nil)
}

// CompletePayout - PATCH /api/admin/payouts/:id/complete
func (h *Handlers) CompletePayout(c *gin.Context) {
	payoutID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid payout id")
		return
	}

	adminID, _ := authenticatedUserID(c)

	if svcErr := h.services.Payouts.Complete(c.Request.Context(), payoutID, adminID); svcErr != nil {
		respondServiceError(c, svcErr, "Failed to complete payout")
		return
	}

	respondOK(c, "Payout completed", nil)
}

// CancelPayout - PATCH /api/admin/payouts/:id/cancel
func (h *Handlers) CancelPayout(c *gin.Context) {
	payoutID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid payout id")
		return
	}

	adminID, _ := authenticatedUserID(c)

	if svcErr := h.services.Payouts.Cancel(c.Request.Context(), payoutID, adminID); svcErr != nil {
		respondServiceError(c, svcErr, "Failed to cancel payout")
		return
	}

	respondOK(c, "Payout cancelled, earnings released", nil)
}

// ListPayoutEarnings - GET /api/admin/payouts/:id/earnings
// The member earnings frozen into the batch
func (h *Handlers) ListPayoutEarnings(c *gin.Context) {
	payoutID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid payout id")
		return
	}

	earnings, svcErr := h.services.Earnings.ListForPayout(c.Request.Context(), payoutID)
	if svcErr != nil {
		respondServiceError(c, svcErr, "Failed to list payout earnings")
		return
	}

	respondOK(c, "", earnings)
}

// ListHostPayouts - GET /api/admin/payouts?host_id=N
func (h *Handlers) ListHostPayouts(c *gin.Context) {
	hostID, err := strconv.ParseInt(c.Query("host_id"), 10, 64)
	if err != nil || hostID <= 0 {
		respondError(c, http.StatusBadRequest, "host_id is required")
		return
	}

	payouts := h.services.Payouts.ListByHost(c.Request.Context(), hostID)
	respondOK(c, "", payouts)
}
