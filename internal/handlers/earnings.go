package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CompleteBooking - POST /api/admin/bookings/:id/complete
// Finishes checkout for a confirmed booking and derives the host earning
func (h *Handlers) CompleteBooking(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	earning, svcErr := h.services.Earnings.CompleteCheckout(c.Request.Context(), bookingID)
	if svcErr != nil {
		respondServiceError(c, svcErr, "Failed to complete booking")
		return
	}

	respondCreated(c, "Booking completed, earning derived", earning)
}

// ApproveEarning - PATCH /api/admin/earnings/:id/approve
func (h *Handlers) ApproveEarning(c *gin.Context) {
	h.decideEarning(c, true)
}

// RejectEarning - PATCH /api/admin/earnings/:id/reject
func (h *Handlers) RejectEarning(c *gin.Context) {
	h.decideEarning(c, false)
}

func (h *Handlers) decideEarning(c *gin.Context, approve bool) {
	earningID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid earning id")
		return
	}

	adminID, _ := authenticatedUserID(c)

	var svcErr error
	if approve {
		svcErr = h.services.Earnings.Approve(c.Request.Context(), earningID, adminID)
	} else {
		svcErr = h.services.Earnings.Reject(c.Request.Context(), earningID, adminID)
	}
	if svcErr != nil {
		respondServiceError(c, svcErr, "Failed to update earning")
		return
	}

	if approve {
		respondOK(c, "Earning approved", nil)
	} else {
		respondOK(c, "Earning rejected", nil)
	}
}
