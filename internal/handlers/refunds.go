package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qbooking/internal/models"
)

// CreateRefundTicket - POST /api/refunds
func (h *Handlers) CreateRefundTicket(c *gin.Context) {
	customerID, ok := authenticatedUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateRefundTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ticket, svcErr := h.services.Refunds.CreateTicket(c.Request.Context(), customerID, &req)
	if svcErr != nil {
		respondServiceError(c, svcErr, "Failed to create refund ticket")
		return
	}

	respondCreated(c, "Refund ticket created", ticket)
}

// ListRefundTickets - GET /api/refunds
func (h *Handlers) ListRefundTickets(c *gin.Context) {
	customerID, ok := authenticatedUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tickets := h.services.Refunds.ListForCustomer(c.Request.Context(), customerID)
	respondOK(c, "", tickets)
}

// GetRefundTicket - GET /api/refunds/:id
func (h *Handlers) GetRefundTicket(c *gin.Context) {
	customerID, ok := authenticatedUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid ticket id")
		return
	}

	ticket, svcErr := h.services.Refunds.GetTicket(c.Request.Context(), ticketID, customerID)
	if svcErr != nil {
		respondServiceError(c, svcErr, "Failed to load refund ticket")
		return
	}

	respondOK(c, "", ticket)
}

// CancelRefundTicket - PATCH /api/refunds/:id/cancel
func (h *Handlers) CancelRefundTicket(c *gin.Context) {
	customerID, ok := authenticatedUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid ticket id")
		return
	}

	if svcErr := h.services.Refunds.CancelTicket(c.Request.Context(), ticketID, customerID); svcErr != nil {
		respondServiceError(c, svcErr, "Failed to cancel refund ticket")
		return
	}

	respondOK(c, "Refund ticket cancelled", nil)
}

// ProcessRefund - PATCH /api/admin/refunds/:id/process
// Approves the ticket, issues the refund and cancels the booking
func (h *Handlers) ProcessRefund(c *gin.Context) {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid ticket id")
		return
	}

	adminID, _ := authenticatedUserID(c)

	refund, svcErr := h.services.Refunds.ProcessRefund(c.Request.Context(), ticketID, adminID)
	if svcErr != nil {
		respondServiceError(c, svcErr, "Failed to process refund")
		return
	}

	respondOK(c, "Refund processed", refund)
}

// UpdateRefundTicketStatus - PATCH /api/admin/refunds/:id/status
// Administrative rejection or cancellation of a pending ticket
func (h *Handlers) UpdateRefundTicketStatus(c *gin.Context) {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid ticket id")
		return
	}

	var req models.UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	adminID, _ := authenticatedUserID(c)

	if svcErr := h.services.Refunds.UpdateTicketStatus(c.Request.Context(), ticketID, req.Status, req.AdminNote, adminID); svcErr != nil {
		respondServiceError(c, svcErr, "Failed to update refund ticket")
		return
	}

	respondOK(c, "Refund ticket updated", nil)
}

// GetAdminRefundTicket - GET /api/admin/refunds/:id
// Any ticket, with its executed refund when one exists
func (h *Handlers) GetAdminRefundTicket(c *gin.Context) {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid ticket id")
		return
	}

	ticket, refund, svcErr := h.services.Refunds.AdminGetTicket(c.Request.Context(), ticketID)
	if svcErr != nil {
		respondServiceError(c, svcErr, "Failed to load refund ticket")
		return
	}

	respondOK(c, "", gin.H{"ticket": ticket, "refund": refund})
}

// ListAdminRefundTickets - GET /api/admin/refunds?status=pending
func (h *Handlers) ListAdminRefundTickets(c *gin.Context) {
	status := c.Query("status")
	tickets := h.services.Refunds.ListByStatus(c.Request.Context(), status)
	respondOK(c, "", tickets)
}

// RefundStats - GET /api/admin/refunds/stats
func (h *Handlers) RefundStats(c *gin.Context) {
	stats := h.services.Refunds.Stats(c.Request.Context())
	respondOK(c, "", stats)
}
