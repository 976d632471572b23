package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qbooking/internal/models"
)

// PaymentWebhook - POST /api/payments/webhook
// Receives bank gateway transfer callbacks. Redelivered events return the
// already-applied payment with 200, never an error.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	var payload models.PaymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Payments.ProcessPaymentEvent(c.Request.Context(), &payload)
	if err != nil {
		respondServiceError(c, err, "Failed to process payment")
		return
	}

	message := "Payment applied"
	if result.Duplicate {
		message = "Payment already applied"
	}
	respondOK(c, message, result)
}
