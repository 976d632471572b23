package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListNotifications - GET /api/notifications?limit=N
func (h *Handlers) ListNotifications(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	notifications := h.services.Notifications.ListForUser(c.Request.Context(), userID, limit)
	respondOK(c, "", notifications)
}
