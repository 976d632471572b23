package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qbooking/internal/database"
	apperrors "qbooking/internal/errors"
	"qbooking/internal/logger"
	"qbooking/internal/models"
	"qbooking/internal/service"
)

type Handlers struct {
	services *service.Services
	db       *database.DB
}

func NewHandlers(services *service.Services, db *database.DB) *Handlers {
	return &Handlers{
		services: services,
		db:       db,
	}
}

// Health - GET /health
func (h *Handlers) Health(c *gin.Context) {
	health := h.db.Health(c.Request.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// respondServiceError maps the error taxonomy onto HTTP statuses
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation):
		respondError(c, http.StatusBadRequest, err.Error())
	case apperrors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case apperrors.Is(err, apperrors.ErrConflict):
		respondError(c, http.StatusConflict, err.Error())
	case apperrors.Is(err, apperrors.ErrInvalidState):
		respondError(c, http.StatusUnprocessableEntity, err.Error())
	case apperrors.Is(err, apperrors.ErrTransient):
		respondError(c, http.StatusServiceUnavailable, err.Error())
	default:
		logger.WithContext(c.Request.Context()).Error(fallback, "error", err)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func authenticatedUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
