package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "qbooking/internal/errors"
	"qbooking/internal/models"
	"qbooking/internal/service"
)

type stubBookingStore struct {
	booking *models.Booking
}

func (s *stubBookingStore) GetByCodeAndAmount(ctx context.Context, code string, amount int64) (*models.Booking, error) {
	if s.booking == nil || s.booking.BookingCode != code || s.booking.TotalAmount != amount {
		return nil, nil
	}
	return s.booking, nil
}

func (s *stubBookingStore) HostID(ctx context.Context, bookingID int64) (int64, error) {
	return 42, nil
}

type stubPaymentStore struct {
	applied map[string]*models.Payment
}

func (s *stubPaymentStore) GetCompleted(ctx context.Context, bookingID int64, transactionID string) (*models.Payment, error) {
	return s.applied[transactionID], nil
}

func (s *stubPaymentStore) ApplyCompleted(ctx context.Context, payment *models.Payment) error {
	if _, ok := s.applied[payment.TransactionID]; ok {
		return apperrors.Conflictf("payment already applied")
	}
	payment.ID = int64(len(s.applied) + 1)
	s.applied[payment.TransactionID] = payment
	return nil
}

type stubNotifier struct{}

func (stubNotifier) Enqueue(ctx context.Context, userID int64, notifType, title, message string) (int64, error) {
	return 1, nil
}

func setupWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	customerID := int64(100)
	bookings := &stubBookingStore{booking: &models.Booking{
		ID:            1,
		BookingCode:   "BK20250101",
		CustomerID:    &customerID,
		TotalAmount:   2500000,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
	}}
	payments := &stubPaymentStore{applied: map[string]*models.Payment{}}

	services := &service.Services{
		Payments: service.NewPaymentService(payments, bookings, stubNotifier{}, "BK"),
	}
	h := NewHandlers(services, nil)

	r := gin.New()
	r.POST("/api/payments/webhook", h.PaymentWebhook)
	return r
}

func postWebhook(r *gin.Engine, payload models.PaymentWebhookPayload) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", "/api/payments/webhook", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPaymentWebhookApplies(t *testing.T) {
	r := setupWebhookRouter()

	w := postWebhook(r, models.PaymentWebhookPayload{
		TransferType:   "in",
		Content:        "BK20250101 thanh toan",
		TransferAmount: 2500000,
		ReferenceCode:  "FT25001",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestPaymentWebhookBadJSON(t *testing.T) {
	r := setupWebhookRouter()

	req, _ := http.NewRequest("POST", "/api/payments/webhook", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentWebhookRejectsOutboundTransfer(t *testing.T) {
	r := setupWebhookRouter()

	w := postWebhook(r, models.PaymentWebhookPayload{
		TransferType:   "out",
		Content:        "BK20250101 thanh toan",
		TransferAmount: 2500000,
		ReferenceCode:  "FT25001",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentWebhookUnknownBooking(t *testing.T) {
	r := setupWebhookRouter()

	w := postWebhook(r, models.PaymentWebhookPayload{
		TransferType:   "in",
		Content:        "BK99999999 thanh toan",
		TransferAmount: 2500000,
		ReferenceCode:  "FT25001",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentWebhookRedelivery(t *testing.T) {
	r := setupWebhookRouter()

	payload := models.PaymentWebhookPayload{
		TransferType:   "in",
		Content:        "BK20250101 thanh toan",
		TransferAmount: 2500000,
		ReferenceCode:  "FT25001",
	}

	first := postWebhook(r, payload)
	require.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(r, payload)
	assert.Equal(t, http.StatusOK, second.Code)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Payment already applied", resp.Message)
}
