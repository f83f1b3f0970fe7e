package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prameswara/medibook/internal/domain"
	"github.com/prameswara/medibook/internal/service/booking"
	"github.com/prameswara/medibook/internal/service/payment"
	"go.uber.org/zap"
)

type BookingHandler struct {
	bookings booking.BookingUseCase
	payments payment.PaymentUseCase
	logger   *zap.Logger
}

type bookingResponse struct {
	Token           string `json:"token"`
	ProviderID      int64  `json:"provider_id"`
	Date            string `json:"date"`
	StartMinute     int    `json:"start_minute"`
	EndMinute       int    `json:"end_minute"`
	DurationMinutes int    `json:"duration_minutes"`
	Modality        string `json:"modality"`
	Fee             int64  `json:"fee"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	ExpiresAt       string `json:"expires_at"`
	// Reason tells the caller how to continue after a non-confirmed end
	// state: "retry" offers a new payment attempt, "restart" a new flow.
	Reason string `json:"reason,omitempty"`
}

type paymentResponse struct {
	OrderID   string `json:"order_id"`
	Handle    string `json:"handle"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

func NewBookingHandler(bookings booking.BookingUseCase, payments payment.PaymentUseCase, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, payments: payments, logger: logger}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.reserve)
	router.GET("/:token", h.get)
	router.DELETE("/:token", h.cancel)
	router.POST("/:token/payment", h.openPayment)
	router.POST("/:token/payment/return", h.paymentReturn)
}

func (h *BookingHandler) reserve(c *gin.Context) {
	var req booking.ReserveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.bookings.Reserve(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.bookings.Cancel(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) openPayment(c *gin.Context) {
	session, err := h.payments.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, paymentResponse{
		OrderID:   session.OrderID,
		Handle:    session.Handle,
		Amount:    session.Amount,
		Status:    string(session.Status),
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// paymentReturn is the consumer's "I came back from the payment window"
// signal: it triggers an immediate reconciliation poll and answers with
// the booking's current state.
func (h *BookingHandler) paymentReturn(c *gin.Context) {
	token := c.Param("token")
	if err := h.payments.Nudge(c.Request.Context(), token); err != nil {
		writeError(c, h.logger, err)
		return
	}

	b, err := h.bookings.Get(c.Request.Context(), token)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		Token:           b.Token,
		ProviderID:      b.ProviderID,
		Date:            b.Date.Format("2006-01-02"),
		StartMinute:     b.StartMinute,
		EndMinute:       b.EndMinute,
		DurationMinutes: b.DurationMinutes,
		Modality:        string(b.Modality),
		Fee:             b.Fee,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		ExpiresAt:       b.ExpiresAt.Format(time.RFC3339),
		Reason:          reasonFor(b),
	}
}

func reasonFor(b *domain.Booking) string {
	switch {
	case b.Status == domain.BookingStatusCancelled && b.PaymentStatus == domain.PaymentStatusFailed:
		return "retry"
	case b.Status == domain.BookingStatusExpired:
		return "restart"
	}
	return ""
}
