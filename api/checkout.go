package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prameswara/medibook/internal/domain"
	"github.com/prameswara/medibook/internal/service/booking"
	"go.uber.org/zap"
)

// CheckoutHandler carries the transient record between the flow's pages
// (selection → confirmation → payment → result). The record is advisory:
// consuming it is destructive, and the Booking stays the source of truth.
type CheckoutHandler struct {
	bookings booking.BookingUseCase
	logger   *zap.Logger
}

func NewCheckoutHandler(bookings booking.BookingUseCase, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{bookings: bookings, logger: logger}
}

func (h *CheckoutHandler) Register(router *gin.RouterGroup) {
	router.PUT("/:key", h.put)
	router.GET("/:key", h.take)
}

func (h *CheckoutHandler) put(c *gin.Context) {
	var state domain.CheckoutState
	if err := c.ShouldBindJSON(&state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bookings.StashCheckout(c.Request.Context(), c.Param("key"), state); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CheckoutHandler) take(c *gin.Context) {
	state, err := h.bookings.TakeCheckout(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
