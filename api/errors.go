package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prameswara/medibook/internal/domain"
	"go.uber.org/zap"
)

// writeError maps the domain taxonomy onto HTTP statuses. Validation
// problems re-prompt (400), a lost reservation race reads as a conflict
// (409), gateway exhaustion is service-unavailable, and an illegal
// transition is an integrity fault that must alert, not blend in.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var illegal *domain.IllegalTransitionError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSlotAlreadyTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "slot no longer available"})
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrSlotOverflow),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidModality):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment service unavailable"})
	case errors.As(err, &illegal):
		logger.Error("illegal booking transition", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "booking state conflict"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
