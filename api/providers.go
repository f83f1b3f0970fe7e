package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prameswara/medibook/internal/service/availability"
	"go.uber.org/zap"
)

type ProviderHandler struct {
	service availability.AvailabilityUseCase
	logger  *zap.Logger
}

func NewProviderHandler(service availability.AvailabilityUseCase, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{service: service, logger: logger}
}

func (h *ProviderHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id/availability", h.availability)
}

func (h *ProviderHandler) list(c *gin.Context) {
	providers, err := h.service.ListProviders(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, providers)
}

func (h *ProviderHandler) availability(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
		return
	}

	date, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	slots, err := h.service.Resolve(c.Request.Context(), id, date)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
