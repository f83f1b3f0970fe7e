package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prameswara/medibook/api"
	"github.com/prameswara/medibook/config"
	"github.com/prameswara/medibook/internal/service/availability"
	"github.com/prameswara/medibook/internal/service/booking"
	"github.com/prameswara/medibook/internal/service/payment"
	"go.uber.org/zap"
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger,
	availabilitySvc availability.AvailabilityUseCase,
	bookingSvc booking.BookingUseCase,
	paymentSvc payment.PaymentUseCase,
) error {
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api.NewProviderHandler(availabilitySvc, logger).Register(router.Group("/providers"))
	api.NewBookingHandler(bookingSvc, paymentSvc, logger).Register(router.Group("/bookings"))
	api.NewCheckoutHandler(bookingSvc, logger).Register(router.Group("/checkout"))

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	logger.Info("http server started", zap.String("address", cfg.HTTP.Address))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
