package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prameswara/medibook/config"
	"github.com/prameswara/medibook/internal/bootstrap"
	"github.com/prameswara/medibook/internal/cache"
	"github.com/prameswara/medibook/internal/gateway"
	"github.com/prameswara/medibook/internal/kafka"
	"github.com/prameswara/medibook/internal/logger"
	"github.com/prameswara/medibook/internal/repository"
	"github.com/prameswara/medibook/internal/service/availability"
	"github.com/prameswara/medibook/internal/service/booking"
	"github.com/prameswara/medibook/internal/service/payment"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		zlog.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ScheduleCacheTTLSec)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers, zlog)
	defer producer.Close()

	gatewayClient := gateway.NewClient(cfg.Gateway, zlog)

	providerRepo := repository.NewProviderRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	sessionRepo := repository.NewPaymentSessionRepository(pool)

	availabilitySvc := availability.NewAvailabilityService(providerRepo, bookingRepo, redisCache, zlog)
	bookingSvc := booking.NewBookingService(
		bookingRepo,
		providerRepo,
		redisCache,
		producer,
		zlog,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
		time.Duration(cfg.Booking.CheckoutTTLMinutes)*time.Minute,
		cfg.Booking.RemoteFeeMultiplier,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	paymentSvc := payment.NewPaymentService(
		bookingRepo,
		sessionRepo,
		gatewayClient,
		producer,
		zlog,
		cfg.Kafka.BookingTopic,
		cfg.Payment.AdminFee,
		cfg.Gateway.ExpiryHint(),
		cfg.Payment.PollInterval(),
		payment.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	defer paymentSvc.Shutdown()

	if err := paymentSvc.ResumeOpenSessions(ctx); err != nil {
		zlog.Warn("resume open payment sessions", zap.Error(err))
	}

	if err := bootstrap.Run(ctx, cfg, zlog, availabilitySvc, bookingSvc, paymentSvc); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}
