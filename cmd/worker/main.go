package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prameswara/medibook/config"
	"github.com/prameswara/medibook/internal/cache"
	"github.com/prameswara/medibook/internal/email"
	"github.com/prameswara/medibook/internal/kafka"
	"github.com/prameswara/medibook/internal/logger"
	"github.com/prameswara/medibook/internal/repository"
	"github.com/prameswara/medibook/internal/service/booking"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// The worker sends notifications for booking events and runs the expiry
// sweep, the safety net that bounds bookings whose reconciler task is no
// longer running.
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

	producer := kafka.NewProducer(cfg.Kafka.Brokers, zlog)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ScheduleCacheTTLSec)*time.Second)

	providerRepo := repository.NewProviderRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zlog)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				zlog.Warn("decode event", zap.Error(err))
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			zlog.Info("consumer stopped", zap.Error(err))
		}
	}()

	sweep := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer sweep.Stop()

	for {
		select {
		case <-sweep.C:
			expired, err := bookingSvc.ExpirePendingBookings(ctx)
			if err != nil {
				zlog.Error("expire bookings", zap.Error(err))
				continue
			}
			if len(expired) > 0 {
				zlog.Info("expired bookings", zap.Int("count", len(expired)))
			}
		case <-ctx.Done():
			zlog.Info("shutting down")
			return
		}
	}
}
