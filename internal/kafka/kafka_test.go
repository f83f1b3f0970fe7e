package kafka

import (
	"testing"
	"time"

	"github.com/prameswara/medibook/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewProducer(t *testing.T) {
	producer := NewProducer([]string{"localhost:9092"}, zap.NewNop())
	assert.NotNil(t, producer)
	assert.NoError(t, producer.Close())
}

func TestNewConsumer(t *testing.T) {
	consumer := NewConsumer([]string{"localhost:9092"}, "medibook-worker", "booking-notifications", zap.NewNop())
	assert.NotNil(t, consumer)
	assert.NoError(t, consumer.Close())
}

func TestConsumer_CloseNilSafe(t *testing.T) {
	var consumer *Consumer
	assert.NoError(t, consumer.Close())
}

func TestNewBookingEvent(t *testing.T) {
	b := &domain.Booking{
		Token:           "tok",
		ProviderID:      1,
		Date:            time.Date(2026, 9, 7, 0, 0, 0, 0, time.Local),
		StartMinute:     9 * 60,
		DurationMinutes: 60,
		Fee:             100000,
		PatientEmail:    "patient@example.com",
		Status:          domain.BookingStatusConfirmed,
		PaymentStatus:   domain.PaymentStatusPaid,
	}

	event := NewBookingEvent(EventBookingConfirmed, b)
	assert.Equal(t, EventBookingConfirmed, event.Type)
	assert.Equal(t, "tok", event.Token)
	assert.Equal(t, "2026-09-07", event.Date)
	assert.Equal(t, int64(100000), event.Fee)
	assert.Equal(t, string(domain.BookingStatusConfirmed), event.Status)
	assert.Equal(t, string(domain.PaymentStatusPaid), event.PaymentStatus)
}
