package kafka

import "github.com/prameswara/medibook/internal/domain"

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingExpired   = "booking_expired"
)

func NewBookingEvent(eventType string, b *domain.Booking) BookingEvent {
	return BookingEvent{
		Type:          eventType,
		Token:         b.Token,
		ProviderID:    b.ProviderID,
		Date:          b.Date.Format("2006-01-02"),
		StartMinute:   b.StartMinute,
		DurationMin:   b.DurationMinutes,
		Fee:           b.Fee,
		PatientEmail:  b.PatientEmail,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		ExpiresAt:     b.ExpiresAt,
	}
}
