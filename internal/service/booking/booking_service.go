package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prameswara/medibook/internal/domain"
	"github.com/prameswara/medibook/internal/kafka"
	"github.com/prameswara/medibook/internal/repository"
	"go.uber.org/zap"
)

// maxDurationMultiple bounds how many consecutive slot durations one
// consultation may span (60/120/180 minutes on a 60-minute slot).
const maxDurationMultiple = 3

const minutesPerDay = 24 * 60

// publishRetries bounds event delivery attempts before an event is
// dropped with a warning; events are advisory, bookings are not.
const publishRetries = 3

type BookingUseCase interface {
	Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error)
	Get(ctx context.Context, token string) (*domain.Booking, error)
	Cancel(ctx context.Context, token string) (*domain.Booking, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
	StashCheckout(ctx context.Context, sessionKey string, state domain.CheckoutState) error
	TakeCheckout(ctx context.Context, sessionKey string) (*domain.CheckoutState, error)
}

type Cache interface {
	AcquireSlotHold(ctx context.Context, providerID int64, date time.Time, startMinute int, ttl time.Duration) (bool, error)
	ReleaseSlotHold(ctx context.Context, providerID int64, date time.Time, startMinute int) error
	PutCheckoutState(ctx context.Context, sessionKey string, state domain.CheckoutState, ttl time.Duration) error
	TakeCheckoutState(ctx context.Context, sessionKey string) (*domain.CheckoutState, error)
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	providers          repository.ProviderRepository
	cache              Cache
	producer           Producer
	logger             *zap.Logger
	bookingTopic       string
	notificationsTopic string
	holdTTL            time.Duration
	checkoutTTL        time.Duration
	remoteMultiplier   float64
	now                func() time.Time
}

type ReserveInput struct {
	ProviderID      int64           `json:"provider_id"`
	SlotID          int64           `json:"slot_id"`
	Date            string          `json:"date"`
	Modality        domain.Modality `json:"modality"`
	DurationMinutes int             `json:"duration_minutes"`
	Note            string          `json:"note"`
	PatientEmail    string          `json:"patient_email"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	providers repository.ProviderRepository,
	cache Cache,
	producer Producer,
	logger *zap.Logger,
	bookingTopic string,
	holdTTL, checkoutTTL time.Duration,
	remoteMultiplier float64,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:         bookings,
		providers:        providers,
		cache:            cache,
		producer:         producer,
		logger:           logger,
		bookingTopic:     bookingTopic,
		holdTTL:          holdTTL,
		checkoutTTL:      checkoutTTL,
		remoteMultiplier: remoteMultiplier,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Reserve validates the selection and creates the booking in
// PENDING_PAYMENT. The slot-occupancy invariant is enforced by the
// database's partial unique index; the redis hold only fails fast. No
// payment side effect happens here.
func (s *BookingService) Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error) {
	provider, err := s.providers.GetByID(ctx, input.ProviderID)
	if err != nil {
		return nil, err
	}

	slot, err := s.providers.GetSlot(ctx, input.SlotID)
	if err != nil {
		return nil, err
	}
	if !slot.Active || slot.ProviderID != provider.ID {
		return nil, domain.ErrNotFound
	}

	date, err := time.ParseInLocation("2006-01-02", input.Date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDate, input.Date)
	}
	today := s.now()
	if date.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())) {
		return nil, fmt.Errorf("%w: %s is in the past", domain.ErrInvalidDate, input.Date)
	}
	if date.Weekday() != slot.DayOfWeek {
		return nil, fmt.Errorf("%w: %s is not a %s", domain.ErrInvalidDate, input.Date, slot.DayOfWeek)
	}

	if !input.Modality.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidModality, input.Modality)
	}

	if slot.DurationMinutes <= 0 || input.DurationMinutes <= 0 || input.DurationMinutes%slot.DurationMinutes != 0 {
		return nil, fmt.Errorf("%w: %d minutes on a %d-minute slot", domain.ErrInvalidDuration, input.DurationMinutes, slot.DurationMinutes)
	}
	if multiple := input.DurationMinutes / slot.DurationMinutes; multiple > maxDurationMultiple {
		return nil, fmt.Errorf("%w: %d minutes on a %d-minute slot", domain.ErrInvalidDuration, input.DurationMinutes, slot.DurationMinutes)
	}

	endMinute := slot.StartMinute + input.DurationMinutes
	if endMinute > minutesPerDay {
		return nil, fmt.Errorf("%w: consultation would end at minute %d", domain.ErrSlotOverflow, endMinute)
	}

	locked := false
	if s.cache != nil {
		ok, err := s.cache.AcquireSlotHold(ctx, provider.ID, date, slot.StartMinute, s.holdTTL)
		if err != nil {
			s.logger.Warn("slot hold acquire failed, relying on storage constraint", zap.Error(err))
		} else if !ok {
			return nil, domain.ErrSlotAlreadyTaken
		} else {
			locked = true
		}
	}

	booking := &domain.Booking{
		Token:           uuid.NewString(),
		ProviderID:      provider.ID,
		SlotID:          slot.ID,
		Date:            date,
		StartMinute:     slot.StartMinute,
		EndMinute:       endMinute,
		DurationMinutes: input.DurationMinutes,
		Modality:        input.Modality,
		Fee:             CalculateFee(provider.BaseHourlyRate, input.DurationMinutes, input.Modality, s.remoteMultiplier),
		Note:            input.Note,
		PatientEmail:    input.PatientEmail,
		Status:          domain.BookingStatusPendingPayment,
		PaymentStatus:   domain.PaymentStatusPending,
		// Fallback deadline until a payment session replaces it with the
		// gateway's expiry: a reservation with no session must still expire.
		ExpiresAt: s.now().Add(s.holdTTL),
	}

	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		if locked {
			_ = s.cache.ReleaseSlotHold(ctx, provider.ID, date, slot.StartMinute)
		}
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, token string) (*domain.Booking, error) {
	return s.bookings.GetByToken(ctx, token)
}

// Cancel is the manual cancellation path. Cancelling an already released
// booking is idempotent; cancelling a confirmed or completed one is an
// integrity fault and fails loudly.
func (s *BookingService) Cancel(ctx context.Context, token string) (*domain.Booking, error) {
	current, err := s.bookings.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled || current.Status == domain.BookingStatusExpired {
		return current, nil
	}
	if err := domain.Transition(current, domain.EventCancelled); err != nil {
		return nil, err
	}

	updated, err := s.bookings.CancelPending(ctx, current.ID, current.Version)
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			// A concurrent transition won; surface whatever it decided.
			return s.bookings.GetByToken(ctx, token)
		}
		return nil, err
	}

	s.releaseHold(ctx, updated)
	s.publish(ctx, kafka.EventBookingCancelled, updated)
	return updated, nil
}

// ExpirePendingBookings is the worker sweep: bookings past their deadline
// whose reconciler is no longer running are expired in bulk.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	expired, err := s.bookings.ExpirePendingBefore(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for i := range expired {
		s.releaseHold(ctx, &expired[i])
		s.publish(ctx, kafka.EventBookingExpired, &expired[i])
	}
	return expired, nil
}

func (s *BookingService) StashCheckout(ctx context.Context, sessionKey string, state domain.CheckoutState) error {
	return s.cache.PutCheckoutState(ctx, sessionKey, state, s.checkoutTTL)
}

func (s *BookingService) TakeCheckout(ctx context.Context, sessionKey string) (*domain.CheckoutState, error) {
	return s.cache.TakeCheckoutState(ctx, sessionKey)
}

func (s *BookingService) releaseHold(ctx context.Context, b *domain.Booking) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ReleaseSlotHold(ctx, b.ProviderID, b.Date, b.StartMinute); err != nil {
		s.logger.Warn("release slot hold failed", zap.String("token", b.Token), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, b)
	if err := s.producer.PublishWithRetry(ctx, s.bookingTopic, b.Token, event, publishRetries); err != nil {
		s.logger.Warn("publish booking event failed", zap.String("type", eventType), zap.String("token", b.Token), zap.Error(err))
	}
	if s.notificationsTopic != "" {
		if err := s.producer.PublishWithRetry(ctx, s.notificationsTopic, b.Token, event, publishRetries); err != nil {
			s.logger.Warn("publish notification failed", zap.String("type", eventType), zap.String("token", b.Token), zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
