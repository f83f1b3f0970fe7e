package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/prameswara/medibook/internal/domain"
	"github.com/prameswara/medibook/internal/repository"
	"go.uber.org/zap"
)

type AvailabilityUseCase interface {
	ListProviders(ctx context.Context) ([]domain.Provider, error)
	Resolve(ctx context.Context, providerID int64, date time.Time) ([]domain.AvailableSlot, error)
}

// ScheduleCache is the cache-aside layer over the provider's weekly
// schedule. A nil cache is tolerated (schedule read goes to the database).
type ScheduleCache interface {
	GetSchedule(ctx context.Context, providerID int64) ([]domain.ScheduleSlot, error)
	SetSchedule(ctx context.Context, providerID int64, slots []domain.ScheduleSlot) error
}

type AvailabilityService struct {
	providers repository.ProviderRepository
	bookings  repository.BookingRepository
	cache     ScheduleCache
	logger    *zap.Logger
	now       func() time.Time
}

func NewAvailabilityService(providers repository.ProviderRepository, bookings repository.BookingRepository, cache ScheduleCache, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		providers: providers,
		bookings:  bookings,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AvailabilityService) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	return s.providers.List(ctx)
}

// Resolve projects the provider's recurring schedule onto one calendar
// date. Slots held by a non-terminal booking come back marked taken rather
// than dropped, so the caller can show them as unavailable.
func (s *AvailabilityService) Resolve(ctx context.Context, providerID int64, date time.Time) ([]domain.AvailableSlot, error) {
	date = truncateToDate(date)
	if date.Before(truncateToDate(s.now())) {
		return nil, fmt.Errorf("%w: %s is in the past", domain.ErrInvalidDate, date.Format("2006-01-02"))
	}

	if _, err := s.providers.GetByID(ctx, providerID); err != nil {
		return nil, err
	}

	catalog, err := s.catalogFor(ctx, providerID)
	if err != nil {
		return nil, err
	}

	daySlots := catalog.SlotsFor(date.Weekday())
	if len(daySlots) == 0 {
		return []domain.AvailableSlot{}, nil
	}

	occupied, err := s.bookings.OccupiedStarts(ctx, providerID, date)
	if err != nil {
		return nil, err
	}

	available := make([]domain.AvailableSlot, 0, len(daySlots))
	for _, slot := range daySlots {
		available = append(available, domain.AvailableSlot{
			SlotID:          slot.ID,
			Date:            date,
			StartMinute:     slot.StartMinute,
			DurationMinutes: slot.DurationMinutes,
			Taken:           occupied[slot.StartMinute],
		})
	}
	return available, nil
}

func (s *AvailabilityService) catalogFor(ctx context.Context, providerID int64) (*domain.ScheduleCatalog, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSchedule(ctx, providerID)
		if err != nil {
			s.logger.Warn("schedule cache read failed", zap.Int64("provider_id", providerID), zap.Error(err))
		} else if cached != nil {
			return domain.NewScheduleCatalog(cached), nil
		}
	}

	slots, err := s.providers.ActiveSlots(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetSchedule(ctx, providerID, slots); err != nil {
			s.logger.Warn("schedule cache write failed", zap.Int64("provider_id", providerID), zap.Error(err))
		}
	}
	return domain.NewScheduleCatalog(slots), nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)
