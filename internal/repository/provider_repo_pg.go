package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prameswara/medibook/internal/domain"
)

// ProviderRepository is read-only: providers and their weekly schedules
// are maintained by the admin side of the platform.
type ProviderRepository interface {
	List(ctx context.Context) ([]domain.Provider, error)
	GetByID(ctx context.Context, id int64) (*domain.Provider, error)
	ActiveSlots(ctx context.Context, providerID int64) ([]domain.ScheduleSlot, error)
	GetSlot(ctx context.Context, slotID int64) (*domain.ScheduleSlot, error)
}

type PGProviderRepository struct {
	db *pgxpool.Pool
}

func NewProviderRepository(db *pgxpool.Pool) ProviderRepository {
	return &PGProviderRepository{db: db}
}

func (r *PGProviderRepository) List(ctx context.Context) ([]domain.Provider, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, specialty, address, base_hourly_rate, created_at, updated_at FROM providers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := make([]domain.Provider, 0)
	for rows.Next() {
		var p domain.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.Address, &p.BaseHourlyRate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (r *PGProviderRepository) GetByID(ctx context.Context, id int64) (*domain.Provider, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, specialty, address, base_hourly_rate, created_at, updated_at FROM providers WHERE id=$1`, id)
	var p domain.Provider
	if err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.Address, &p.BaseHourlyRate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGProviderRepository) ActiveSlots(ctx context.Context, providerID int64) ([]domain.ScheduleSlot, error) {
	rows, err := r.db.Query(ctx, `SELECT id, provider_id, day_of_week, start_minute, duration_minutes, active FROM schedule_slots WHERE provider_id=$1 AND active ORDER BY day_of_week, start_minute`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]domain.ScheduleSlot, 0)
	for rows.Next() {
		var s domain.ScheduleSlot
		var day int
		if err := rows.Scan(&s.ID, &s.ProviderID, &day, &s.StartMinute, &s.DurationMinutes, &s.Active); err != nil {
			return nil, err
		}
		s.DayOfWeek = time.Weekday(day)
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *PGProviderRepository) GetSlot(ctx context.Context, slotID int64) (*domain.ScheduleSlot, error) {
	row := r.db.QueryRow(ctx, `SELECT id, provider_id, day_of_week, start_minute, duration_minutes, active FROM schedule_slots WHERE id=$1`, slotID)
	var s domain.ScheduleSlot
	var day int
	if err := row.Scan(&s.ID, &s.ProviderID, &day, &s.StartMinute, &s.DurationMinutes, &s.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	s.DayOfWeek = time.Weekday(day)
	return &s, nil
}

var _ ProviderRepository = (*PGProviderRepository)(nil)
