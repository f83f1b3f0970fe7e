package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prameswara/medibook/internal/domain"
)

const bookingColumns = `id, token, provider_id, slot_id, booking_date, start_minute, end_minute, duration_minutes, modality, fee, note, patient_email, status, payment_status, version, expires_at, created_at, updated_at`

// uniqueViolation is the postgres error code raised by the partial unique
// index on (provider_id, booking_date, start_minute) for non-released
// bookings. It is the authoritative guard against double reservation.
const uniqueViolation = "23505"

// ErrStaleVersion means an optimistic update lost to a concurrent
// transition; callers re-read and decide from the fresh state.
var ErrStaleVersion = errors.New("stale booking version")

type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByToken(ctx context.Context, token string) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	// OccupiedStarts returns the start minutes on a date that are held by a
	// booking whose status still blocks the slot.
	OccupiedStarts(ctx context.Context, providerID int64, date time.Time) (map[int]bool, error)
	// CommitTerminal is the compare-and-swap terminal transition. It
	// succeeds only while the booking is still PENDING_PAYMENT, except for
	// a PAID commit, which may also overwrite EXPIRED while the payment
	// session has no refund initiated. Returns committed=false when the
	// precondition no longer holds (some other path won the race).
	CommitTerminal(ctx context.Context, id int64, status domain.BookingStatus, payment domain.PaymentStatus) (*domain.Booking, bool, error)
	// CancelPending cancels a pending booking with an optimistic version
	// check; a stale version means a concurrent transition won.
	CancelPending(ctx context.Context, id, version int64) (*domain.Booking, error)
	SetExpiresAt(ctx context.Context, id int64, expiresAt time.Time) error
	// ExpirePendingBefore is the sweep fallback for bookings whose
	// reconciler task is gone: every pending booking past its deadline is
	// expired in one statement.
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusPendingPayment
	booking.PaymentStatus = domain.PaymentStatusPending
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (token, provider_id, slot_id, booking_date, start_minute, end_minute, duration_minutes, modality, fee, note, patient_email, status, payment_status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, version, created_at, updated_at`,
		booking.Token, booking.ProviderID, booking.SlotID, booking.Date, booking.StartMinute, booking.EndMinute,
		booking.DurationMinutes, booking.Modality, booking.Fee, booking.Note, booking.PatientEmail,
		booking.Status, booking.PaymentStatus, booking.ExpiresAt).
		Scan(&booking.ID, &booking.Version, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrSlotAlreadyTaken
		}
		return err
	}
	return nil
}

func (r *PGBookingRepository) GetByToken(ctx context.Context, token string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE token=$1`, token)
	return scanBooking(row)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	return scanBooking(row)
}

func (r *PGBookingRepository) OccupiedStarts(ctx context.Context, providerID int64, date time.Time) (map[int]bool, error) {
	rows, err := r.db.Query(ctx, `SELECT start_minute FROM bookings WHERE provider_id=$1 AND booking_date=$2 AND status NOT IN ($3, $4)`,
		providerID, date, domain.BookingStatusCancelled, domain.BookingStatusExpired)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	occupied := make(map[int]bool)
	for rows.Next() {
		var start int
		if err := rows.Scan(&start); err != nil {
			return nil, err
		}
		occupied[start] = true
	}
	return occupied, rows.Err()
}

func (r *PGBookingRepository) CommitTerminal(ctx context.Context, id int64, status domain.BookingStatus, payment domain.PaymentStatus) (*domain.Booking, bool, error) {
	precondition := `status = 'PENDING_PAYMENT'`
	if status == domain.BookingStatusConfirmed && payment == domain.PaymentStatusPaid {
		// Payment received is never silently discarded: PAID may still
		// land on a just-expired booking as long as no refund started.
		precondition = `(status = 'PENDING_PAYMENT' OR (status = 'EXPIRED' AND NOT EXISTS (
			SELECT 1 FROM payment_sessions ps WHERE ps.booking_id = bookings.id AND ps.refunded_at IS NOT NULL)))`
	}

	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, payment_status=$2, version=version+1, updated_at=now()
		WHERE id=$3 AND `+precondition+` RETURNING `+bookingColumns, status, payment, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Precondition failed; report the state that won.
			current, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, false, getErr
			}
			return current, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r *PGBookingRepository) CancelPending(ctx context.Context, id, version int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, version=version+1, updated_at=now()
		WHERE id=$2 AND version=$3 AND status=$4 RETURNING `+bookingColumns,
		domain.BookingStatusCancelled, id, version, domain.BookingStatusPendingPayment)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrStaleVersion
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) SetExpiresAt(ctx context.Context, id int64, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE bookings SET expires_at=$1, updated_at=now() WHERE id=$2`, expiresAt, id)
	return err
}

func (r *PGBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings SET status=$1, payment_status=$2, version=version+1, updated_at=now()
		WHERE status=$3 AND expires_at <= $4 RETURNING `+bookingColumns,
		domain.BookingStatusExpired, domain.PaymentStatusExpired, domain.BookingStatusPendingPayment, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		b, err := scanBookingRow(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *b)
	}
	return expired, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookingRow(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.Token, &b.ProviderID, &b.SlotID, &b.Date, &b.StartMinute, &b.EndMinute,
		&b.DurationMinutes, &b.Modality, &b.Fee, &b.Note, &b.PatientEmail, &b.Status, &b.PaymentStatus,
		&b.Version, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	b, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
