package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prameswara/medibook/internal/domain"
)

type PaymentSessionRepository interface {
	Create(ctx context.Context, session *domain.PaymentSession) error
	GetOpenByBooking(ctx context.Context, bookingID int64) (*domain.PaymentSession, error)
	// GetLatestByBooking returns the most recent session regardless of
	// status, for reconciling signals that arrive after local expiry.
	GetLatestByBooking(ctx context.Context, bookingID int64) (*domain.PaymentSession, error)
	// NextAttempt numbers gateway order ids per booking so a retried open
	// never reuses an order id.
	NextAttempt(ctx context.Context, bookingID int64) (int, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.PaymentStatus) error
	// ListOpen returns sessions still awaiting reconciliation, for resuming
	// reconciler tasks after a restart.
	ListOpen(ctx context.Context) ([]domain.PaymentSession, error)
}

type PGPaymentSessionRepository struct {
	db *pgxpool.Pool
}

func NewPaymentSessionRepository(db *pgxpool.Pool) PaymentSessionRepository {
	return &PGPaymentSessionRepository{db: db}
}

const sessionColumns = `id, booking_id, order_id, amount, handle, status, expires_at, refunded_at, created_at`

func (r *PGPaymentSessionRepository) Create(ctx context.Context, session *domain.PaymentSession) error {
	session.Status = domain.PaymentStatusPending
	return r.db.QueryRow(ctx, `INSERT INTO payment_sessions (booking_id, order_id, amount, handle, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		session.BookingID, session.OrderID, session.Amount, session.Handle, session.Status, session.ExpiresAt).
		Scan(&session.ID, &session.CreatedAt)
}

func (r *PGPaymentSessionRepository) GetOpenByBooking(ctx context.Context, bookingID int64) (*domain.PaymentSession, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM payment_sessions
		WHERE booking_id=$1 AND status=$2 AND expires_at > now()
		ORDER BY created_at DESC LIMIT 1`, bookingID, domain.PaymentStatusPending)
	return scanSession(row)
}

func (r *PGPaymentSessionRepository) GetLatestByBooking(ctx context.Context, bookingID int64) (*domain.PaymentSession, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM payment_sessions
		WHERE booking_id=$1 ORDER BY created_at DESC LIMIT 1`, bookingID)
	return scanSession(row)
}

func (r *PGPaymentSessionRepository) NextAttempt(ctx context.Context, bookingID int64) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM payment_sessions WHERE booking_id=$1`, bookingID).Scan(&count); err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (r *PGPaymentSessionRepository) UpdateStatus(ctx context.Context, orderID string, status domain.PaymentStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE payment_sessions SET status=$1 WHERE order_id=$2`, status, orderID)
	return err
}

func (r *PGPaymentSessionRepository) ListOpen(ctx context.Context) ([]domain.PaymentSession, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+` FROM payment_sessions ps
		WHERE ps.status=$1 AND EXISTS (SELECT 1 FROM bookings b WHERE b.id = ps.booking_id AND b.status=$2)`,
		domain.PaymentStatusPending, domain.BookingStatusPendingPayment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.PaymentSession
	for rows.Next() {
		var s domain.PaymentSession
		if err := rows.Scan(&s.ID, &s.BookingID, &s.OrderID, &s.Amount, &s.Handle, &s.Status, &s.ExpiresAt, &s.RefundedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*domain.PaymentSession, error) {
	var s domain.PaymentSession
	err := row.Scan(&s.ID, &s.BookingID, &s.OrderID, &s.Amount, &s.Handle, &s.Status, &s.ExpiresAt, &s.RefundedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

var _ PaymentSessionRepository = (*PGPaymentSessionRepository)(nil)
