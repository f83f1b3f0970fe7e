package domain

import "time"

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusExpired        BookingStatus = "EXPIRED"
)

// Terminal reports whether no further transition is legal from s.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled, BookingStatusExpired:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

type Modality string

const (
	ModalityRemote   Modality = "remote"
	ModalityInPerson Modality = "in_person"
)

func (m Modality) Valid() bool {
	return m == ModalityRemote || m == ModalityInPerson
}

type Booking struct {
	ID              int64
	Token           string
	ProviderID      int64
	SlotID          int64
	Date            time.Time // calendar date, midnight local
	StartMinute     int
	EndMinute       int
	DurationMinutes int
	Modality        Modality
	Fee             int64 // frozen at creation, never recomputed
	Note            string
	PatientEmail    string
	Status          BookingStatus
	PaymentStatus   PaymentStatus
	Version         int64
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentSession is the live payment attempt for a pending booking. The
// gateway-issued expiry is authoritative; RefundedAt closes the window in
// which a late PAID signal may still overwrite a local expiry.
type PaymentSession struct {
	ID         int64
	BookingID  int64
	OrderID    string
	Amount     int64
	Handle     string
	Status     PaymentStatus
	ExpiresAt  time.Time
	RefundedAt *time.Time
	CreatedAt  time.Time
}

// CheckoutState is the transient record handed between flow steps, keyed
// per browsing session. Advisory only; authoritative state always lives in
// the Booking and PaymentSession records.
type CheckoutState struct {
	ProviderID      int64    `json:"provider_id"`
	SlotID          int64    `json:"slot_id"`
	Date            string   `json:"date"`
	StartMinute     int      `json:"start_minute"`
	DurationMinutes int      `json:"duration_minutes"`
	Modality        Modality `json:"modality"`
	BookingToken    string   `json:"booking_token,omitempty"`
	PaymentHandle   string   `json:"payment_handle,omitempty"`
	Amount          int64    `json:"amount,omitempty"`
}
