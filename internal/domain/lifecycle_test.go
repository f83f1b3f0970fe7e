package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingBooking() *Booking {
	return &Booking{
		ID:            1,
		Token:         "tok",
		Status:        BookingStatusPendingPayment,
		PaymentStatus: PaymentStatusPending,
	}
}

func TestTransition_PendingToConfirmed(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, Transition(b, EventPaymentReceived))
	assert.Equal(t, BookingStatusConfirmed, b.Status)
	assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)
}

func TestTransition_PendingToCancelledOnFailure(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, Transition(b, EventPaymentFailed))
	assert.Equal(t, BookingStatusCancelled, b.Status)
	assert.Equal(t, PaymentStatusFailed, b.PaymentStatus)
}

func TestTransition_PendingToExpired(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, Transition(b, EventExpired))
	assert.Equal(t, BookingStatusExpired, b.Status)
	assert.Equal(t, PaymentStatusExpired, b.PaymentStatus)
}

func TestTransition_ManualCancelKeepsPaymentStatus(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, Transition(b, EventCancelled))
	assert.Equal(t, BookingStatusCancelled, b.Status)
	assert.Equal(t, PaymentStatusPending, b.PaymentStatus)
}

func TestTransition_ConfirmedToCompleted(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, Transition(b, EventPaymentReceived))
	require.NoError(t, Transition(b, EventCompleted))
	assert.Equal(t, BookingStatusCompleted, b.Status)
}

func TestTransition_LatePaidOverwritesExpired(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, Transition(b, EventExpired))
	// Payment received is never discarded; the durable guard for refunds
	// lives at the storage layer.
	require.NoError(t, Transition(b, EventPaymentReceived))
	assert.Equal(t, BookingStatusConfirmed, b.Status)
	assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)
}

func TestTransition_TerminalStatesAreImmutable(t *testing.T) {
	events := []Event{EventPaymentReceived, EventPaymentFailed, EventExpired, EventCancelled, EventCompleted}

	cases := []struct {
		status  BookingStatus
		allowed map[Event]bool
	}{
		{BookingStatusConfirmed, map[Event]bool{EventCompleted: true}},
		{BookingStatusCompleted, nil},
		{BookingStatusCancelled, nil},
		{BookingStatusExpired, map[Event]bool{EventPaymentReceived: true}},
	}

	for _, tc := range cases {
		for _, ev := range events {
			b := &Booking{Status: tc.status}
			assert.Equal(t, tc.allowed[ev], CanTransition(b, ev), "CanTransition %s on %s", ev, tc.status)

			err := Transition(b, ev)
			if tc.allowed[ev] {
				assert.NoError(t, err, "%s on %s", ev, tc.status)
				continue
			}

			require.Error(t, err, "%s on %s", ev, tc.status)
			var illegal *IllegalTransitionError
			assert.True(t, errors.As(err, &illegal), "%s on %s must be IllegalTransitionError", ev, tc.status)
			assert.Equal(t, tc.status, b.Status, "status must not move on rejected transition")
		}
	}
}

func TestTransition_NoEventSequenceEscapesTerminal(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, Transition(b, EventPaymentFailed))

	for _, ev := range []Event{EventPaymentReceived, EventExpired, EventCancelled, EventCompleted} {
		err := Transition(b, ev)
		require.Error(t, err)
		assert.Equal(t, BookingStatusCancelled, b.Status)
	}
}

func TestBookingStatus_Terminal(t *testing.T) {
	assert.False(t, BookingStatusPendingPayment.Terminal())
	assert.True(t, BookingStatusConfirmed.Terminal())
	assert.True(t, BookingStatusCompleted.Terminal())
	assert.True(t, BookingStatusCancelled.Terminal())
	assert.True(t, BookingStatusExpired.Terminal())
}
