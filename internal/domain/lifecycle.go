package domain

// Event drives the booking state machine. Every status change in the
// system goes through Transition; nothing mutates Status directly.
type Event string

const (
	EventPaymentReceived Event = "payment_received"
	EventPaymentFailed   Event = "payment_failed"
	EventExpired         Event = "expired"
	EventCancelled       Event = "cancelled"
	EventCompleted       Event = "completed"
)

type transitionTarget struct {
	status  BookingStatus
	payment PaymentStatus
	keepPay bool
}

var transitions = map[BookingStatus]map[Event]transitionTarget{
	BookingStatusPendingPayment: {
		EventPaymentReceived: {status: BookingStatusConfirmed, payment: PaymentStatusPaid},
		EventPaymentFailed:   {status: BookingStatusCancelled, payment: PaymentStatusFailed},
		EventExpired:         {status: BookingStatusExpired, payment: PaymentStatusExpired},
		// Manual cancel before payment; the session is abandoned as-is.
		EventCancelled: {status: BookingStatusCancelled, keepPay: true},
	},
	BookingStatusConfirmed: {
		EventCompleted: {status: BookingStatusCompleted, payment: PaymentStatusPaid},
	},
	// A PAID signal beats a just-committed local expiry: payment received
	// is never silently discarded. The storage layer additionally requires
	// that no refund has been initiated (see BookingRepository.CommitTerminal).
	BookingStatusExpired: {
		EventPaymentReceived: {status: BookingStatusConfirmed, payment: PaymentStatusPaid},
	},
}

// Transition applies ev to b in memory, or returns *IllegalTransitionError
// if the state machine forbids it. Durable commits re-check the same
// precondition with a compare-and-swap; this guard catches programming
// errors before they reach storage.
func Transition(b *Booking, ev Event) error {
	target, ok := transitions[b.Status][ev]
	if !ok {
		return &IllegalTransitionError{From: b.Status, Event: ev}
	}
	b.Status = target.status
	if !target.keepPay {
		b.PaymentStatus = target.payment
	}
	return nil
}

// CanTransition reports whether ev is legal from the booking's current
// status without applying it.
func CanTransition(b *Booking, ev Event) bool {
	_, ok := transitions[b.Status][ev]
	return ok
}
