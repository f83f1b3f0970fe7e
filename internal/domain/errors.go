package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDate covers past dates and dates whose weekday does not
	// match the selected slot. Recoverable: caller re-prompts.
	ErrInvalidDate = errors.New("invalid booking date")

	// ErrSlotOverflow marks a duration that would push the consultation
	// past midnight of the booking date.
	ErrSlotOverflow = errors.New("slot would cross midnight")

	// ErrSlotAlreadyTaken is the losing side of a reservation race.
	// Recoverable: caller should re-resolve availability.
	ErrSlotAlreadyTaken = errors.New("slot is already taken")

	ErrInvalidDuration = errors.New("duration is not an allowed multiple of the slot duration")
	ErrInvalidModality = errors.New("unknown consultation modality")

	ErrNotFound = errors.New("not found")

	// ErrGatewayUnavailable is surfaced after bounded retries against the
	// payment gateway are exhausted. Distinct from a FAILED payment.
	ErrGatewayUnavailable = errors.New("payment service unavailable")
)

// IllegalTransitionError is a data-integrity fault: some component tried to
// move a booking out of a terminal state. Never swallowed.
type IllegalTransitionError struct {
	From  BookingStatus
	Event Event
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal booking transition: %s on %s", e.Event, e.From)
}
