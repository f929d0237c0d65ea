package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrOutOfStock          = errors.New("out of stock")
	ErrTicketTypeInactive  = errors.New("ticket type inactive")
	ErrEventNotFound       = errors.New("event not found")
	ErrTicketTypeNotFound  = errors.New("ticket type not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidProof        = errors.New("invalid proof")
	ErrWrongEvent          = errors.New("ticket is not valid for this event")
	ErrPaymentNotSettled   = errors.New("payment not settled")
	ErrAlreadyUsed         = errors.New("ticket already used")
	ErrNotOwner            = errors.New("caller is not the ticket owner")
	ErrWouldUndersell      = errors.New("capacity below sold quantity")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidID           = errors.New("invalid id")
	ErrEventNameRequired   = errors.New("event name required")

	// ErrPaymentStateConflict reports a settlement signal that contradicts
	// the recorded payment state (e.g. cancelling a paid ticket).
	ErrPaymentStateConflict = errors.New("payment state conflict")

	// ErrCheckInIndeterminate reports an infrastructure failure during the
	// atomic unused-to-used transition. The gate must re-scan or look the
	// ticket up manually; a blind retry could double-consume.
	ErrCheckInIndeterminate = errors.New("check-in result indeterminate")
)

// AlreadyUsedError wraps ErrAlreadyUsed with the original scan so gate
// operators can see when and by whom a duplicate ticket was first consumed.
type AlreadyUsedError struct {
	CheckIn CheckIn
}

func (e *AlreadyUsedError) Error() string {
	return fmt.Sprintf("ticket already used at %s by %s",
		e.CheckIn.ScannedAt.Format(time.RFC3339), e.CheckIn.ScannedBy)
}

func (e *AlreadyUsedError) Unwrap() error {
	return ErrAlreadyUsed
}
