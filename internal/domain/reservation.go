package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation is a provisional decrement of available inventory. It stays
// pending until issuance commits it; an abort or the expiry sweep puts the
// quantity back. The TTL bounds how long a crash between the decrement and
// ticket creation can keep units off the market.
type Reservation struct {
	ID           string
	TicketTypeID string
	Quantity     int
	Status       ReservationStatus
	ExpiresAt    time.Time
	CreatedAt    time.Time
}
