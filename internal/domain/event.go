package domain

import "time"

// Event represents a ticketed event. Inventory lives on its ticket types.
type Event struct {
	ID       string
	Name     string
	StartsAt time.Time
}

// TicketType is a purchasable category within an event with its own price,
// capacity and benefits. Sold quantity is derived, never stored, so the two
// counters cannot drift.
type TicketType struct {
	ID                string
	EventID           string
	Name              string
	UnitPrice         int // cents
	TotalQuantity     int
	AvailableQuantity int
	Benefits          []string
	Active            bool
	CreatedAt         time.Time
}

// Sold returns the number of units no longer available.
func (t TicketType) Sold() int {
	return t.TotalQuantity - t.AvailableQuantity
}

// SoldOut reports whether no units remain.
func (t TicketType) SoldOut() bool {
	return t.AvailableQuantity <= 0
}
