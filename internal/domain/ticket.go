package domain

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Proof is the opaque server-verifiable credential bound to one ticket and
// its current owner. The nonce and issuance time are persisted with the
// ticket; verification recomputes the digest from the stored values.
type Proof struct {
	Token    string
	Nonce    string
	IssuedAt time.Time
}

// CheckIn records the single successful gate scan of a ticket.
type CheckIn struct {
	ScannedBy string
	ScannedAt time.Time
	Location  string
}

// Ticket is one sold unit. Used is monotonic: it transitions false to true
// exactly once and is never reset here.
type Ticket struct {
	ID            string
	EventID       string
	TicketTypeID  string
	OwnerID       string
	UnitPrice     int // cents
	TicketNumber  string
	PaymentStatus PaymentStatus
	Used          bool
	CheckIn       *CheckIn
	Proof         Proof
	CreatedAt     time.Time
}

// Transfer is one ownership change in a ticket's history.
type Transfer struct {
	TicketID      string
	FromOwnerID   string
	ToOwnerID     string
	TransferredAt time.Time
}
