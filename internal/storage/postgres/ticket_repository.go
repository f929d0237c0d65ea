package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gatepass/ticketing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketRepository owns the ticket rows, their proof material, payment state
// and check-in metadata. It backs the issuance, check-in and transfer
// services; the unused-to-used transition and the owner/proof rotation are
// single conditional statements.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const ticketColumns = `
id, event_id, ticket_type_id, owner_id, unit_price, ticket_number,
payment_status, used, scanned_by, scanned_at, scan_location,
proof_token, proof_nonce, proof_issued_at, created_at`

func (r *TicketRepository) GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error) {
	const q = `
SELECT id, event_id, name, unit_price, total_quantity, available_quantity, benefits, is_active, created_at
FROM ticket_types
WHERE id = $1`

	return scanTicketType(queryRow(ctx, r.pool, q, ticketTypeID))
}

func (r *TicketRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	const q = `SELECT id, name, starts_at FROM events WHERE id = $1`

	var ev domain.Event
	err := queryRow(ctx, r.pool, q, eventID).Scan(&ev.ID, &ev.Name, &ev.StartsAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicket(queryRow(ctx, r.pool, q, ticketID))
}

func (r *TicketRepository) GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE`
	return scanTicket(queryRow(ctx, r.pool, q, ticketID))
}

func (r *TicketRepository) CreateTicket(ctx context.Context, t domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, event_id, ticket_type_id, owner_id, unit_price, ticket_number,
                     payment_status, used, proof_token, proof_nonce, proof_issued_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9, $10, $11)`

	_, err := exec(ctx, r.pool, stmt,
		t.ID, t.EventID, t.TicketTypeID, t.OwnerID, t.UnitPrice, t.TicketNumber,
		t.PaymentStatus, t.Proof.Token, t.Proof.Nonce, t.Proof.IssuedAt, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create ticket: duplicate ticket number %s: %w", t.TicketNumber, err)
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) UpdatePaymentStatus(ctx context.Context, ticketID string, from, to domain.PaymentStatus) (bool, error) {
	const stmt = `
UPDATE tickets
SET payment_status = $3
WHERE id = $1 AND payment_status = $2`

	tag, err := exec(ctx, r.pool, stmt, ticketID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("update payment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkUsed is the exactly-once transition: the guard on used = FALSE makes
// two concurrent scans resolve to one success and one rejection.
func (r *TicketRepository) MarkUsed(ctx context.Context, ticketID string, checkIn domain.CheckIn) (bool, error) {
	const stmt = `
UPDATE tickets
SET used = TRUE, scanned_by = $2, scanned_at = $3, scan_location = $4
WHERE id = $1 AND used = FALSE`

	tag, err := exec(ctx, r.pool, stmt, ticketID, checkIn.ScannedBy, checkIn.ScannedAt, checkIn.Location)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark used: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TicketRepository) UpdateOwnerAndProof(ctx context.Context, ticketID, currentOwnerID, newOwnerID string, proof domain.Proof) (bool, error) {
	const stmt = `
UPDATE tickets
SET owner_id = $3, proof_token = $4, proof_nonce = $5, proof_issued_at = $6
WHERE id = $1 AND owner_id = $2 AND used = FALSE`

	tag, err := exec(ctx, r.pool, stmt,
		ticketID, currentOwnerID, newOwnerID, proof.Token, proof.Nonce, proof.IssuedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("update owner and proof: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TicketRepository) AppendTransfer(ctx context.Context, t domain.Transfer) error {
	const stmt = `
INSERT INTO ticket_transfers (ticket_id, from_owner_id, to_owner_id, transferred_at)
VALUES ($1, $2, $3, $4)`

	_, err := exec(ctx, r.pool, stmt, t.TicketID, t.FromOwnerID, t.ToOwnerID, t.TransferredAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("append transfer: %w", err)
	}
	return nil
}

func (r *TicketRepository) ListTransfers(ctx context.Context, ticketID string) ([]domain.Transfer, error) {
	const q = `
SELECT ticket_id, from_owner_id, to_owner_id, transferred_at
FROM ticket_transfers
WHERE ticket_id = $1
ORDER BY transferred_at`

	rows, err := query(ctx, r.pool, q, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []domain.Transfer
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(&t.TicketID, &t.FromOwnerID, &t.ToOwnerID, &t.TransferredAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		t            domain.Ticket
		scannedBy    *string
		scannedAt    *time.Time
		scanLocation *string
	)
	err := row.Scan(&t.ID, &t.EventID, &t.TicketTypeID, &t.OwnerID, &t.UnitPrice, &t.TicketNumber,
		&t.PaymentStatus, &t.Used, &scannedBy, &scannedAt, &scanLocation,
		&t.Proof.Token, &t.Proof.Nonce, &t.Proof.IssuedAt, &t.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	if scannedBy != nil && scannedAt != nil {
		checkIn := domain.CheckIn{ScannedBy: *scannedBy, ScannedAt: *scannedAt}
		if scanLocation != nil {
			checkIn.Location = *scanLocation
		}
		t.CheckIn = &checkIn
	}
	return t, nil
}
