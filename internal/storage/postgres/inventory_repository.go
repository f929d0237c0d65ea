package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gatepass/ticketing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryRepository owns the ticket-type counters and the reservation
// ledger. All decrements and increments are single conditional statements;
// the database serializes them, so no application-level lock is needed and
// replicas stay safe.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *InventoryRepository) GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error) {
	const q = `
SELECT id, event_id, name, unit_price, total_quantity, available_quantity, benefits, is_active, created_at
FROM ticket_types
WHERE id = $1`

	return scanTicketType(queryRow(ctx, r.pool, q, ticketTypeID))
}

func (r *InventoryRepository) GetTicketTypeForUpdate(ctx context.Context, ticketTypeID string) (domain.TicketType, error) {
	const q = `
SELECT id, event_id, name, unit_price, total_quantity, available_quantity, benefits, is_active, created_at
FROM ticket_types
WHERE id = $1
FOR UPDATE`

	return scanTicketType(queryRow(ctx, r.pool, q, ticketTypeID))
}

func (r *InventoryRepository) DecrementAvailable(ctx context.Context, ticketTypeID string, qty int) error {
	const stmt = `
UPDATE ticket_types
SET available_quantity = available_quantity - $2
WHERE id = $1 AND available_quantity >= $2`

	tag, err := exec(ctx, r.pool, stmt, ticketTypeID, qty)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("decrement available: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing type from a genuine sell-out.
		if _, err := r.GetTicketType(ctx, ticketTypeID); err != nil {
			return err
		}
		return domain.ErrOutOfStock
	}
	return nil
}

func (r *InventoryRepository) IncrementAvailable(ctx context.Context, ticketTypeID string, qty int) (bool, error) {
	// The self-join exposes the pre-update counters so the clamp is detected
	// in the same statement that applies it.
	const stmt = `
UPDATE ticket_types t
SET available_quantity = LEAST(t.total_quantity, t.available_quantity + $2)
FROM ticket_types old
WHERE t.id = $1 AND old.id = t.id
RETURNING old.available_quantity + $2 > old.total_quantity`

	var clamped bool
	err := queryRow(ctx, r.pool, stmt, ticketTypeID, qty).Scan(&clamped)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return false, domain.ErrTicketTypeNotFound
		}
		return false, fmt.Errorf("increment available: %w", err)
	}
	return clamped, nil
}

func (r *InventoryRepository) SetQuantities(ctx context.Context, ticketTypeID string, total, available int) error {
	const stmt = `
UPDATE ticket_types
SET total_quantity = $2, available_quantity = $3
WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt, ticketTypeID, total, available)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set quantities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketTypeNotFound
	}
	return nil
}

func (r *InventoryRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, ticket_type_id, quantity, status, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := exec(ctx, r.pool, stmt,
		res.ID, res.TicketTypeID, res.Quantity, res.Status, res.ExpiresAt, res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *InventoryRepository) UpdateReservationStatus(ctx context.Context, reservationID string, from, to domain.ReservationStatus) (domain.Reservation, bool, error) {
	const stmt = `
UPDATE reservations
SET status = $3
WHERE id = $1 AND status = $2`

	tag, err := exec(ctx, r.pool, stmt, reservationID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, false, domain.ErrInvalidID
		}
		return domain.Reservation{}, false, fmt.Errorf("update reservation status: %w", err)
	}

	res, err := r.getReservation(ctx, reservationID)
	if err != nil {
		return domain.Reservation{}, false, err
	}
	return res, tag.RowsAffected() > 0, nil
}

func (r *InventoryRepository) ListExpiredPendingReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	const q = `
SELECT id, ticket_type_id, quantity, status, expires_at, created_at
FROM reservations
WHERE status = 'pending' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2`

	rows, err := query(ctx, r.pool, q, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.TicketTypeID, &res.Quantity, &res.Status, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *InventoryRepository) getReservation(ctx context.Context, reservationID string) (domain.Reservation, error) {
	const q = `
SELECT id, ticket_type_id, quantity, status, expires_at, created_at
FROM reservations
WHERE id = $1`

	var res domain.Reservation
	err := queryRow(ctx, r.pool, q, reservationID).
		Scan(&res.ID, &res.TicketTypeID, &res.Quantity, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func scanTicketType(row pgx.Row) (domain.TicketType, error) {
	var tt domain.TicketType
	err := row.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.UnitPrice,
		&tt.TotalQuantity, &tt.AvailableQuantity, &tt.Benefits, &tt.Active, &tt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.TicketType{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.TicketType{}, domain.ErrTicketTypeNotFound
		}
		return domain.TicketType{}, fmt.Errorf("get ticket type: %w", err)
	}
	return tt, nil
}
