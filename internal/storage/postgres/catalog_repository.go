package postgres

import (
	"context"
	"fmt"

	"github.com/gatepass/ticketing/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository backs event/ticket-type administration and the
// read-only support lookups.
type CatalogRepository struct {
	pool    *pgxpool.Pool
	tickets *TicketRepository
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool, tickets: NewTicketRepository(pool)}
}

func (r *CatalogRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *CatalogRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `INSERT INTO events (id, name, starts_at) VALUES ($1, $2, $3)`

	_, err := exec(ctx, r.pool, stmt, event.ID, event.Name, event.StartsAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const q = `SELECT id, name, starts_at FROM events ORDER BY starts_at`

	rows, err := query(ctx, r.pool, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.StartsAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) CreateTicketType(ctx context.Context, tt domain.TicketType) error {
	const stmt = `
INSERT INTO ticket_types (id, event_id, name, unit_price, total_quantity, available_quantity, benefits, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := exec(ctx, r.pool, stmt,
		tt.ID, tt.EventID, tt.Name, tt.UnitPrice,
		tt.TotalQuantity, tt.AvailableQuantity, tt.Benefits, tt.Active, tt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create ticket type: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListTicketTypesByEvent(ctx context.Context, eventID string) ([]domain.TicketType, error) {
	const q = `
SELECT id, event_id, name, unit_price, total_quantity, available_quantity, benefits, is_active, created_at
FROM ticket_types
WHERE event_id = $1
ORDER BY created_at`

	rows, err := query(ctx, r.pool, q, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var out []domain.TicketType
	for rows.Next() {
		var tt domain.TicketType
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.UnitPrice,
			&tt.TotalQuantity, &tt.AvailableQuantity, &tt.Benefits, &tt.Active, &tt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	return r.tickets.GetTicket(ctx, ticketID)
}

func (r *CatalogRepository) ListTransfers(ctx context.Context, ticketID string) ([]domain.Transfer, error) {
	return r.tickets.ListTransfers(ctx, ticketID)
}
