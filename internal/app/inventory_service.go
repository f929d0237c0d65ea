package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gatepass/ticketing/internal/clock"
	"github.com/gatepass/ticketing/internal/domain"
)

type InventoryRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error)
	// DecrementAvailable conditionally subtracts qty from available_quantity
	// in a single statement guarded by available_quantity >= qty. It returns
	// domain.ErrOutOfStock when the guard fails.
	DecrementAvailable(ctx context.Context, ticketTypeID string, qty int) error
	// IncrementAvailable adds qty back, clamped at total_quantity. It reports
	// whether the clamp was hit, which signals a bookkeeping bug upstream.
	IncrementAvailable(ctx context.Context, ticketTypeID string, qty int) (clamped bool, err error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	// UpdateReservationStatus swaps the status only when the reservation is
	// currently in from. It returns the reservation as stored and whether the
	// swap applied.
	UpdateReservationStatus(ctx context.Context, reservationID string, from, to domain.ReservationStatus) (domain.Reservation, bool, error)
	ListExpiredPendingReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

// InventoryService owns the capacity counters of ticket types. All contended
// writes go through conditional updates so two callers racing for the last
// unit cannot both win.
type InventoryService struct {
	repo           InventoryRepository
	clock          clock.Clock
	logger         *log.Logger
	reservationTTL time.Duration
}

const defaultReservationTTL = 15 * time.Minute

func NewInventoryService(repo InventoryRepository, clk clock.Clock, opts ...InventoryServiceOption) *InventoryService {
	svc := &InventoryService{
		repo:           repo,
		clock:          clk,
		logger:         log.Default(),
		reservationTTL: defaultReservationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type InventoryServiceOption func(*InventoryService)

// WithReservationTTL overrides how long a pending reservation survives
// before the sweep releases it.
func WithReservationTTL(d time.Duration) InventoryServiceOption {
	return func(s *InventoryService) {
		if d > 0 {
			s.reservationTTL = d
		}
	}
}

func WithInventoryLogger(logger *log.Logger) InventoryServiceOption {
	return func(s *InventoryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Reserve provisionally takes qty units off the market. The decrement and
// the reservation row land in one transaction; the reservation stays pending
// until Commit or Abort.
func (s *InventoryService) Reserve(ctx context.Context, ticketTypeID string, qty int) (domain.Reservation, error) {
	if qty <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	res := domain.Reservation{
		ID:           newID(),
		TicketTypeID: ticketTypeID,
		Quantity:     qty,
		Status:       domain.ReservationPending,
		ExpiresAt:    now.Add(s.reservationTTL),
		CreatedAt:    now,
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.DecrementAvailable(txCtx, ticketTypeID, qty); err != nil {
			return err
		}
		return s.repo.CreateReservation(txCtx, res)
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

// Commit finalizes a pending reservation. Committing twice is a no-op so
// issuance retries stay safe.
func (s *InventoryService) Commit(ctx context.Context, reservationID string) error {
	stored, swapped, err := s.repo.UpdateReservationStatus(ctx, reservationID, domain.ReservationPending, domain.ReservationCommitted)
	if err != nil {
		return err
	}
	if swapped || stored.Status == domain.ReservationCommitted {
		return nil
	}
	return fmt.Errorf("commit reservation %s: already %s", reservationID, stored.Status)
}

// Abort cancels a pending reservation and puts its quantity back. Aborting a
// reservation that is no longer pending is a no-op, so callers can retry
// after a timeout without double-releasing.
func (s *InventoryService) Abort(ctx context.Context, reservationID string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		stored, swapped, err := s.repo.UpdateReservationStatus(txCtx, reservationID, domain.ReservationPending, domain.ReservationReleased)
		if err != nil {
			return err
		}
		if !swapped {
			return nil
		}
		return s.release(txCtx, stored.TicketTypeID, stored.Quantity)
	})
}

// Release puts qty units back on the market, clamped at the configured
// total. Used by payment cancellation of unused tickets.
func (s *InventoryService) Release(ctx context.Context, ticketTypeID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return s.release(ctx, ticketTypeID, qty)
}

func (s *InventoryService) release(ctx context.Context, ticketTypeID string, qty int) error {
	clamped, err := s.repo.IncrementAvailable(ctx, ticketTypeID, qty)
	if err != nil {
		return err
	}
	if clamped {
		// Exceeding total means a release without a matching decrement.
		s.logger.Printf("WARN: release clamped for ticket type %s (qty=%d): available would exceed total", ticketTypeID, qty)
	}
	return nil
}

// Snapshot returns the current counters for dashboards and availability
// displays.
func (s *InventoryService) Snapshot(ctx context.Context, ticketTypeID string) (domain.TicketType, error) {
	return s.repo.GetTicketType(ctx, ticketTypeID)
}

// SweepExpired releases pending reservations whose TTL has passed. This is
// the recovery path for purchases that crashed between the decrement and
// ticket creation; it runs periodically from main.
func (s *InventoryService) SweepExpired(ctx context.Context) (int, error) {
	const batchSize = 100

	released := 0
	for {
		expired, err := s.repo.ListExpiredPendingReservations(ctx, s.clock.Now(), batchSize)
		if err != nil {
			return released, err
		}
		for _, res := range expired {
			if err := s.Abort(ctx, res.ID); err != nil {
				return released, fmt.Errorf("sweep reservation %s: %w", res.ID, err)
			}
			released++
		}
		if len(expired) < batchSize {
			return released, nil
		}
	}
}
