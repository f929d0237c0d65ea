package app

import (
	"context"
	"fmt"
	"log"

	"github.com/gatepass/ticketing/internal/clock"
	"github.com/gatepass/ticketing/internal/domain"
)

type IssuanceRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error)
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	CreateTicket(ctx context.Context, ticket domain.Ticket) error
	// UpdatePaymentStatus swaps the payment status only when the ticket is
	// currently in from, reporting whether the swap applied.
	UpdatePaymentStatus(ctx context.Context, ticketID string, from, to domain.PaymentStatus) (bool, error)
}

// ProofIssuer mints the check-in credential for a ticket/owner pair.
type ProofIssuer interface {
	Issue(ticketID, eventID, ownerID string) (domain.Proof, error)
}

// IssuanceService orchestrates a purchase: reserve inventory, create the
// ticket rows, commit the reservation. Any failure after the reserve aborts
// it, so inventory is never left decremented without tickets.
type IssuanceService struct {
	repo           IssuanceRepository
	inventory      *InventoryService
	proofs         ProofIssuer
	clock          clock.Clock
	logger         *log.Logger
	maxPerPurchase int
}

const defaultMaxPerPurchase = 10

func NewIssuanceService(repo IssuanceRepository, inventory *InventoryService, proofs ProofIssuer, clk clock.Clock, opts ...IssuanceServiceOption) *IssuanceService {
	svc := &IssuanceService{
		repo:           repo,
		inventory:      inventory,
		proofs:         proofs,
		clock:          clk,
		logger:         log.Default(),
		maxPerPurchase: defaultMaxPerPurchase,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type IssuanceServiceOption func(*IssuanceService)

// WithMaxPerPurchase overrides the per-call quantity cap. This is purchase
// policy, not an inventory invariant.
func WithMaxPerPurchase(n int) IssuanceServiceOption {
	return func(s *IssuanceService) {
		if n > 0 {
			s.maxPerPurchase = n
		}
	}
}

func WithIssuanceLogger(logger *log.Logger) IssuanceServiceOption {
	return func(s *IssuanceService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type PurchaseInput struct {
	EventID      string
	TicketTypeID string
	OwnerID      string
	Quantity     int
}

func (s *IssuanceService) Purchase(ctx context.Context, in PurchaseInput) ([]domain.Ticket, error) {
	if in.Quantity <= 0 || in.Quantity > s.maxPerPurchase {
		return nil, domain.ErrInvalidQuantity
	}
	if in.OwnerID == "" {
		return nil, domain.ErrInvalidID
	}

	ticketType, err := s.repo.GetTicketType(ctx, in.TicketTypeID)
	if err != nil {
		return nil, err
	}
	if ticketType.EventID != in.EventID {
		return nil, domain.ErrEventNotFound
	}
	if !ticketType.Active {
		return nil, domain.ErrTicketTypeInactive
	}

	reservation, err := s.inventory.Reserve(ctx, in.TicketTypeID, in.Quantity)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	tickets := make([]domain.Ticket, 0, in.Quantity)

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		for i := 0; i < in.Quantity; i++ {
			ticketID := newID()
			proof, err := s.proofs.Issue(ticketID, in.EventID, in.OwnerID)
			if err != nil {
				return err
			}
			number, err := newTicketNumber()
			if err != nil {
				return err
			}

			ticket := domain.Ticket{
				ID:            ticketID,
				EventID:       in.EventID,
				TicketTypeID:  in.TicketTypeID,
				OwnerID:       in.OwnerID,
				UnitPrice:     ticketType.UnitPrice,
				TicketNumber:  number,
				PaymentStatus: domain.PaymentPending,
				Proof:         proof,
				CreatedAt:     now,
			}
			if err := s.repo.CreateTicket(txCtx, ticket); err != nil {
				return err
			}
			tickets = append(tickets, ticket)
		}
		// Committing inside the same transaction couples the reservation to
		// the ticket rows: either all land or none do.
		return s.inventory.Commit(txCtx, reservation.ID)
	})
	if err != nil {
		if abortErr := s.inventory.Abort(ctx, reservation.ID); abortErr != nil {
			// The sweep will pick the reservation up after its TTL.
			s.logger.Printf("WARN: abort reservation %s after failed purchase: %v", reservation.ID, abortErr)
		}
		return nil, err
	}
	return tickets, nil
}

// MarkPaid records the external settlement signal. Delivery is idempotent:
// marking a paid ticket paid again succeeds without effect.
func (s *IssuanceService) MarkPaid(ctx context.Context, ticketID string) error {
	swapped, err := s.repo.UpdatePaymentStatus(ctx, ticketID, domain.PaymentPending, domain.PaymentPaid)
	if err != nil {
		return err
	}
	if swapped {
		return nil
	}
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.PaymentStatus == domain.PaymentPaid {
		return nil
	}
	return fmt.Errorf("mark paid: ticket %s is %s: %w", ticketID, ticket.PaymentStatus, domain.ErrPaymentStateConflict)
}

// MarkCancelled records a cancelled payment and puts the unit back on the
// market. Only pending tickets cancel; repeated delivery is a no-op.
func (s *IssuanceService) MarkCancelled(ctx context.Context, ticketID string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.repo.GetTicket(txCtx, ticketID)
		if err != nil {
			return err
		}
		if ticket.PaymentStatus == domain.PaymentCancelled {
			return nil
		}
		if ticket.PaymentStatus == domain.PaymentPaid {
			return fmt.Errorf("mark cancelled: ticket %s is paid: %w", ticketID, domain.ErrPaymentStateConflict)
		}

		swapped, err := s.repo.UpdatePaymentStatus(txCtx, ticketID, domain.PaymentPending, domain.PaymentCancelled)
		if err != nil {
			return err
		}
		if !swapped {
			// Lost a race with another delivery; re-read to keep idempotency.
			current, err := s.repo.GetTicket(txCtx, ticketID)
			if err != nil {
				return err
			}
			if current.PaymentStatus == domain.PaymentCancelled {
				return nil
			}
			return fmt.Errorf("mark cancelled: ticket %s is %s: %w", ticketID, current.PaymentStatus, domain.ErrPaymentStateConflict)
		}
		if ticket.Used {
			return nil
		}
		return s.inventory.Release(txCtx, ticket.TicketTypeID, 1)
	})
}
