package app

import (
	"context"
	"time"

	"github.com/gatepass/ticketing/internal/clock"
	"github.com/gatepass/ticketing/internal/domain"
)

type CatalogRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateTicketType(ctx context.Context, ticketType domain.TicketType) error
	ListTicketTypesByEvent(ctx context.Context, eventID string) ([]domain.TicketType, error)
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	ListTransfers(ctx context.Context, ticketID string) ([]domain.Transfer, error)
}

// CatalogService covers event/ticket-type administration and the read-only
// lookups exposed to dashboards and support tooling.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type TicketTypeInput struct {
	Name      string
	UnitPrice int
	Quantity  int
	Benefits  []string
	Active    bool
}

type CreateEventInput struct {
	Name        string
	StartsAt    *time.Time
	TicketTypes []TicketTypeInput
}

func (s *CatalogService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, []domain.TicketType, error) {
	if in.Name == "" {
		return domain.Event{}, nil, domain.ErrEventNameRequired
	}
	for _, tt := range in.TicketTypes {
		if tt.Name == "" {
			return domain.Event{}, nil, domain.ErrEventNameRequired
		}
		if tt.Quantity <= 0 || tt.UnitPrice < 0 {
			return domain.Event{}, nil, domain.ErrInvalidQuantity
		}
	}

	now := s.clock.Now()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	event := domain.Event{
		ID:       newID(),
		Name:     in.Name,
		StartsAt: startsAt,
	}
	ticketTypes := make([]domain.TicketType, 0, len(in.TicketTypes))

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateEvent(txCtx, event); err != nil {
			return err
		}
		for _, in := range in.TicketTypes {
			ticketType := domain.TicketType{
				ID:                newID(),
				EventID:           event.ID,
				Name:              in.Name,
				UnitPrice:         in.UnitPrice,
				TotalQuantity:     in.Quantity,
				AvailableQuantity: in.Quantity,
				Benefits:          in.Benefits,
				Active:            in.Active,
				CreatedAt:         now,
			}
			if err := s.repo.CreateTicketType(txCtx, ticketType); err != nil {
				return err
			}
			ticketTypes = append(ticketTypes, ticketType)
		}
		return nil
	})
	if err != nil {
		return domain.Event{}, nil, err
	}
	return event, ticketTypes, nil
}

func (s *CatalogService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

func (s *CatalogService) ListTicketTypes(ctx context.Context, eventID string) ([]domain.TicketType, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListTicketTypesByEvent(ctx, eventID)
}

// TicketStatus is the support/dashboard view of one ticket: the record plus
// its ownership history.
type TicketStatus struct {
	Ticket    domain.Ticket
	Transfers []domain.Transfer
}

func (s *CatalogService) TicketStatus(ctx context.Context, ticketID string) (TicketStatus, error) {
	if ticketID == "" {
		return TicketStatus{}, domain.ErrInvalidID
	}
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return TicketStatus{}, err
	}
	transfers, err := s.repo.ListTransfers(ctx, ticketID)
	if err != nil {
		return TicketStatus{}, err
	}
	return TicketStatus{Ticket: ticket, Transfers: transfers}, nil
}
