package app

import (
	"context"

	"github.com/gatepass/ticketing/internal/domain"
)

type CapacityRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketTypeForUpdate(ctx context.Context, ticketTypeID string) (domain.TicketType, error)
	SetQuantities(ctx context.Context, ticketTypeID string, total, available int) error
}

// CapacityService applies organizer edits to ticket-type capacity. The sold
// count is read fresh under a row lock, so an edit racing a purchase is
// serialized after it and the undersell check sees the real numbers.
type CapacityService struct {
	repo CapacityRepository
}

func NewCapacityService(repo CapacityRepository) *CapacityService {
	return &CapacityService{repo: repo}
}

func (s *CapacityService) ApplyTicketTypeEdit(ctx context.Context, ticketTypeID string, newTotalQuantity int) (domain.TicketType, error) {
	if newTotalQuantity < 0 {
		return domain.TicketType{}, domain.ErrInvalidQuantity
	}

	var result domain.TicketType
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticketType, err := s.repo.GetTicketTypeForUpdate(txCtx, ticketTypeID)
		if err != nil {
			return err
		}

		sold := ticketType.Sold()
		if newTotalQuantity < sold {
			return domain.ErrWouldUndersell
		}

		available := newTotalQuantity - sold
		if err := s.repo.SetQuantities(txCtx, ticketTypeID, newTotalQuantity, available); err != nil {
			return err
		}

		ticketType.TotalQuantity = newTotalQuantity
		ticketType.AvailableQuantity = available
		result = ticketType
		return nil
	})
	if err != nil {
		return domain.TicketType{}, err
	}
	return result, nil
}
