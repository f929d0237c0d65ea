package app

import (
	"context"

	"github.com/gatepass/ticketing/internal/clock"
	"github.com/gatepass/ticketing/internal/domain"
)

type TransferRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error)
	// UpdateOwnerAndProof swaps the owner and proof in one statement guarded
	// on the current owner and used = false, reporting whether it applied.
	UpdateOwnerAndProof(ctx context.Context, ticketID, currentOwnerID, newOwnerID string, proof domain.Proof) (bool, error)
	AppendTransfer(ctx context.Context, transfer domain.Transfer) error
}

// TransferService reassigns ticket ownership. The proof is rotated in the
// same transaction, so the previous holder's token stops verifying the
// moment the transfer lands.
type TransferService struct {
	repo   TransferRepository
	proofs ProofIssuer
	clock  clock.Clock
}

func NewTransferService(repo TransferRepository, proofs ProofIssuer, clk clock.Clock) *TransferService {
	return &TransferService{
		repo:   repo,
		proofs: proofs,
		clock:  clk,
	}
}

func (s *TransferService) Transfer(ctx context.Context, ticketID, currentOwnerID, newOwnerID string) (domain.Ticket, error) {
	if newOwnerID == "" || currentOwnerID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}
	if newOwnerID == currentOwnerID {
		return domain.Ticket{}, domain.ErrInvalidID
	}

	var result domain.Ticket
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.repo.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		if ticket.OwnerID != currentOwnerID {
			return domain.ErrNotOwner
		}
		if ticket.Used {
			// A transfer after check-in is inert; report the consuming scan.
			return alreadyUsed(ticket)
		}
		if ticket.PaymentStatus != domain.PaymentPaid {
			return domain.ErrPaymentNotSettled
		}

		proof, err := s.proofs.Issue(ticket.ID, ticket.EventID, newOwnerID)
		if err != nil {
			return err
		}
		swapped, err := s.repo.UpdateOwnerAndProof(txCtx, ticket.ID, currentOwnerID, newOwnerID, proof)
		if err != nil {
			return err
		}
		if !swapped {
			// The row moved under us despite the lock; treat as a lost
			// ownership race.
			return domain.ErrNotOwner
		}

		transfer := domain.Transfer{
			TicketID:      ticket.ID,
			FromOwnerID:   currentOwnerID,
			ToOwnerID:     newOwnerID,
			TransferredAt: s.clock.Now(),
		}
		if err := s.repo.AppendTransfer(txCtx, transfer); err != nil {
			return err
		}

		ticket.OwnerID = newOwnerID
		ticket.Proof = proof
		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return result, nil
}
