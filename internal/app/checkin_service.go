package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gatepass/ticketing/internal/clock"
	"github.com/gatepass/ticketing/internal/domain"
)

type CheckInRepository interface {
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	// MarkUsed performs the unused-to-used transition and writes the scan
	// metadata in one conditional statement guarded on used = false. It
	// reports whether the transition applied.
	MarkUsed(ctx context.Context, ticketID string, checkIn domain.CheckIn) (bool, error)
}

// ProofVerifier checks a presented token against a ticket's stored proof
// material. Failure is a flat boolean.
type ProofVerifier interface {
	Verify(token, ticketID, eventID, ownerID string, issuedAt time.Time, nonce string) bool
}

// CheckInService consumes a scanned proof and transitions the ticket from
// unused to used exactly once. Rejections are business outcomes, not errors
// to retry: a duplicate scan of a photographed QR code is expected traffic.
type CheckInService struct {
	repo   CheckInRepository
	proofs ProofVerifier
	clock  clock.Clock
}

func NewCheckInService(repo CheckInRepository, proofs ProofVerifier, clk clock.Clock) *CheckInService {
	return &CheckInService{
		repo:   repo,
		proofs: proofs,
		clock:  clk,
	}
}

type CheckInInput struct {
	TicketID string
	Token    string
	EventID  string
	// ScannerID is the externally-authorized gate operator identity.
	ScannerID string
	Location  string
}

// CheckInResult carries what the gate UI displays on admission.
type CheckInResult struct {
	Ticket  domain.Ticket
	Event   domain.Event
	OwnerID string
}

func (s *CheckInService) CheckIn(ctx context.Context, in CheckInInput) (CheckInResult, error) {
	ticket, err := s.repo.GetTicket(ctx, in.TicketID)
	if err != nil {
		return CheckInResult{}, err
	}

	// Guard order is part of the contract: a forged proof is reported as
	// such even when the ticket is also used or unpaid.
	if !s.proofs.Verify(in.Token, ticket.ID, ticket.EventID, ticket.OwnerID, ticket.Proof.IssuedAt, ticket.Proof.Nonce) {
		return CheckInResult{}, domain.ErrInvalidProof
	}
	if ticket.EventID != in.EventID {
		return CheckInResult{}, domain.ErrWrongEvent
	}
	if ticket.PaymentStatus != domain.PaymentPaid {
		return CheckInResult{}, domain.ErrPaymentNotSettled
	}
	if ticket.Used {
		return CheckInResult{}, alreadyUsed(ticket)
	}

	event, err := s.repo.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return CheckInResult{}, err
	}

	checkIn := domain.CheckIn{
		ScannedBy: in.ScannerID,
		ScannedAt: s.clock.Now(),
		Location:  in.Location,
	}
	swapped, err := s.repo.MarkUsed(ctx, ticket.ID, checkIn)
	if err != nil {
		// The transition may or may not have landed; the gate must re-scan
		// rather than assume either outcome.
		return CheckInResult{}, fmt.Errorf("%w: %w", domain.ErrCheckInIndeterminate, err)
	}
	if !swapped {
		// A concurrent scan won the race. Surface its metadata.
		current, readErr := s.repo.GetTicket(ctx, ticket.ID)
		if readErr == nil {
			return CheckInResult{}, alreadyUsed(current)
		}
		return CheckInResult{}, domain.ErrAlreadyUsed
	}

	ticket.Used = true
	ticket.CheckIn = &checkIn
	return CheckInResult{
		Ticket:  ticket,
		Event:   event,
		OwnerID: ticket.OwnerID,
	}, nil
}

func alreadyUsed(ticket domain.Ticket) error {
	if ticket.CheckIn != nil {
		return &domain.AlreadyUsedError{CheckIn: *ticket.CheckIn}
	}
	return domain.ErrAlreadyUsed
}
