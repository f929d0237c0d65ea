package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gatepass/ticketing/internal/app"
	"github.com/gatepass/ticketing/internal/domain"
)

// TicketPurchaser is the minimal interface needed to issue tickets.
type TicketPurchaser interface {
	Purchase(ctx context.Context, in app.PurchaseInput) ([]domain.Ticket, error)
}

// HandlePurchase returns an HTTP handler for ticket purchases.
func HandlePurchase(svc TicketPurchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		ownerID := r.Header.Get(callerHeader)
		if ownerID == "" {
			writeError(w, http.StatusBadRequest, codeCallerRequired, "caller identity required")
			return
		}

		var req purchaseRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.EventID == "" || req.TicketTypeID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "event_id and ticket_type_id are required")
			return
		}

		tickets, err := svc.Purchase(r.Context(), app.PurchaseInput{
			EventID:      req.EventID,
			TicketTypeID: req.TicketTypeID,
			OwnerID:      ownerID,
			Quantity:     req.Quantity,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidQuantity):
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case errors.Is(err, domain.ErrEventNotFound):
				writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
			case errors.Is(err, domain.ErrTicketTypeNotFound):
				writeError(w, http.StatusNotFound, codeTicketTypeNotFound, err.Error())
			case errors.Is(err, domain.ErrTicketTypeInactive):
				writeError(w, http.StatusConflict, codeTicketTypeInactive, err.Error())
			case errors.Is(err, domain.ErrOutOfStock):
				writeError(w, http.StatusConflict, codeOutOfStock, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := purchaseResponse{Tickets: make([]ticketResponse, 0, len(tickets))}
		for _, t := range tickets {
			resp.Tickets = append(resp.Tickets, toTicketResponse(t))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type purchaseRequest struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

type purchaseResponse struct {
	Tickets []ticketResponse `json:"tickets"`
}

type ticketResponse struct {
	ID            string         `json:"id"`
	EventID       string         `json:"event_id"`
	TicketTypeID  string         `json:"ticket_type_id"`
	OwnerID       string         `json:"owner_id"`
	UnitPrice     int            `json:"unit_price"`
	TicketNumber  string         `json:"ticket_number"`
	PaymentStatus string         `json:"payment_status"`
	Used          bool           `json:"used"`
	ProofToken    string         `json:"proof_token"`
	CheckIn       *checkInRecord `json:"check_in,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type checkInRecord struct {
	ScannedBy string    `json:"scanned_by"`
	ScannedAt time.Time `json:"scanned_at"`
	Location  string    `json:"location,omitempty"`
}

func toTicketResponse(t domain.Ticket) ticketResponse {
	resp := ticketResponse{
		ID:            t.ID,
		EventID:       t.EventID,
		TicketTypeID:  t.TicketTypeID,
		OwnerID:       t.OwnerID,
		UnitPrice:     t.UnitPrice,
		TicketNumber:  t.TicketNumber,
		PaymentStatus: string(t.PaymentStatus),
		Used:          t.Used,
		ProofToken:    t.Proof.Token,
		CreatedAt:     t.CreatedAt,
	}
	if t.CheckIn != nil {
		resp.CheckIn = &checkInRecord{
			ScannedBy: t.CheckIn.ScannedBy,
			ScannedAt: t.CheckIn.ScannedAt,
			Location:  t.CheckIn.Location,
		}
	}
	return resp
}
