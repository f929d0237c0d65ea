package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gatepass/ticketing/internal/app"
	"github.com/gatepass/ticketing/internal/domain"
)

// TicketReader serves the support/dashboard view of one ticket.
type TicketReader interface {
	TicketStatus(ctx context.Context, ticketID string) (app.TicketStatus, error)
}

// HandleTicketStatus returns an HTTP handler for GET /tickets/{id}. It also
// dispatches the POST sub-actions registered under /tickets/.
func HandleTicketStatus(svc TicketReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		ticketID, ok := parseTicketPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		status, err := svc.TicketStatus(r.Context(), ticketID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTicketNotFound):
				writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := ticketStatusResponse{
			Ticket:    toTicketResponse(status.Ticket),
			Transfers: make([]transferRecord, 0, len(status.Transfers)),
		}
		for _, t := range status.Transfers {
			resp.Transfers = append(resp.Transfers, transferRecord{
				FromOwnerID:   t.FromOwnerID,
				ToOwnerID:     t.ToOwnerID,
				TransferredAt: t.TransferredAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleTickets dispatches everything under /tickets/: the status read plus
// the checkin/transfer/payment sub-actions.
func HandleTickets(status, checkin, transfer, payment http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 2 && parts[0] == "tickets":
			status.ServeHTTP(w, r)
		case len(parts) == 3 && parts[0] == "tickets" && parts[2] == "checkin":
			checkin.ServeHTTP(w, r)
		case len(parts) == 3 && parts[0] == "tickets" && parts[2] == "transfer":
			transfer.ServeHTTP(w, r)
		case len(parts) == 3 && parts[0] == "tickets" && parts[2] == "payment":
			payment.ServeHTTP(w, r)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

// parseTicketPath matches /tickets/{id}.
func parseTicketPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "tickets" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type ticketStatusResponse struct {
	Ticket    ticketResponse   `json:"ticket"`
	Transfers []transferRecord `json:"transfers"`
}

type transferRecord struct {
	FromOwnerID   string    `json:"from_owner_id"`
	ToOwnerID     string    `json:"to_owner_id"`
	TransferredAt time.Time `json:"transferred_at"`
}
