package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gatepass/ticketing/internal/domain"
)

// InventoryReader serves the read-only counters for a ticket type.
type InventoryReader interface {
	Snapshot(ctx context.Context, ticketTypeID string) (domain.TicketType, error)
}

// CapacityEditor applies organizer capacity edits.
type CapacityEditor interface {
	ApplyTicketTypeEdit(ctx context.Context, ticketTypeID string, newTotalQuantity int) (domain.TicketType, error)
}

// HandleTicketTypes dispatches /ticket-types/{id} (GET snapshot) and
// /ticket-types/{id}/capacity (POST edit).
func HandleTicketTypes(inventory InventoryReader, capacity CapacityEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 2 && parts[0] == "ticket-types" && parts[1] != "":
			handleSnapshot(w, r, inventory, parts[1])
		case len(parts) == 3 && parts[0] == "ticket-types" && parts[2] == "capacity":
			handleCapacityEdit(w, r, capacity, parts[1])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleSnapshot(w http.ResponseWriter, r *http.Request, svc InventoryReader, ticketTypeID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	ticketType, err := svc.Snapshot(r.Context(), ticketTypeID)
	if err != nil {
		writeTicketTypeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toTicketTypeResponse(ticketType))
}

func handleCapacityEdit(w http.ResponseWriter, r *http.Request, svc CapacityEditor, ticketTypeID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	var req capacityEditRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	ticketType, err := svc.ApplyTicketTypeEdit(r.Context(), ticketTypeID, req.TotalQuantity)
	if err != nil {
		if errors.Is(err, domain.ErrWouldUndersell) {
			writeError(w, http.StatusConflict, codeWouldUndersell, err.Error())
			return
		}
		if errors.Is(err, domain.ErrInvalidQuantity) {
			writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
			return
		}
		writeTicketTypeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toTicketTypeResponse(ticketType))
}

func writeTicketTypeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTicketTypeNotFound):
		writeError(w, http.StatusNotFound, codeTicketTypeNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type capacityEditRequest struct {
	TotalQuantity int `json:"total_quantity"`
}

type ticketTypeResponse struct {
	ID                string    `json:"id"`
	EventID           string    `json:"event_id"`
	Name              string    `json:"name"`
	UnitPrice         int       `json:"unit_price"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	SoldQuantity      int       `json:"sold_quantity"`
	Benefits          []string  `json:"benefits"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

func toTicketTypeResponse(tt domain.TicketType) ticketTypeResponse {
	benefits := tt.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	return ticketTypeResponse{
		ID:                tt.ID,
		EventID:           tt.EventID,
		Name:              tt.Name,
		UnitPrice:         tt.UnitPrice,
		TotalQuantity:     tt.TotalQuantity,
		AvailableQuantity: tt.AvailableQuantity,
		SoldQuantity:      tt.Sold(),
		Benefits:          benefits,
		Active:            tt.Active,
		CreatedAt:         tt.CreatedAt,
	}
}
