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

// EventCatalog is the minimal interface needed for event administration.
// Organizer authorization happens upstream.
type EventCatalog interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, []domain.TicketType, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ListTicketTypes(ctx context.Context, eventID string) ([]domain.TicketType, error)
}

// HandleAdminEvents returns an HTTP handler for event creation/listing.
func HandleAdminEvents(svc EventCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, toEventResponse(event, nil))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.Name == "" {
				writeError(w, http.StatusBadRequest, codeEventNameRequired, domain.ErrEventNameRequired.Error())
				return
			}

			var startsAt *time.Time
			if req.StartsAt != "" {
				parsed, err := time.Parse(time.RFC3339, req.StartsAt)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
					return
				}
				startsAt = &parsed
			}

			in := app.CreateEventInput{
				Name:     req.Name,
				StartsAt: startsAt,
			}
			for _, tt := range req.TicketTypes {
				in.TicketTypes = append(in.TicketTypes, app.TicketTypeInput{
					Name:      tt.Name,
					UnitPrice: tt.UnitPrice,
					Quantity:  tt.Quantity,
					Benefits:  tt.Benefits,
					Active:    tt.Active,
				})
			}

			event, ticketTypes, err := svc.CreateEvent(r.Context(), in)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrEventNameRequired):
					writeError(w, http.StatusBadRequest, codeEventNameRequired, err.Error())
				case errors.Is(err, domain.ErrInvalidQuantity):
					writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toEventResponse(event, ticketTypes))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminEventTicketTypes returns an HTTP handler for
// GET /admin/events/{id}/ticket-types.
func HandleAdminEventTicketTypes(svc EventCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := parseAdminEventTicketTypesPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		ticketTypes, err := svc.ListTicketTypes(r.Context(), eventID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case errors.Is(err, domain.ErrEventNotFound):
				writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := make([]ticketTypeResponse, 0, len(ticketTypes))
		for _, tt := range ticketTypes {
			resp = append(resp, toTicketTypeResponse(tt))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func parseAdminEventTicketTypesPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return "", false
	}
	if parts[0] != "admin" || parts[1] != "events" || parts[3] != "ticket-types" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type createEventRequest struct {
	Name        string                   `json:"name"`
	StartsAt    string                   `json:"starts_at"`
	TicketTypes []createTicketTypeRecord `json:"ticket_types"`
}

type createTicketTypeRecord struct {
	Name      string   `json:"name"`
	UnitPrice int      `json:"unit_price"`
	Quantity  int      `json:"quantity"`
	Benefits  []string `json:"benefits"`
	Active    bool     `json:"active"`
}

type eventResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	StartsAt    time.Time            `json:"starts_at"`
	TicketTypes []ticketTypeResponse `json:"ticket_types,omitempty"`
}

func toEventResponse(event domain.Event, ticketTypes []domain.TicketType) eventResponse {
	resp := eventResponse{
		ID:       event.ID,
		Name:     event.Name,
		StartsAt: event.StartsAt,
	}
	for _, tt := range ticketTypes {
		resp.TicketTypes = append(resp.TicketTypes, toTicketTypeResponse(tt))
	}
	return resp
}
