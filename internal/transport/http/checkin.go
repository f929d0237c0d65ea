package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gatepass/ticketing/internal/app"
	"github.com/gatepass/ticketing/internal/domain"
)

// TicketCheckIner is the minimal interface needed to admit a ticket.
type TicketCheckIner interface {
	CheckIn(ctx context.Context, in app.CheckInInput) (app.CheckInResult, error)
}

// HandleCheckIn returns an HTTP handler for gate scans
// (POST /tickets/{id}/checkin).
func HandleCheckIn(svc TicketCheckIner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		ticketID, ok := parseTicketActionPath(r.URL.Path, "checkin")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		scannerID := r.Header.Get(callerHeader)
		if scannerID == "" {
			writeError(w, http.StatusBadRequest, codeCallerRequired, "caller identity required")
			return
		}

		var req checkInRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Proof == "" || req.EventID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "proof and event_id are required")
			return
		}

		res, err := svc.CheckIn(r.Context(), app.CheckInInput{
			TicketID:  ticketID,
			Token:     req.Proof,
			EventID:   req.EventID,
			ScannerID: scannerID,
			Location:  req.Location,
		})
		if err != nil {
			writeCheckInError(w, err)
			return
		}

		resp := checkInResponse{
			Ticket:    toTicketResponse(res.Ticket),
			EventName: res.Event.Name,
			OwnerID:   res.OwnerID,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func writeCheckInError(w http.ResponseWriter, err error) {
	var usedErr *domain.AlreadyUsedError
	switch {
	case errors.As(err, &usedErr):
		scannedAt := usedErr.CheckIn.ScannedAt
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:     domain.ErrAlreadyUsed.Error(),
			Code:      codeAlreadyUsed,
			ScannedBy: usedErr.CheckIn.ScannedBy,
			ScannedAt: &scannedAt,
		})
	case errors.Is(err, domain.ErrAlreadyUsed):
		writeError(w, http.StatusConflict, codeAlreadyUsed, err.Error())
	case errors.Is(err, domain.ErrInvalidProof):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidProof, err.Error())
	case errors.Is(err, domain.ErrWrongEvent):
		writeError(w, http.StatusUnprocessableEntity, codeWrongEvent, err.Error())
	case errors.Is(err, domain.ErrPaymentNotSettled):
		writeError(w, http.StatusUnprocessableEntity, codePaymentNotSettled, err.Error())
	case errors.Is(err, domain.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrCheckInIndeterminate):
		// The scan may or may not have landed; the gate must re-scan rather
		// than retry blindly.
		writeError(w, http.StatusServiceUnavailable, codeIndeterminate, domain.ErrCheckInIndeterminate.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// parseTicketActionPath matches /tickets/{id}/{action}.
func parseTicketActionPath(path, action string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "tickets" || parts[2] != action {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type checkInRequest struct {
	Proof    string `json:"proof"`
	EventID  string `json:"event_id"`
	Location string `json:"location"`
}

type checkInResponse struct {
	Ticket    ticketResponse `json:"ticket"`
	EventName string         `json:"event_name"`
	OwnerID   string         `json:"owner_id"`
}
