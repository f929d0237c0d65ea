package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatepass/ticketing/internal/domain"
)

// TicketTransferrer is the minimal interface needed to reassign ownership.
type TicketTransferrer interface {
	Transfer(ctx context.Context, ticketID, currentOwnerID, newOwnerID string) (domain.Ticket, error)
}

// HandleTransfer returns an HTTP handler for ownership transfers
// (POST /tickets/{id}/transfer). The caller must be the current owner.
func HandleTransfer(svc TicketTransferrer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		ticketID, ok := parseTicketActionPath(r.URL.Path, "transfer")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		callerID := r.Header.Get(callerHeader)
		if callerID == "" {
			writeError(w, http.StatusBadRequest, codeCallerRequired, "caller identity required")
			return
		}

		var req transferRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ToOwnerID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "to_owner_id is required")
			return
		}

		ticket, err := svc.Transfer(r.Context(), ticketID, callerID, req.ToOwnerID)
		if err != nil {
			var usedErr *domain.AlreadyUsedError
			switch {
			case errors.Is(err, domain.ErrNotOwner):
				writeError(w, http.StatusForbidden, codeNotOwner, err.Error())
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
			case errors.Is(err, domain.ErrPaymentNotSettled):
				writeError(w, http.StatusConflict, codePaymentNotSettled, err.Error())
			case errors.Is(err, domain.ErrTicketNotFound):
				writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toTicketResponse(ticket))
	}
}

type transferRequest struct {
	ToOwnerID string `json:"to_owner_id"`
}
