package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatepass/ticketing/internal/domain"
)

// PaymentSettler receives the idempotent settlement signal from the external
// payment collaborator.
type PaymentSettler interface {
	MarkPaid(ctx context.Context, ticketID string) error
	MarkCancelled(ctx context.Context, ticketID string) error
}

// HandlePaymentSignal returns an HTTP handler for settlement callbacks
// (POST /tickets/{id}/payment).
func HandlePaymentSignal(svc PaymentSettler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		ticketID, ok := parseTicketActionPath(r.URL.Path, "payment")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var req paymentSignalRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		var err error
		switch domain.PaymentStatus(req.Status) {
		case domain.PaymentPaid:
			err = svc.MarkPaid(r.Context(), ticketID)
		case domain.PaymentCancelled:
			err = svc.MarkCancelled(r.Context(), ticketID)
		default:
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "status must be paid or cancelled")
			return
		}
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTicketNotFound):
				writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case errors.Is(err, domain.ErrPaymentStateConflict):
				writeError(w, http.StatusConflict, codePaymentConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type paymentSignalRequest struct {
	Status string `json:"status"`
}
