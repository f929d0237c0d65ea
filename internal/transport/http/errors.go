package http

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidStartsAt      = "invalid_starts_at"
	codeInvalidID            = "invalid_id"
	codeInvalidQuantity      = "invalid_quantity"
	codeEventNameRequired    = "event_name_required"
	codeEventNotFound        = "event_not_found"
	codeTicketTypeNotFound   = "ticket_type_not_found"
	codeTicketNotFound       = "ticket_not_found"
	codeTicketTypeInactive   = "ticket_type_inactive"
	codeOutOfStock           = "out_of_stock"
	codeInvalidProof         = "invalid_proof"
	codeWrongEvent           = "wrong_event"
	codePaymentNotSettled    = "payment_not_settled"
	codePaymentConflict      = "payment_state_conflict"
	codeAlreadyUsed          = "already_used"
	codeNotOwner             = "not_owner"
	codeWouldUndersell       = "would_undersell"
	codeCallerRequired       = "caller_id_required"
	codeIndeterminate        = "check_in_indeterminate"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

// callerHeader carries the externally-verified caller identity; this service
// does not authenticate (the gateway does).
const callerHeader = "X-Caller-ID"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// Set only for already_used rejections: the original consuming scan, so
	// the gate operator can see who got in first and when.
	ScannedBy string     `json:"scanned_by,omitempty"`
	ScannedAt *time.Time `json:"scanned_at,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
