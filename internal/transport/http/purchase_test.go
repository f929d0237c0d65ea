package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gatepass/ticketing/internal/app"
	"github.com/gatepass/ticketing/internal/domain"
)

func TestHandlePurchase(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issued := []domain.Ticket{
		{
			ID:            "ticket-1",
			EventID:       "event-1",
			TicketTypeID:  "tt-1",
			OwnerID:       "alice",
			UnitPrice:     2500,
			TicketNumber:  "TKT-AAAA-BBBB-CCCC",
			PaymentStatus: domain.PaymentPending,
			Proof:         domain.Proof{Token: "tok-1", Nonce: "n-1", IssuedAt: now},
			CreatedAt:     now,
		},
	}

	tests := []struct {
		name           string
		method         string
		caller         string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"event_id":"event-1","ticket_type_id":"tt-1","quantity":1}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"ticket_number":"TKT-AAAA-BBBB-CCCC"`,
		},
		{
			name:           "method not allowed",
			method:         http.MethodGet,
			caller:         "alice",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "missing caller header",
			method:         http.MethodPost,
			body:           `{"event_id":"event-1","ticket_type_id":"tt-1","quantity":1}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"caller_id_required"`,
		},
		{
			name:           "invalid json",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"event_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown field",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"event_id":"event-1","ticket_type_id":"tt-1","quantity":1,"owner_id":"mallory"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing required fields",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"quantity":1}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"missing_required_field"`,
		},
		{
			name:           "invalid quantity",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"event_id":"event-1","ticket_type_id":"tt-1","quantity":0}`,
			serviceErr:     domain.ErrInvalidQuantity,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "ticket type not found",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"event_id":"event-1","ticket_type_id":"tt-x","quantity":1}`,
			serviceErr:     domain.ErrTicketTypeNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "inactive ticket type",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"event_id":"event-1","ticket_type_id":"tt-1","quantity":1}`,
			serviceErr:     domain.ErrTicketTypeInactive,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "out of stock",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"event_id":"event-1","ticket_type_id":"tt-1","quantity":1}`,
			serviceErr:     domain.ErrOutOfStock,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"out_of_stock"`,
		},
		{
			name:           "internal error",
			method:         http.MethodPost,
			caller:         "alice",
			body:           `{"event_id":"event-1","ticket_type_id":"tt-1","quantity":1}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubPurchaser{tickets: issued, err: tt.serviceErr}
			req := httptest.NewRequest(tt.method, "/purchases", bytes.NewBufferString(tt.body))
			if tt.caller != "" {
				req.Header.Set(callerHeader, tt.caller)
			}
			rec := httptest.NewRecorder()

			HandlePurchase(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (body %q)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandlePurchase_OwnerComesFromHeader(t *testing.T) {
	t.Parallel()

	svc := &stubPurchaser{}
	req := httptest.NewRequest(http.MethodPost, "/purchases",
		bytes.NewBufferString(`{"event_id":"event-1","ticket_type_id":"tt-1","quantity":2}`))
	req.Header.Set(callerHeader, "alice")
	rec := httptest.NewRecorder()

	HandlePurchase(svc).ServeHTTP(rec, req)

	if svc.gotInput.OwnerID != "alice" {
		t.Fatalf("expected owner from header, got %q", svc.gotInput.OwnerID)
	}
	if svc.gotInput.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", svc.gotInput.Quantity)
	}
}

type stubPurchaser struct {
	tickets  []domain.Ticket
	err      error
	gotInput app.PurchaseInput
}

func (s *stubPurchaser) Purchase(_ context.Context, in app.PurchaseInput) ([]domain.Ticket, error) {
	s.gotInput = in
	return s.tickets, s.err
}
