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

	"github.com/gatepass/ticketing/internal/domain"
)

func TestHandleTicketTypes_Snapshot(t *testing.T) {
	t.Parallel()

	snapshot := domain.TicketType{
		ID:                "tt-1",
		EventID:           "event-1",
		Name:              "General Admission",
		UnitPrice:         2500,
		TotalQuantity:     100,
		AvailableQuantity: 60,
		Active:            true,
		CreatedAt:         time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name           string
		method         string
		path           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success includes sold count",
			method:         http.MethodGet,
			path:           "/ticket-types/tt-1",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"sold_quantity":40`,
		},
		{
			name:           "method not allowed",
			method:         http.MethodDelete,
			path:           "/ticket-types/tt-1",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "not found",
			method:         http.MethodGet,
			path:           "/ticket-types/tt-x",
			serviceErr:     domain.ErrTicketTypeNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid id",
			method:         http.MethodGet,
			path:           "/ticket-types/not-a-uuid",
			serviceErr:     domain.ErrInvalidID,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown sub-path",
			method:         http.MethodGet,
			path:           "/ticket-types/tt-1/extras",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			inv := &stubInventoryReader{ticketType: snapshot, err: tt.serviceErr}
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			HandleTicketTypes(inv, &stubCapacityEditor{}).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (body %q)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleTicketTypes_CapacityEdit(t *testing.T) {
	t.Parallel()

	edited := domain.TicketType{
		ID:                "tt-1",
		EventID:           "event-1",
		TotalQuantity:     60,
		AvailableQuantity: 20,
	}

	tests := []struct {
		name           string
		method         string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			method:         http.MethodPost,
			body:           `{"total_quantity":60}`,
			expectedStatus: http.StatusOK,
			expectedSubstr: `"available_quantity":20`,
		},
		{
			name:           "method not allowed",
			method:         http.MethodGet,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "invalid json",
			method:         http.MethodPost,
			body:           `{"total_quantity":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "would undersell",
			method:         http.MethodPost,
			body:           `{"total_quantity":30}`,
			serviceErr:     domain.ErrWouldUndersell,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"code":"would_undersell"`,
		},
		{
			name:           "negative total",
			method:         http.MethodPost,
			body:           `{"total_quantity":-1}`,
			serviceErr:     domain.ErrInvalidQuantity,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not found",
			method:         http.MethodPost,
			body:           `{"total_quantity":60}`,
			serviceErr:     domain.ErrTicketTypeNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			method:         http.MethodPost,
			body:           `{"total_quantity":60}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			capSvc := &stubCapacityEditor{ticketType: edited, err: tt.serviceErr}
			req := httptest.NewRequest(tt.method, "/ticket-types/tt-1/capacity", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleTicketTypes(&stubInventoryReader{}, capSvc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (body %q)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

type stubInventoryReader struct {
	ticketType domain.TicketType
	err        error
}

func (s *stubInventoryReader) Snapshot(_ context.Context, _ string) (domain.TicketType, error) {
	return s.ticketType, s.err
}

type stubCapacityEditor struct {
	ticketType domain.TicketType
	err        error
	gotTotal   int
}

func (s *stubCapacityEditor) ApplyTicketTypeEdit(_ context.Context, _ string, newTotalQuantity int) (domain.TicketType, error) {
	s.gotTotal = newTotalQuantity
	return s.ticketType, s.err
}
