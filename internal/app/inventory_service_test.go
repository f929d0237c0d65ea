package app

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatepass/ticketing/internal/clock"
	"github.com/gatepass/ticketing/internal/domain"
)

func TestInventoryService_Reserve(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ttl := 10 * time.Minute

	t.Run("decrements and records a pending reservation", func(t *testing.T) {
		t.Parallel()
		repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", EventID: "event-1", TotalQuantity: 100, AvailableQuantity: 100, Active: true})
		svc := NewInventoryService(repo, clock.NewFixed(now), WithReservationTTL(ttl))

		res, err := svc.Reserve(context.Background(), "tt-1", 3)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.ID == "" {
			t.Fatalf("expected reservation ID to be set")
		}
		if res.Status != domain.ReservationPending {
			t.Fatalf("expected status %s, got %s", domain.ReservationPending, res.Status)
		}
		if !res.ExpiresAt.Equal(now.Add(ttl)) {
			t.Fatalf("expected expires_at %v, got %v", now.Add(ttl), res.ExpiresAt)
		}
		if got := repo.available("tt-1"); got != 97 {
			t.Fatalf("expected available 97, got %d", got)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		t.Parallel()
		repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", TotalQuantity: 10, AvailableQuantity: 10})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		for _, qty := range []int{0, -1} {
			if _, err := svc.Reserve(context.Background(), "tt-1", qty); !errors.Is(err, domain.ErrInvalidQuantity) {
				t.Fatalf("qty %d: expected ErrInvalidQuantity, got %v", qty, err)
			}
		}
	})

	t.Run("out of stock leaves counters untouched", func(t *testing.T) {
		t.Parallel()
		repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", TotalQuantity: 10, AvailableQuantity: 2})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		_, err := svc.Reserve(context.Background(), "tt-1", 3)
		if !errors.Is(err, domain.ErrOutOfStock) {
			t.Fatalf("expected ErrOutOfStock, got %v", err)
		}
		if got := repo.available("tt-1"); got != 2 {
			t.Fatalf("expected available unchanged at 2, got %d", got)
		}
		if n := repo.reservationCount(); n != 0 {
			t.Fatalf("expected no reservations, got %d", n)
		}
	})

	t.Run("unknown ticket type", func(t *testing.T) {
		t.Parallel()
		repo := newFakeInventoryRepo()
		svc := NewInventoryService(repo, clock.NewFixed(now))

		if _, err := svc.Reserve(context.Background(), "missing", 1); !errors.Is(err, domain.ErrTicketTypeNotFound) {
			t.Fatalf("expected ErrTicketTypeNotFound, got %v", err)
		}
	})
}

func TestInventoryService_Reserve_NeverOversells(t *testing.T) {
	t.Parallel()

	const total = 10
	const callers = 25

	repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", TotalQuantity: total, AvailableQuantity: total})
	svc := NewInventoryService(repo, clock.NewSystem())

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), "tt-1", 1)
		}(i)
	}
	wg.Wait()

	won := 0
	for i, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrOutOfStock):
		default:
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	if won != total {
		t.Fatalf("expected exactly %d successful reservations, got %d", total, won)
	}
	if got := repo.available("tt-1"); got != 0 {
		t.Fatalf("expected available 0, got %d", got)
	}
}

func TestInventoryService_CommitAndAbort(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*InventoryService, *fakeInventoryRepo, domain.Reservation) {
		t.Helper()
		repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", TotalQuantity: 10, AvailableQuantity: 10})
		svc := NewInventoryService(repo, clock.NewFixed(now))
		res, err := svc.Reserve(context.Background(), "tt-1", 4)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		return svc, repo, res
	}

	t.Run("commit is idempotent", func(t *testing.T) {
		t.Parallel()
		svc, repo, res := setup(t)

		if err := svc.Commit(context.Background(), res.ID); err != nil {
			t.Fatalf("commit: %v", err)
		}
		if err := svc.Commit(context.Background(), res.ID); err != nil {
			t.Fatalf("second commit: %v", err)
		}
		if got := repo.available("tt-1"); got != 6 {
			t.Fatalf("expected available 6 after commit, got %d", got)
		}
	})

	t.Run("commit of a released reservation fails", func(t *testing.T) {
		t.Parallel()
		svc, _, res := setup(t)

		if err := svc.Abort(context.Background(), res.ID); err != nil {
			t.Fatalf("abort: %v", err)
		}
		if err := svc.Commit(context.Background(), res.ID); err == nil {
			t.Fatalf("expected commit after release to fail")
		}
	})

	t.Run("abort restores availability once", func(t *testing.T) {
		t.Parallel()
		svc, repo, res := setup(t)

		if err := svc.Abort(context.Background(), res.ID); err != nil {
			t.Fatalf("abort: %v", err)
		}
		if got := repo.available("tt-1"); got != 10 {
			t.Fatalf("expected available restored to 10, got %d", got)
		}

		// A second abort must not release the quantity again.
		if err := svc.Abort(context.Background(), res.ID); err != nil {
			t.Fatalf("second abort: %v", err)
		}
		if got := repo.available("tt-1"); got != 10 {
			t.Fatalf("expected available still 10, got %d", got)
		}
	})

	t.Run("abort of a committed reservation is a no-op", func(t *testing.T) {
		t.Parallel()
		svc, repo, res := setup(t)

		if err := svc.Commit(context.Background(), res.ID); err != nil {
			t.Fatalf("commit: %v", err)
		}
		if err := svc.Abort(context.Background(), res.ID); err != nil {
			t.Fatalf("abort: %v", err)
		}
		if got := repo.available("tt-1"); got != 6 {
			t.Fatalf("expected available 6, got %d", got)
		}
	})

	t.Run("unknown reservation", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := setup(t)
		if err := svc.Commit(context.Background(), "missing"); !errors.Is(err, domain.ErrReservationNotFound) {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})
}

func TestInventoryService_Release(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("puts quantity back", func(t *testing.T) {
		t.Parallel()
		repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", TotalQuantity: 10, AvailableQuantity: 5})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		if err := svc.Release(context.Background(), "tt-1", 2); err != nil {
			t.Fatalf("release: %v", err)
		}
		if got := repo.available("tt-1"); got != 7 {
			t.Fatalf("expected available 7, got %d", got)
		}
	})

	t.Run("clamps at total and warns", func(t *testing.T) {
		t.Parallel()
		repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", TotalQuantity: 10, AvailableQuantity: 9})

		var buf bytes.Buffer
		logger := log.New(&buf, "", 0)
		svc := NewInventoryService(repo, clock.NewFixed(now), WithInventoryLogger(logger))

		if err := svc.Release(context.Background(), "tt-1", 5); err != nil {
			t.Fatalf("release: %v", err)
		}
		if got := repo.available("tt-1"); got != 10 {
			t.Fatalf("expected available clamped at 10, got %d", got)
		}
		if !strings.Contains(buf.String(), "clamped") {
			t.Fatalf("expected clamp warning in log, got %q", buf.String())
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		t.Parallel()
		repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", TotalQuantity: 10, AvailableQuantity: 10})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		if err := svc.Release(context.Background(), "tt-1", 0); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestInventoryService_SweepExpired(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ttl := 10 * time.Minute

	clk := clock.NewFake(start)
	repo := newFakeInventoryRepo(domain.TicketType{ID: "tt-1", TotalQuantity: 20, AvailableQuantity: 20})
	svc := NewInventoryService(repo, clk, WithReservationTTL(ttl))

	expired, err := svc.Reserve(context.Background(), "tt-1", 3)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	committed, err := svc.Reserve(context.Background(), "tt-1", 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Commit(context.Background(), committed.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Nothing has expired yet.
	n, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 released before expiry, got %d", n)
	}

	clk.Advance(ttl + time.Second)

	n, err = svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 released, got %d", n)
	}
	// Only the pending reservation's quantity comes back.
	if got := repo.available("tt-1"); got != 18 {
		t.Fatalf("expected available 18, got %d", got)
	}
	if status := repo.reservationStatus(expired.ID); status != domain.ReservationReleased {
		t.Fatalf("expected expired reservation released, got %s", status)
	}
	if status := repo.reservationStatus(committed.ID); status != domain.ReservationCommitted {
		t.Fatalf("expected committed reservation untouched, got %s", status)
	}

	// A second sweep finds nothing.
	n, err = svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 released on second sweep, got %d", n)
	}
}

// fakeInventoryRepo is an in-memory InventoryRepository. A single mutex
// stands in for the database's statement-level atomicity.
type fakeInventoryRepo struct {
	mu           sync.Mutex
	ticketTypes  map[string]domain.TicketType
	reservations map[string]domain.Reservation

	createReservationErr error
}

func newFakeInventoryRepo(ticketTypes ...domain.TicketType) *fakeInventoryRepo {
	tt := make(map[string]domain.TicketType, len(ticketTypes))
	for _, t := range ticketTypes {
		tt[t.ID] = t
	}
	return &fakeInventoryRepo{
		ticketTypes:  tt,
		reservations: make(map[string]domain.Reservation),
	}
}

func (f *fakeInventoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeInventoryRepo) GetTicketType(_ context.Context, id string) (domain.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.ticketTypes[id]
	if !ok {
		return domain.TicketType{}, domain.ErrTicketTypeNotFound
	}
	return tt, nil
}

func (f *fakeInventoryRepo) DecrementAvailable(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.ticketTypes[id]
	if !ok {
		return domain.ErrTicketTypeNotFound
	}
	if tt.AvailableQuantity < qty {
		return domain.ErrOutOfStock
	}
	tt.AvailableQuantity -= qty
	f.ticketTypes[id] = tt
	return nil
}

func (f *fakeInventoryRepo) IncrementAvailable(_ context.Context, id string, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.ticketTypes[id]
	if !ok {
		return false, domain.ErrTicketTypeNotFound
	}
	clamped := tt.AvailableQuantity+qty > tt.TotalQuantity
	tt.AvailableQuantity += qty
	if clamped {
		tt.AvailableQuantity = tt.TotalQuantity
	}
	f.ticketTypes[id] = tt
	return clamped, nil
}

func (f *fakeInventoryRepo) CreateReservation(_ context.Context, res domain.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createReservationErr != nil {
		return f.createReservationErr
	}
	f.reservations[res.ID] = res
	return nil
}

func (f *fakeInventoryRepo) UpdateReservationStatus(_ context.Context, id string, from, to domain.ReservationStatus) (domain.Reservation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, false, domain.ErrReservationNotFound
	}
	if res.Status != from {
		return res, false, nil
	}
	res.Status = to
	f.reservations[id] = res
	return res, true, nil
}

func (f *fakeInventoryRepo) ListExpiredPendingReservations(_ context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.Status != domain.ReservationPending {
			continue
		}
		if res.ExpiresAt.After(now) {
			continue
		}
		out = append(out, res)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) available(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticketTypes[id].AvailableQuantity
}

func (f *fakeInventoryRepo) reservationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reservations)
}

func (f *fakeInventoryRepo) reservationStatus(id string) domain.ReservationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservations[id].Status
}
