package emission

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

type memStore struct {
	counter Counter
}

func (m *memStore) EmissionCounter(ctx context.Context) (Counter, error) {
	return m.counter, nil
}

func (m *memStore) AdvanceEmission(ctx context.Context, n uint64) (Counter, error) {
	m.counter.TotalMinted += n
	return m.counter, nil
}

func (m *memStore) ReleaseEmission(ctx context.Context, n uint64) (Counter, error) {
	if n > m.counter.TotalMinted {
		n = m.counter.TotalMinted
	}
	m.counter.TotalMinted -= n
	return m.counter, nil
}

func TestReserveWithinCap(t *testing.T) {
	ledger := NewLedger(&memStore{counter: Counter{Cap: 100}})

	if err := ledger.Reserve(context.Background(), 100); err != nil {
		t.Fatalf("reserve: %v", err)
	}
}

func TestReserveRejectsOverCap(t *testing.T) {
	store := &memStore{counter: Counter{TotalMinted: 90, Cap: 100}}
	ledger := NewLedger(store)

	err := ledger.Reserve(context.Background(), 11)
	if !errors.Is(err, ErrCapExceeded) {
		t.Fatalf("expected cap exceeded, got %v", err)
	}
	md := apperrors.GetMetadata(err)
	if md["remaining"] != "10" {
		t.Fatalf("expected remaining metadata 10, got %q", md["remaining"])
	}
	if store.counter.TotalMinted != 90 {
		t.Fatal("reserve must not mutate the counter")
	}
}

func TestCommitAdvancesExactly(t *testing.T) {
	store := &memStore{counter: Counter{Cap: 30}}
	ledger := NewLedger(store)

	counter, err := ledger.Commit(context.Background(), 15)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if counter.TotalMinted != 15 {
		t.Fatalf("expected total 15, got %d", counter.TotalMinted)
	}

	counter, err = ledger.Commit(context.Background(), 15)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if counter.TotalMinted != 30 {
		t.Fatalf("expected total 30, got %d", counter.TotalMinted)
	}

	if _, err := ledger.Commit(context.Background(), 1); !errors.Is(err, ErrCapExceeded) {
		t.Fatalf("expected cap exceeded at the boundary, got %v", err)
	}
}

func TestReleaseReturnsCommittedUnits(t *testing.T) {
	store := &memStore{counter: Counter{Cap: 30}}
	ledger := NewLedger(store)

	if _, err := ledger.Commit(context.Background(), 15); err != nil {
		t.Fatalf("commit: %v", err)
	}
	counter, err := ledger.Release(context.Background(), 15)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if counter.TotalMinted != 0 {
		t.Fatalf("expected total back to 0, got %d", counter.TotalMinted)
	}
	if err := ledger.Reserve(context.Background(), 30); err != nil {
		t.Fatalf("released budget must be reservable again: %v", err)
	}
}

func TestRemaining(t *testing.T) {
	if got := (Counter{TotalMinted: 5, Cap: 15}).Remaining(); got != 10 {
		t.Fatalf("expected remaining 10, got %d", got)
	}
	if got := (Counter{TotalMinted: 20, Cap: 15}).Remaining(); got != 0 {
		t.Fatalf("expected remaining 0 past cap, got %d", got)
	}
}
