// Package emission enforces the global emission cap.
package emission

import (
	"context"
	"strconv"
	"sync"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

// ErrCapExceeded indicates an open would push total minted past the cap.
var ErrCapExceeded = apperrors.New(apperrors.CodeEmissionCapExceeded, "emission cap exceeded")

// Counter is the process-wide emission counter.
type Counter struct {
	TotalMinted uint64
	Cap         uint64
}

// Remaining returns how many units can still be minted.
func (c Counter) Remaining() uint64 {
	if c.TotalMinted >= c.Cap {
		return 0
	}
	return c.Cap - c.TotalMinted
}

// Store persists the emission counter.
type Store interface {
	// EmissionCounter reads the current counter.
	EmissionCounter(ctx context.Context) (Counter, error)
	// AdvanceEmission adds n to total minted and returns the new counter.
	AdvanceEmission(ctx context.Context, n uint64) (Counter, error)
	// ReleaseEmission subtracts n from total minted, flooring at zero.
	ReleaseEmission(ctx context.Context, n uint64) (Counter, error)
}

// Ledger tracks cumulative minted units against a fixed cap.
//
// Reserve is an advisory read-only check; Commit advances the counter
// exactly once per fulfilled request, after minting succeeds. Release is
// the compensating move for a fulfillment whose committed units were
// burned back.
type Ledger struct {
	mu    sync.Mutex
	store Store
}

// NewLedger creates an emission ledger over the provided store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Reserve checks that n more units fit under the cap. It mutates nothing.
func (l *Ledger) Reserve(ctx context.Context, n uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	counter, err := l.store.EmissionCounter(ctx)
	if err != nil {
		return err
	}
	if counter.Remaining() < n {
		return apperrors.WithMetadata(apperrors.CodeEmissionCapExceeded, "emission cap exceeded", map[string]string{
			"requested": strconv.FormatUint(n, 10),
			"remaining": strconv.FormatUint(counter.Remaining(), 10),
		})
	}
	return nil
}

// Commit advances the counter by n after a successful mint.
func (l *Ledger) Commit(ctx context.Context, n uint64) (Counter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counter, err := l.store.EmissionCounter(ctx)
	if err != nil {
		return Counter{}, err
	}
	if counter.Remaining() < n {
		// Reserve was checked before minting; reaching this means a second
		// fulfillment raced past its reservation.
		return Counter{}, ErrCapExceeded
	}
	return l.store.AdvanceEmission(ctx, n)
}

// Release returns n committed units to the remaining budget after the
// instances they counted were burned.
func (l *Ledger) Release(ctx context.Context, n uint64) (Counter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.ReleaseEmission(ctx, n)
}
