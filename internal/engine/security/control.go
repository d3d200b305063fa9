// Package security holds the process-wide emergency flags and the guards
// every mutating entry point evaluates.
package security

import (
	"context"
	"sync"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

// Flags are the process-wide security toggles.
type Flags struct {
	EmergencyPause     bool
	MintingLocked      bool
	PriceChangesLocked bool
	// CatalogLocked is one-way: once set it can never be cleared.
	CatalogLocked bool
}

// Store persists the security flags.
type Store interface {
	SecurityFlags(ctx context.Context) (Flags, error)
	SetSecurityFlags(ctx context.Context, flags Flags) error
}

// Control mediates all reads and writes of the security flags.
//
// Flags are only mutated by an authorized controller; the guards below are
// evaluated at the top of every mutating entry point, in a fixed order,
// before any state changes.
type Control struct {
	mu    sync.Mutex
	store Store
}

// NewControl creates an emergency control over the provided store.
func NewControl(store Store) *Control {
	return &Control{store: store}
}

// Flags returns the current security flags.
func (c *Control) Flags(ctx context.Context) (Flags, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.SecurityFlags(ctx)
}

// Pause sets the global emergency pause.
func (c *Control) Pause(ctx context.Context) error {
	return c.update(ctx, func(f *Flags) { f.EmergencyPause = true })
}

// Unpause clears the global emergency pause.
func (c *Control) Unpause(ctx context.Context) error {
	return c.update(ctx, func(f *Flags) { f.EmergencyPause = false })
}

// LockMinting blocks all further minting.
func (c *Control) LockMinting(ctx context.Context) error {
	return c.update(ctx, func(f *Flags) { f.MintingLocked = true })
}

// LockPriceChanges blocks all further price updates.
func (c *Control) LockPriceChanges(ctx context.Context) error {
	return c.update(ctx, func(f *Flags) { f.PriceChangesLocked = true })
}

// LockCatalog permanently freezes catalog composition.
func (c *Control) LockCatalog(ctx context.Context) error {
	return c.update(ctx, func(f *Flags) { f.CatalogLocked = true })
}

func (c *Control) update(ctx context.Context, mutate func(*Flags)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	flags, err := c.store.SecurityFlags(ctx)
	if err != nil {
		return err
	}
	mutate(&flags)
	return c.store.SetSecurityFlags(ctx, flags)
}

// CheckNotPaused rejects operation while the emergency pause is set.
func (c *Control) CheckNotPaused(ctx context.Context, operation string) error {
	flags, err := c.Flags(ctx)
	if err != nil {
		return err
	}
	if flags.EmergencyPause {
		return apperrors.WithMetadata(apperrors.CodeOperationPaused, "operation is paused", map[string]string{
			"operation": operation,
		})
	}
	return nil
}

// CheckMintingAllowed rejects operation while minting is locked or paused.
func (c *Control) CheckMintingAllowed(ctx context.Context, operation string) error {
	flags, err := c.Flags(ctx)
	if err != nil {
		return err
	}
	if flags.EmergencyPause {
		return apperrors.WithMetadata(apperrors.CodeOperationPaused, "operation is paused", map[string]string{
			"operation": operation,
		})
	}
	if flags.MintingLocked {
		return apperrors.WithMetadata(apperrors.CodeMintingLocked, "minting is locked", map[string]string{
			"operation": operation,
		})
	}
	return nil
}

// CheckPriceChangesAllowed rejects price updates while prices are locked.
func (c *Control) CheckPriceChangesAllowed(ctx context.Context) error {
	flags, err := c.Flags(ctx)
	if err != nil {
		return err
	}
	if flags.PriceChangesLocked {
		return apperrors.New(apperrors.CodePriceChangesLocked, "price changes are locked")
	}
	return nil
}

// CheckCatalogUnlocked rejects catalog composition changes after the
// one-way catalog lock.
func (c *Control) CheckCatalogUnlocked(ctx context.Context) error {
	flags, err := c.Flags(ctx)
	if err != nil {
		return err
	}
	if flags.CatalogLocked {
		return apperrors.New(apperrors.CodeCatalogLocked, "catalog is locked")
	}
	return nil
}
