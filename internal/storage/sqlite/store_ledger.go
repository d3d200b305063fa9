package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/packworks/internal/engine/catalog"
	"github.com/louisbranch/packworks/internal/storage"
)

// Ledger returns the mint ledger for one design.
func (s *Store) Ledger(ctx context.Context, designID uint64) (catalog.Ledger, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.CatalogEntry(ctx, designID); err != nil {
		return nil, err
	}
	return &designLedger{store: s, designID: designID}, nil
}

// designLedger mints instance rows for a single design and keeps the
// design's current supply in step within one transaction.
type designLedger struct {
	store    *Store
	designID uint64
}

func (l *designLedger) Mint(ctx context.Context, owner string, quantity int) ([]uint64, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("mint quantity must be positive")
	}

	tx, err := l.store.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mint: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current, max uint64
	row := tx.QueryRowContext(ctx,
		"SELECT current_supply, max_supply FROM card_designs WHERE design_id = ?", l.designID)
	if err := row.Scan(&current, &max); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read design supply: %w", err)
	}
	if max != 0 && current+uint64(quantity) > max {
		return nil, fmt.Errorf("design %d supply exhausted", l.designID)
	}

	mintedAt := time.Now().UTC().Format(timeFormat)
	ids := make([]uint64, 0, quantity)
	for i := 0; i < quantity; i++ {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO card_instances (design_id, owner, minted_at) VALUES (?, ?, ?)",
			l.designID, owner, mintedAt)
		if err != nil {
			return nil, fmt.Errorf("mint instance: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("mint instance id: %w", err)
		}
		ids = append(ids, uint64(id))
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE card_designs SET current_supply = current_supply + ? WHERE design_id = ?",
		quantity, l.designID)
	if err != nil {
		return nil, fmt.Errorf("advance design supply: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (l *designLedger) Burn(ctx context.Context, instanceIDs []uint64) error {
	if len(instanceIDs) == 0 {
		return nil
	}

	tx, err := l.store.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin burn: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	burned := 0
	for _, id := range instanceIDs {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM card_instances WHERE instance_id = ? AND design_id = ?",
			id, l.designID)
		if err != nil {
			return fmt.Errorf("burn instance %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("burn instance %d: %w", id, err)
		}
		burned += int(affected)
	}

	if burned > 0 {
		_, err = tx.ExecContext(ctx,
			"UPDATE card_designs SET current_supply = MAX(current_supply - ?, 0) WHERE design_id = ?",
			burned, l.designID)
		if err != nil {
			return fmt.Errorf("release design supply: %w", err)
		}
	}
	return tx.Commit()
}

func (l *designLedger) CurrentSupply(ctx context.Context) (uint64, error) {
	entry, err := l.store.CatalogEntry(ctx, l.designID)
	if err != nil {
		return 0, err
	}
	return entry.CurrentSupply, nil
}

func (l *designLedger) MaxSupply(ctx context.Context) (uint64, error) {
	entry, err := l.store.CatalogEntry(ctx, l.designID)
	if err != nil {
		return 0, err
	}
	return entry.MaxSupply, nil
}

func (l *designLedger) Owner(ctx context.Context) (string, error) {
	entry, err := l.store.CatalogEntry(ctx, l.designID)
	if err != nil {
		return "", err
	}
	return entry.Owner, nil
}
