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

// PutCatalogEntry inserts or replaces a card design.
func (s *Store) PutCatalogEntry(ctx context.Context, entry catalog.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO card_designs (design_id, name, owner, tier, weight, max_supply, current_supply, removed, uri, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(design_id) DO UPDATE SET
    name = excluded.name,
    owner = excluded.owner,
    tier = excluded.tier,
    weight = excluded.weight,
    max_supply = excluded.max_supply,
    removed = excluded.removed,
    uri = excluded.uri`,
		entry.DesignID, entry.Name, entry.Owner, entry.Tier.String(), entry.Weight,
		entry.MaxSupply, entry.CurrentSupply, boolToInt(entry.Removed), entry.URI,
		createdAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("put catalog entry: %w", err)
	}
	return nil
}

// RemoveCatalogEntry soft-removes a design from the selection pool. Minted
// instances survive removal.
func (s *Store) RemoveCatalogEntry(ctx context.Context, designID uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, "UPDATE card_designs SET removed = 1 WHERE design_id = ?", designID)
	if err != nil {
		return fmt.Errorf("remove catalog entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove catalog entry: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CatalogEntries returns every card design, including removed ones.
func (s *Store) CatalogEntries(ctx context.Context) ([]catalog.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT design_id, name, owner, tier, weight, max_supply, current_supply, removed, uri, created_at
FROM card_designs ORDER BY design_id`)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read catalog entries: %w", err)
	}
	return entries, nil
}

// CatalogEntry returns a single card design by id.
func (s *Store) CatalogEntry(ctx context.Context, designID uint64) (catalog.Entry, error) {
	if err := s.ready(); err != nil {
		return catalog.Entry{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT design_id, name, owner, tier, weight, max_supply, current_supply, removed, uri, created_at
FROM card_designs WHERE design_id = ?`, designID)
	entry, err := scanCatalogEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Entry{}, storage.ErrNotFound
	}
	return entry, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogEntry(row rowScanner) (catalog.Entry, error) {
	var entry catalog.Entry
	var tier string
	var removed int
	var createdAt string
	err := row.Scan(&entry.DesignID, &entry.Name, &entry.Owner, &tier, &entry.Weight,
		&entry.MaxSupply, &entry.CurrentSupply, &removed, &entry.URI, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Entry{}, err
		}
		return catalog.Entry{}, fmt.Errorf("scan catalog entry: %w", err)
	}
	parsed, ok := catalog.ParseTier(tier)
	if !ok {
		return catalog.Entry{}, fmt.Errorf("unknown tier %q for design %d", tier, entry.DesignID)
	}
	entry.Tier = parsed
	entry.Removed = removed != 0
	entry.CreatedAt, err = toTime(createdAt)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("parse catalog entry created_at: %w", err)
	}
	return entry, nil
}

// PutDeck inserts or replaces a deck definition and its slots.
func (s *Store) PutDeck(ctx context.Context, deck catalog.Deck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if err := deck.Validate(); err != nil {
		return err
	}
	createdAt := deck.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put deck: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO decks (name, price, created_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET price = excluded.price`,
		deck.Name, deck.Price, createdAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("put deck: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM deck_slots WHERE deck_name = ?", deck.Name); err != nil {
		return fmt.Errorf("clear deck slots: %w", err)
	}
	for i, slot := range deck.Slots {
		_, err := tx.ExecContext(ctx, `
INSERT INTO deck_slots (deck_name, position, design_id, quantity) VALUES (?, ?, ?, ?)`,
			deck.Name, i, slot.DesignID, slot.Quantity)
		if err != nil {
			return fmt.Errorf("put deck slot: %w", err)
		}
	}
	return tx.Commit()
}

// Deck returns a deck definition with its slots in declared order.
func (s *Store) Deck(ctx context.Context, name string) (catalog.Deck, error) {
	if err := s.ready(); err != nil {
		return catalog.Deck{}, err
	}

	var deck catalog.Deck
	var createdAt string
	row := s.sqlDB.QueryRowContext(ctx, "SELECT name, price, created_at FROM decks WHERE name = ?", name)
	if err := row.Scan(&deck.Name, &deck.Price, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Deck{}, storage.ErrNotFound
		}
		return catalog.Deck{}, fmt.Errorf("scan deck: %w", err)
	}
	parsed, err := toTime(createdAt)
	if err != nil {
		return catalog.Deck{}, fmt.Errorf("parse deck created_at: %w", err)
	}
	deck.CreatedAt = parsed

	slots, err := s.deckSlots(ctx, deck.Name)
	if err != nil {
		return catalog.Deck{}, err
	}
	deck.Slots = slots
	return deck, nil
}

// Decks returns every deck definition.
func (s *Store) Decks(ctx context.Context) ([]catalog.Deck, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT name FROM decks ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan deck name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read decks: %w", err)
	}

	decks := make([]catalog.Deck, 0, len(names))
	for _, name := range names {
		deck, err := s.Deck(ctx, name)
		if err != nil {
			return nil, err
		}
		decks = append(decks, deck)
	}
	return decks, nil
}

func (s *Store) deckSlots(ctx context.Context, name string) ([]catalog.Slot, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT design_id, quantity FROM deck_slots WHERE deck_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("list deck slots: %w", err)
	}
	defer rows.Close()

	var slots []catalog.Slot
	for rows.Next() {
		var slot catalog.Slot
		if err := rows.Scan(&slot.DesignID, &slot.Quantity); err != nil {
			return nil, fmt.Errorf("scan deck slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read deck slots: %w", err)
	}
	return slots, nil
}

// PackPrice returns the current price of one randomized pack.
func (s *Store) PackPrice(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var value int64
	row := s.sqlDB.QueryRowContext(ctx, "SELECT CAST(value AS INTEGER) FROM settings WHERE key = 'pack_price'")
	if err := row.Scan(&value); err != nil {
		return 0, fmt.Errorf("read pack price: %w", err)
	}
	return value, nil
}

// SetPackPrice updates the price of one randomized pack.
func (s *Store) SetPackPrice(ctx context.Context, price int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"UPDATE settings SET value = ? WHERE key = 'pack_price'", price)
	if err != nil {
		return fmt.Errorf("set pack price: %w", err)
	}
	return nil
}

// SetDeckPrice updates the price of a named deck.
func (s *Store) SetDeckPrice(ctx context.Context, name string, price int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, "UPDATE decks SET price = ? WHERE name = ?", price, name)
	if err != nil {
		return fmt.Errorf("set deck price: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set deck price: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
