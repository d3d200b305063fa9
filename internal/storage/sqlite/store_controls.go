package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/packworks/internal/engine/emission"
	"github.com/louisbranch/packworks/internal/engine/security"
)

// EmissionCounter reads the singleton emission counter.
func (s *Store) EmissionCounter(ctx context.Context) (emission.Counter, error) {
	if err := s.ready(); err != nil {
		return emission.Counter{}, err
	}

	var counter emission.Counter
	row := s.sqlDB.QueryRowContext(ctx, "SELECT total_minted, cap FROM emission WHERE id = 1")
	if err := row.Scan(&counter.TotalMinted, &counter.Cap); err != nil {
		return emission.Counter{}, fmt.Errorf("read emission counter: %w", err)
	}
	return counter, nil
}

// AdvanceEmission adds n to total minted and returns the new counter.
func (s *Store) AdvanceEmission(ctx context.Context, n uint64) (emission.Counter, error) {
	if err := s.ready(); err != nil {
		return emission.Counter{}, err
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"UPDATE emission SET total_minted = total_minted + ? WHERE id = 1", n)
	if err != nil {
		return emission.Counter{}, fmt.Errorf("advance emission: %w", err)
	}
	return s.EmissionCounter(ctx)
}

// ReleaseEmission subtracts n from total minted, flooring at zero.
func (s *Store) ReleaseEmission(ctx context.Context, n uint64) (emission.Counter, error) {
	if err := s.ready(); err != nil {
		return emission.Counter{}, err
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"UPDATE emission SET total_minted = MAX(total_minted - ?, 0) WHERE id = 1", n)
	if err != nil {
		return emission.Counter{}, fmt.Errorf("release emission: %w", err)
	}
	return s.EmissionCounter(ctx)
}

// SetEmissionCap updates the global emission cap.
func (s *Store) SetEmissionCap(ctx context.Context, cap uint64) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, "UPDATE emission SET cap = ? WHERE id = 1", cap)
	if err != nil {
		return fmt.Errorf("set emission cap: %w", err)
	}
	return nil
}

// SecurityFlags reads the singleton security flag row.
func (s *Store) SecurityFlags(ctx context.Context) (security.Flags, error) {
	if err := s.ready(); err != nil {
		return security.Flags{}, err
	}

	var pause, minting, prices, catalogLocked int
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT emergency_pause, minting_locked, price_changes_locked, catalog_locked
FROM security_flags WHERE id = 1`)
	if err := row.Scan(&pause, &minting, &prices, &catalogLocked); err != nil {
		return security.Flags{}, fmt.Errorf("read security flags: %w", err)
	}
	return security.Flags{
		EmergencyPause:     pause != 0,
		MintingLocked:      minting != 0,
		PriceChangesLocked: prices != 0,
		CatalogLocked:      catalogLocked != 0,
	}, nil
}

// SetSecurityFlags replaces the singleton security flag row.
func (s *Store) SetSecurityFlags(ctx context.Context, flags security.Flags) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE security_flags
SET emergency_pause = ?, minting_locked = ?, price_changes_locked = ?, catalog_locked = ?
WHERE id = 1`,
		boolToInt(flags.EmergencyPause), boolToInt(flags.MintingLocked),
		boolToInt(flags.PriceChangesLocked), boolToInt(flags.CatalogLocked))
	if err != nil {
		return fmt.Errorf("set security flags: %w", err)
	}
	return nil
}

// OpenAttempt returns the last recorded open attempt for an address.
func (s *Store) OpenAttempt(ctx context.Context, address string) (time.Time, int, error) {
	if err := s.ready(); err != nil {
		return time.Time{}, 0, err
	}

	var lastAttempt string
	var count int
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT last_attempt_at, count_in_window FROM open_attempts WHERE address = ?", address)
	if err := row.Scan(&lastAttempt, &count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, 0, nil
		}
		return time.Time{}, 0, fmt.Errorf("read open attempt: %w", err)
	}
	at, err := toTime(lastAttempt)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parse open attempt time: %w", err)
	}
	return at, count, nil
}

// RecordOpenAttempt stores the latest open attempt for an address.
func (s *Store) RecordOpenAttempt(ctx context.Context, address string, at time.Time, countInWindow int) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO open_attempts (address, last_attempt_at, count_in_window) VALUES (?, ?, ?)
ON CONFLICT(address) DO UPDATE SET
    last_attempt_at = excluded.last_attempt_at,
    count_in_window = excluded.count_in_window`,
		address, at.UTC().Format(timeFormat), countInWindow)
	if err != nil {
		return fmt.Errorf("record open attempt: %w", err)
	}
	return nil
}
