package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/packworks/internal/storage"
)

// Deposit adds value to an account, creating it on first use.
func (s *Store) Deposit(ctx context.Context, address string, amount int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("deposit amount must be non-negative")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO accounts (address, balance) VALUES (?, ?)
ON CONFLICT(address) DO UPDATE SET balance = balance + excluded.balance`, address, amount)
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	return nil
}

// Collect moves value from a caller account into the house account. It
// fails without side effects when the caller's balance is short.
func (s *Store) Collect(ctx context.Context, from string, amount int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("collect amount must be non-negative")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin collect: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE accounts SET balance = balance - ? WHERE address = ? AND balance >= ?",
		amount, from, amount)
	if err != nil {
		return fmt.Errorf("collect debit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("collect debit: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("insufficient account balance")
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO accounts (address, balance) VALUES (?, ?)
ON CONFLICT(address) DO UPDATE SET balance = balance + excluded.balance`, houseAddress, amount)
	if err != nil {
		return fmt.Errorf("collect credit house: %w", err)
	}
	return tx.Commit()
}

// Transfer moves value from the house account to a caller account. Frozen
// destination accounts reject the transfer, which makes the payment guard
// fall back to withdrawable credit.
func (s *Store) Transfer(ctx context.Context, to string, amount int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("transfer amount must be non-negative")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var frozen int
	row := tx.QueryRowContext(ctx, "SELECT frozen FROM accounts WHERE address = ?", to)
	if err := row.Scan(&frozen); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transfer inspect recipient: %w", err)
	}
	if frozen != 0 {
		return fmt.Errorf("recipient account is frozen")
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE accounts SET balance = balance - ? WHERE address = ? AND balance >= ?",
		amount, houseAddress, amount)
	if err != nil {
		return fmt.Errorf("transfer debit house: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transfer debit house: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("house balance is short")
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO accounts (address, balance) VALUES (?, ?)
ON CONFLICT(address) DO UPDATE SET balance = balance + excluded.balance`, to, amount)
	if err != nil {
		return fmt.Errorf("transfer credit: %w", err)
	}
	return tx.Commit()
}

// Account returns the account record for an address.
func (s *Store) Account(ctx context.Context, address string) (storage.Account, error) {
	if err := s.ready(); err != nil {
		return storage.Account{}, err
	}

	var account storage.Account
	var frozen int
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT address, balance, frozen FROM accounts WHERE address = ?", address)
	if err := row.Scan(&account.Address, &account.Balance, &frozen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Account{}, storage.ErrNotFound
		}
		return storage.Account{}, fmt.Errorf("scan account: %w", err)
	}
	account.Frozen = frozen != 0
	return account, nil
}

// SetAccountFrozen toggles the frozen flag, creating the account if needed.
func (s *Store) SetAccountFrozen(ctx context.Context, address string, frozen bool) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO accounts (address, balance, frozen) VALUES (?, 0, ?)
ON CONFLICT(address) DO UPDATE SET frozen = excluded.frozen`, address, boolToInt(frozen))
	if err != nil {
		return fmt.Errorf("set account frozen: %w", err)
	}
	return nil
}

// AddCredit stores a failed refund as withdrawable credit.
func (s *Store) AddCredit(ctx context.Context, address string, amount int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("credit amount must be non-negative")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO credits (address, amount) VALUES (?, ?)
ON CONFLICT(address) DO UPDATE SET amount = amount + excluded.amount`, address, amount)
	if err != nil {
		return fmt.Errorf("add credit: %w", err)
	}
	return nil
}

// TakeCredit zeroes and returns an address's accumulated credit.
func (s *Store) TakeCredit(ctx context.Context, address string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin take credit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var amount int64
	row := tx.QueryRowContext(ctx, "SELECT amount FROM credits WHERE address = ?", address)
	if err := row.Scan(&amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read credit: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE credits SET amount = 0 WHERE address = ?", address); err != nil {
		return 0, fmt.Errorf("zero credit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return amount, nil
}

// Credit returns an address's accumulated credit without consuming it.
func (s *Store) Credit(ctx context.Context, address string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var amount int64
	row := s.sqlDB.QueryRowContext(ctx, "SELECT amount FROM credits WHERE address = ?", address)
	if err := row.Scan(&amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read credit: %w", err)
	}
	return amount, nil
}
