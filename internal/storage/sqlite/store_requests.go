package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/packworks/internal/engine/opening"
	"github.com/louisbranch/packworks/internal/storage"
)

// PutOpeningRequest persists a new opening request.
func (s *Store) PutOpeningRequest(ctx context.Context, req opening.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("request id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO opening_requests (id, requester, kind, deck_name, packs, price, amount_paid, requested_at, state, resolved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.Requester, req.Kind.String(), req.DeckName, req.Packs, req.Price,
		req.AmountPaid, req.RequestedAt.UTC().Format(timeFormat), string(req.State),
		toNullTime(req.ResolvedAt))
	if err != nil {
		return fmt.Errorf("put opening request: %w", err)
	}
	return nil
}

// OpeningRequest returns a request by its oracle-assigned id.
func (s *Store) OpeningRequest(ctx context.Context, id string) (opening.Request, error) {
	if err := s.ready(); err != nil {
		return opening.Request{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, requester, kind, deck_name, packs, price, amount_paid, requested_at, state, resolved_at
FROM opening_requests WHERE id = ?`, id)
	req, err := scanOpeningRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return opening.Request{}, storage.ErrNotFound
	}
	return req, err
}

// ResolveOpeningRequest transitions a request to a terminal state.
func (s *Store) ResolveOpeningRequest(ctx context.Context, id string, state opening.State, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		"UPDATE opening_requests SET state = ?, resolved_at = ? WHERE id = ?",
		string(state), at.UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("resolve opening request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve opening request: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// OpeningRequestsByState lists requests in a given state, oldest first.
func (s *Store) OpeningRequestsByState(ctx context.Context, state opening.State) ([]opening.Request, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, requester, kind, deck_name, packs, price, amount_paid, requested_at, state, resolved_at
FROM opening_requests WHERE state = ? ORDER BY requested_at`, string(state))
	if err != nil {
		return nil, fmt.Errorf("list opening requests: %w", err)
	}
	defer rows.Close()

	var requests []opening.Request
	for rows.Next() {
		req, err := scanOpeningRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read opening requests: %w", err)
	}
	return requests, nil
}

func scanOpeningRequest(row rowScanner) (opening.Request, error) {
	var req opening.Request
	var kind, state, requestedAt string
	var resolvedAt sql.NullString
	err := row.Scan(&req.ID, &req.Requester, &kind, &req.DeckName, &req.Packs,
		&req.Price, &req.AmountPaid, &requestedAt, &state, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return opening.Request{}, err
		}
		return opening.Request{}, fmt.Errorf("scan opening request: %w", err)
	}
	parsedKind, ok := opening.ParseKind(kind)
	if !ok {
		return opening.Request{}, fmt.Errorf("unknown request kind %q", kind)
	}
	req.Kind = parsedKind
	req.State = opening.State(state)
	req.RequestedAt, err = toTime(requestedAt)
	if err != nil {
		return opening.Request{}, fmt.Errorf("parse requested_at: %w", err)
	}
	req.ResolvedAt, err = fromNullTime(resolvedAt)
	if err != nil {
		return opening.Request{}, fmt.Errorf("parse resolved_at: %w", err)
	}
	return req, nil
}
