package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/packworks/internal/telemetry"
)

// AppendSecurityEvent appends one event to the durable journal and returns
// the journal-assigned sequence number.
func (s *Store) AppendSecurityEvent(ctx context.Context, evt telemetry.SecurityEvent) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	metadata := evt.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return 0, fmt.Errorf("encode event metadata: %w", err)
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO security_events (kind, actor, timestamp, metadata) VALUES (?, ?, ?, ?)`,
		string(evt.Kind), evt.Actor, evt.Timestamp.UTC().Format(timeFormat), string(encoded))
	if err != nil {
		return 0, fmt.Errorf("append security event: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append security event seq: %w", err)
	}
	return seq, nil
}

// SecurityEvents pages the journal forward from afterSeq, oldest first.
func (s *Store) SecurityEvents(ctx context.Context, afterSeq int64, limit int) ([]telemetry.SecurityEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT seq, kind, actor, timestamp, metadata
FROM security_events WHERE seq > ? ORDER BY seq LIMIT ?`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	defer rows.Close()

	var events []telemetry.SecurityEvent
	for rows.Next() {
		var evt telemetry.SecurityEvent
		var kind, timestamp, metadata string
		if err := rows.Scan(&evt.ID, &kind, &evt.Actor, &timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		evt.Kind = telemetry.Kind(kind)
		evt.Timestamp, err = toTime(timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse event timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &evt.Metadata); err != nil {
			return nil, fmt.Errorf("decode event metadata: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read security events: %w", err)
	}
	return events, nil
}
