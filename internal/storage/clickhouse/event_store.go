package clickhouse

import (
	"context"
	"fmt"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const selectEvents = `
	SELECT id, tx_seq, event_index, kind, contract, actor, counterparty, asset, amount, ref, timestamp
	FROM events
`

// Insert adds a new event. Returns ErrDuplicateKey if the ID exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	return s.InsertBulk(ctx, []*domain.Event{e})
}

// InsertBulk adds multiple events. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e == nil || e.ID == "" || e.Kind == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}

	exists, err := s.anyExists(ctx, ids)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO events (
			id, tx_seq, event_index, kind, contract, actor, counterparty, asset, amount, ref, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.ID, e.TxSeq, uint32(e.Index), string(e.Kind), e.Contract,
			e.Actor, e.Counterparty, e.Asset, e.Amount, e.Ref, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByContract retrieves all events emitted by contract.
func (s *EventStore) GetByContract(ctx context.Context, contract string) ([]*domain.Event, error) {
	rows, err := s.conn.Query(ctx, selectEvents+`
		WHERE contract = ?
		ORDER BY tx_seq ASC, event_index ASC
	`, contract)
	if err != nil {
		return nil, fmt.Errorf("query by contract: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByKind retrieves all events of one kind.
func (s *EventStore) GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	rows, err := s.conn.Query(ctx, selectEvents+`
		WHERE kind = ?
		ORDER BY tx_seq ASC, event_index ASC
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query by kind: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error) {
	rows, err := s.conn.Query(ctx, selectEvents+`
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY tx_seq ASC, event_index ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *EventStore) anyExists(ctx context.Context, ids []string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM events WHERE id IN ?`, ids).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanEvents(rows chRows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var e domain.Event
		var kind string
		var index uint32

		err := rows.Scan(
			&e.ID, &e.TxSeq, &index, &kind, &e.Contract,
			&e.Actor, &e.Counterparty, &e.Asset, &e.Amount, &e.Ref, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Index = int(index)
		e.Kind = domain.EventKind(kind)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}
