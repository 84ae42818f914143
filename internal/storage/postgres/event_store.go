package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const insertEvent = `
	INSERT INTO events (
		id, tx_seq, event_index, kind, contract, actor, counterparty, asset, amount, ref, timestamp
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

const selectEvents = `
	SELECT id, tx_seq, event_index, kind, contract, actor, counterparty, asset, amount, ref, timestamp
	FROM events
`

func eventArgs(e *domain.Event) []any {
	return []any{
		e.ID, int64(e.TxSeq), e.Index, string(e.Kind), e.Contract,
		e.Actor, e.Counterparty, e.Asset, e.Amount, e.Ref, e.Timestamp,
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if the ID exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	if e == nil || e.ID == "" || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	if _, err := s.pool.Exec(ctx, insertEvent, eventArgs(e)...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.ID == "" || e.Kind == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(insertEvent, eventArgs(e)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert events in bulk: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByContract retrieves all events emitted by contract.
func (s *EventStore) GetByContract(ctx context.Context, contract string) ([]*domain.Event, error) {
	return s.query(ctx, "get events by contract", selectEvents+`
		WHERE contract = $1
		ORDER BY tx_seq ASC, event_index ASC
	`, contract)
}

// GetByKind retrieves all events of one kind.
func (s *EventStore) GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	return s.query(ctx, "get events by kind", selectEvents+`
		WHERE kind = $1
		ORDER BY tx_seq ASC, event_index ASC
	`, string(kind))
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error) {
	return s.query(ctx, "get events by time range", selectEvents+`
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY tx_seq ASC, event_index ASC
	`, start, end)
}

func (s *EventStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var e domain.Event
		var seq int64
		var kind string

		err := rows.Scan(
			&e.ID, &seq, &e.Index, &kind, &e.Contract,
			&e.Actor, &e.Counterparty, &e.Asset, &e.Amount, &e.Ref, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.TxSeq = uint64(seq)
		e.Kind = domain.EventKind(kind)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}
