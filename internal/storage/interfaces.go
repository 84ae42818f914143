package storage

import (
	"context"

	"token-launchpad/internal/domain"
)

// EventStore provides access to the committed event log.
// All read methods return events ordered by (tx_seq, index) ASC.
type EventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the event ID exists.
	Insert(ctx context.Context, e *domain.Event) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByContract retrieves all events emitted by a program address.
	GetByContract(ctx context.Context, contract string) ([]*domain.Event, error)

	// GetByKind retrieves all events of one kind.
	GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error)

	// GetByTimeRange retrieves events committed within [start, end] (inclusive, unix seconds).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error)
}

// SaleSnapshotStore keeps the latest denormalized view of each sale.
type SaleSnapshotStore interface {
	// Upsert stores the snapshot, replacing any previous one for the address.
	Upsert(ctx context.Context, s *domain.SaleSnapshot) error

	// Get retrieves the snapshot of a sale. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.SaleSnapshot, error)

	// List retrieves all snapshots ordered by start time, then address.
	List(ctx context.Context) ([]*domain.SaleSnapshot, error)
}
