package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event // keyed by event ID
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string]*domain.Event),
	}
}

func validEvent(e *domain.Event) bool {
	return e != nil && e.ID != "" && e.Kind != ""
}

// Insert adds a new event. Returns ErrDuplicateKey if exists.
func (s *EventStore) Insert(_ context.Context, e *domain.Event) error {
	if !validEvent(e) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *e
	s.data[e.ID] = &copy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if !validEvent(e) {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.ID] = struct{}{}
	}

	for _, e := range events {
		copy := *e
		s.data[e.ID] = &copy
	}
	return nil
}

// GetByContract retrieves all events emitted by contract.
func (s *EventStore) GetByContract(_ context.Context, contract string) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool { return e.Contract == contract }), nil
}

// GetByKind retrieves all events of one kind.
func (s *EventStore) GetByKind(_ context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool { return e.Kind == kind }), nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.Timestamp >= start && e.Timestamp <= end
	}), nil
}

func (s *EventStore) filter(match func(e *domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if match(e) {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TxSeq != result[j].TxSeq {
			return result[i].TxSeq < result[j].TxSeq
		}
		return result[i].Index < result[j].Index
	})
	return result
}

var _ storage.EventStore = (*EventStore)(nil)
