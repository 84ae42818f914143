package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// SaleSnapshotStore is an in-memory implementation of storage.SaleSnapshotStore.
type SaleSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SaleSnapshot // keyed by sale address
}

// NewSaleSnapshotStore creates a new in-memory snapshot store.
func NewSaleSnapshotStore() *SaleSnapshotStore {
	return &SaleSnapshotStore{
		data: make(map[string]*domain.SaleSnapshot),
	}
}

// Upsert stores s, replacing any previous snapshot for the same address.
func (st *SaleSnapshotStore) Upsert(_ context.Context, s *domain.SaleSnapshot) error {
	if s == nil || s.Address == "" {
		return storage.ErrInvalidInput
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	copy := *s
	st.data[s.Address] = &copy
	return nil
}

// Get retrieves a snapshot by sale address. Returns ErrNotFound if not exists.
func (st *SaleSnapshotStore) Get(_ context.Context, address string) (*domain.SaleSnapshot, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *s
	return &copy, nil
}

// List retrieves all snapshots ordered by start time, then address.
func (st *SaleSnapshotStore) List(_ context.Context) ([]*domain.SaleSnapshot, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make([]*domain.SaleSnapshot, 0, len(st.data))
	for _, s := range st.data {
		copy := *s
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].Address < result[j].Address
	})
	return result, nil
}

var _ storage.SaleSnapshotStore = (*SaleSnapshotStore)(nil)
