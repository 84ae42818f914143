package memory

import (
	"context"
	"errors"
	"testing"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/storage"
)

func testEvent(seq uint64, index int, kind domain.EventKind, contract string, ts int64) *domain.Event {
	return &domain.Event{
		ID:        idhash.ComputeEventID(seq, index, kind, contract),
		TxSeq:     seq,
		Index:     index,
		Kind:      kind,
		Contract:  contract,
		Amount:    "1000",
		Timestamp: ts,
	}
}

func TestEventStore_InsertAndGetByContract(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	e := testEvent(1, 0, domain.EventDeposit, "saleA", 1000)
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByContract(ctx, "saleA")
	if err != nil {
		t.Fatalf("GetByContract failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(result))
	}
	if result[0].Amount != "1000" {
		t.Errorf("Amount mismatch: got %s, want 1000", result[0].Amount)
	}

	// Results are copies.
	result[0].Amount = "changed"
	again, _ := store.GetByContract(ctx, "saleA")
	if again[0].Amount != "1000" {
		t.Errorf("store was mutated through a returned event")
	}
}

func TestEventStore_DuplicateKey(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	e := testEvent(1, 0, domain.EventDeposit, "saleA", 1000)
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, e); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestEventStore_InvalidInput(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil event: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Event{Kind: domain.EventDeposit}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("missing id: expected ErrInvalidInput, got %v", err)
	}
}

func TestEventStore_InsertBulk(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	events := []*domain.Event{
		testEvent(2, 1, domain.EventFeePaid, "saleA", 1001),
		testEvent(2, 0, domain.EventDeposit, "saleA", 1001),
		testEvent(1, 0, domain.EventSaleCreated, "gen", 1000),
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByContract(ctx, "saleA")
	if err != nil {
		t.Fatalf("GetByContract failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(result))
	}
	if result[0].Kind != domain.EventDeposit || result[1].Kind != domain.EventFeePaid {
		t.Errorf("events not ordered by (tx_seq, index): %s, %s", result[0].Kind, result[1].Kind)
	}
}

func TestEventStore_InsertBulkIsAtomic(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	existing := testEvent(1, 0, domain.EventDeposit, "saleA", 1000)
	if err := store.Insert(ctx, existing); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	batch := []*domain.Event{
		testEvent(2, 0, domain.EventDeposit, "saleA", 1001),
		existing,
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	intra := []*domain.Event{
		testEvent(3, 0, domain.EventDeposit, "saleA", 1002),
		testEvent(3, 0, domain.EventDeposit, "saleA", 1002),
	}
	if err := store.InsertBulk(ctx, intra); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	result, _ := store.GetByContract(ctx, "saleA")
	if len(result) != 1 {
		t.Errorf("failed batches must not insert anything, got %d events", len(result))
	}
}

func TestEventStore_GetByKindAndTimeRange(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	events := []*domain.Event{
		testEvent(1, 0, domain.EventDeposit, "saleA", 1000),
		testEvent(2, 0, domain.EventDeposit, "saleB", 2000),
		testEvent(3, 0, domain.EventLocked, "vault", 3000),
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	deposits, err := store.GetByKind(ctx, domain.EventDeposit)
	if err != nil {
		t.Fatalf("GetByKind failed: %v", err)
	}
	if len(deposits) != 2 {
		t.Errorf("Expected 2 deposits, got %d", len(deposits))
	}

	ranged, err := store.GetByTimeRange(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(ranged) != 2 || ranged[0].TxSeq != 2 || ranged[1].TxSeq != 3 {
		t.Errorf("unexpected range result: %+v", ranged)
	}

	empty, _ := store.GetByTimeRange(ctx, 4000, 5000)
	if len(empty) != 0 {
		t.Errorf("Expected no events, got %d", len(empty))
	}
}
