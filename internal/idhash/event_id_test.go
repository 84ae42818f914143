package idhash

import (
	"bytes"
	"testing"

	"github.com/mr-tron/base58"

	"token-launchpad/internal/domain"
)

func TestComputeEventID(t *testing.T) {
	tests := []struct {
		name     string
		txSeq    uint64
		index    int
		kind     domain.EventKind
		contract string
	}{
		{
			name:     "deposit",
			txSeq:    1,
			index:    0,
			kind:     domain.EventDeposit,
			contract: "Sale111",
		},
		{
			name:     "lock",
			txSeq:    42,
			index:    3,
			kind:     domain.EventLocked,
			contract: "Vault222",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeEventID(tt.txSeq, tt.index, tt.kind, tt.contract)

			raw, err := base58.Decode(got)
			if err != nil {
				t.Fatalf("ComputeEventID() is not base58: %v", err)
			}
			if len(raw) != 32 {
				t.Errorf("decoded length = %d, want 32", len(raw))
			}

			got2 := ComputeEventID(tt.txSeq, tt.index, tt.kind, tt.contract)
			if got != got2 {
				t.Errorf("ComputeEventID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeEventID_DifferentInputs(t *testing.T) {
	base := ComputeEventID(1, 0, domain.EventDeposit, "Sale")

	if base == ComputeEventID(2, 0, domain.EventDeposit, "Sale") {
		t.Error("Different tx_seq should produce different hash")
	}
	if base == ComputeEventID(1, 1, domain.EventDeposit, "Sale") {
		t.Error("Different index should produce different hash")
	}
	if base == ComputeEventID(1, 0, domain.EventRefunded, "Sale") {
		t.Error("Different kind should produce different hash")
	}
}

func TestSeed(t *testing.T) {
	a := Seed("sale", []byte("owner"), Uint64(1))
	b := Seed("sale", []byte("owner"), Uint64(1))
	c := Seed("sale", []byte("owner"), Uint64(2))

	if len(a) != 32 {
		t.Fatalf("Seed() length = %d, want 32", len(a))
	}
	if !bytes.Equal(a, b) {
		t.Error("Seed() not deterministic")
	}
	if bytes.Equal(a, c) {
		t.Error("Different parts should produce different seed")
	}
}
