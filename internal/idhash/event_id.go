package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"token-launchpad/internal/domain"
)

// ComputeEventID computes a deterministic event id using SHA256.
// Formula: SHA256(tx_seq|index|kind|contract)
// Returns the base58-encoded hash, like a transaction signature.
func ComputeEventID(
	txSeq uint64,
	index int,
	kind domain.EventKind,
	contract string,
) string {
	data := fmt.Sprintf("%d|%d|%s|%s",
		txSeq,
		index,
		string(kind),
		contract,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
