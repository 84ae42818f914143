package access

import (
	"github.com/gagliardetto/solana-go"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
)

// Owner is a single designated principal allowed to run admin operations.
type Owner struct {
	addr solana.PublicKey
}

// NewOwner returns an Owner held by addr.
func NewOwner(addr solana.PublicKey) *Owner {
	return &Owner{addr: addr}
}

// Address returns the current owner.
func (o *Owner) Address() solana.PublicKey {
	return o.addr
}

// Is reports whether caller is the owner.
func (o *Owner) Is(caller solana.PublicKey) bool {
	return !o.addr.IsZero() && o.addr.Equals(caller)
}

// Check returns ErrNotOwner unless caller is the owner.
func (o *Owner) Check(caller solana.PublicKey) error {
	if !o.Is(caller) {
		return domain.ErrNotOwner
	}
	return nil
}

// Transfer hands ownership to next.
func (o *Owner) Transfer(tx *chain.Tx, caller, next solana.PublicKey) error {
	if err := o.Check(caller); err != nil {
		return err
	}
	if next.IsZero() {
		return domain.ErrZeroAddress
	}
	prev := o.addr
	o.addr = next
	tx.OnRevert(func() { o.addr = prev })
	return nil
}
