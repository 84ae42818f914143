// Package registry records which sales were deployed by an authorized
// generator. The forwarder consults it before taking the fee-exempt lock path.
package registry

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"token-launchpad/internal/access"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
)

// Registry is the sale factory's authorization list.
type Registry struct {
	ledger   *chain.Ledger
	owner    *access.Owner
	creators *access.AddressSet
	sales    *access.AddressSet
}

// New creates an empty registry owned by owner.
func New(ledger *chain.Ledger, owner solana.PublicKey) *Registry {
	return &Registry{
		ledger:   ledger,
		owner:    access.NewOwner(owner),
		creators: access.NewAddressSet(),
		sales:    access.NewAddressSet(),
	}
}

// AllowCreator grants or revokes the right to register sales.
func (r *Registry) AllowCreator(ctx context.Context, caller, creator solana.PublicKey, allow bool) error {
	return r.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := r.owner.Check(caller); err != nil {
			return err
		}
		r.creators.Edit(tx, creator, allow)
		return nil
	})
}

// IsAuthorizedCreator reports whether addr may register sales.
func (r *Registry) IsAuthorizedCreator(_ *chain.Tx, addr solana.PublicKey) bool {
	return r.creators.Contains(addr)
}

// Register records a sale deployed by creator.
func (r *Registry) Register(tx *chain.Tx, creator, sale solana.PublicKey) error {
	if !r.IsAuthorizedCreator(tx, creator) {
		return domain.ErrNotCreator
	}
	if !r.sales.Add(tx, sale) {
		return domain.ErrAlreadyRegistered
	}
	return nil
}

// IsRegistered reports whether sale was registered by an authorized creator.
func (r *Registry) IsRegistered(_ *chain.Tx, sale solana.PublicKey) bool {
	return r.sales.Contains(sale)
}

// SalesLength returns the number of registered sales.
func (r *Registry) SalesLength() int {
	var n int
	_ = r.ledger.View(func(_ *chain.Tx) error {
		n = r.sales.Len()
		return nil
	})
	return n
}

// SaleAtIndex returns the i-th registered sale.
func (r *Registry) SaleAtIndex(i int) (solana.PublicKey, bool) {
	var (
		addr solana.PublicKey
		ok   bool
	)
	_ = r.ledger.View(func(_ *chain.Tx) error {
		addr, ok = r.sales.At(i)
		return nil
	})
	return addr, ok
}

// CreatorsLength returns the number of authorized creators.
func (r *Registry) CreatorsLength() int {
	var n int
	_ = r.ledger.View(func(_ *chain.Tx) error {
		n = r.creators.Len()
		return nil
	})
	return n
}

// CreatorAtIndex returns the i-th authorized creator.
func (r *Registry) CreatorAtIndex(i int) (solana.PublicKey, bool) {
	var (
		addr solana.PublicKey
		ok   bool
	)
	_ = r.ledger.View(func(_ *chain.Tx) error {
		addr, ok = r.creators.At(i)
		return nil
	})
	return addr, ok
}
