// Package forwarder seeds pool liquidity for finalized sales and locks the
// pool shares in the vault on the sale owner's behalf.
package forwarder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/locker"
	"token-launchpad/internal/registry"
)

// Config wires a Forwarder.
type Config struct {
	Ledger   *chain.Ledger
	Factory  *amm.Factory
	Vault    *locker.Vault
	Registry *registry.Registry
	Logger   *slog.Logger
}

// Validate checks required fields.
func (c *Config) Validate() error {
	var errs []error
	if c.Ledger == nil {
		errs = append(errs, errors.New("ledger is required"))
	}
	if c.Factory == nil {
		errs = append(errs, errors.New("factory is required"))
	}
	if c.Vault == nil {
		errs = append(errs, errors.New("vault is required"))
	}
	if c.Registry == nil {
		errs = append(errs, errors.New("registry is required"))
	}
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	return errors.Join(errs...)
}

// Forwarder is the only path by which sales create pool liquidity.
type Forwarder struct {
	ledger   *chain.Ledger
	factory  *amm.Factory
	vault    *locker.Vault
	registry *registry.Registry
	log      *slog.Logger
	address  solana.PublicKey
}

// New creates a forwarder. It must be whitelisted in the vault to lock
// without a fee.
func New(cfg Config) (*Forwarder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forwarder config: %w", err)
	}
	return &Forwarder{
		ledger:   cfg.Ledger,
		factory:  cfg.Factory,
		vault:    cfg.Vault,
		registry: cfg.Registry,
		log:      cfg.Logger.With("component", "forwarder"),
		address:  chain.MustDerive("lock-forwarder"),
	}, nil
}

// Address returns the forwarder program address.
func (f *Forwarder) Address() solana.PublicKey {
	return f.address
}

// PairIsInitialised reports whether a pool for the two assets already holds
// sale tokens, i.e. someone has seeded it.
func (f *Forwarder) PairIsInitialised(baseAsset, saleAsset solana.PublicKey) bool {
	var ok bool
	_ = f.ledger.View(func(tx *chain.Tx) error {
		ok = f.pairIsInitialised(tx, baseAsset, saleAsset)
		return nil
	})
	return ok
}

func (f *Forwarder) pairIsInitialised(tx *chain.Tx, baseAsset, saleAsset solana.PublicKey) bool {
	pair, ok := f.factory.PairFor(tx, baseAsset, saleAsset)
	if !ok {
		return false
	}
	return !tx.BalanceOf(saleAsset, pair).IsZero()
}

// LockLiquidity pulls both amounts from caller, sends all of them to the
// pool and locks every share received for withdrawer until unlockTime. When
// the pool already holds reserves at another price, the excess of either side
// stays in the pool.
func (f *Forwarder) LockLiquidity(tx *chain.Tx, caller, baseAsset, saleAsset solana.PublicKey, baseAmount, saleAmount *uint256.Int, unlockTime int64, withdrawer solana.PublicKey) (uint64, *uint256.Int, error) {
	if !f.registry.IsRegistered(tx, caller) {
		return 0, nil, domain.ErrNotRegistered
	}

	pair, ok := f.factory.PairFor(tx, baseAsset, saleAsset)
	created := !ok
	if created {
		var err error
		if pair, err = f.factory.CreatePair(tx, baseAsset, saleAsset); err != nil {
			return 0, nil, fmt.Errorf("create pair: %w", err)
		}
	}
	if err := tx.TransferFrom(baseAsset, f.address, caller, pair, baseAmount); err != nil {
		return 0, nil, err
	}
	if err := tx.TransferFrom(saleAsset, f.address, caller, pair, saleAmount); err != nil {
		return 0, nil, err
	}
	if _, err := f.factory.Mint(tx, pair, f.address); err != nil {
		return 0, nil, fmt.Errorf("mint shares: %w", err)
	}

	shares := tx.BalanceOf(pair, f.address)
	if err := tx.Approve(pair, f.address, f.vault.Address(), shares); err != nil {
		return 0, nil, err
	}
	id, err := f.vault.LockTx(tx, locker.LockRequest{
		Caller:     f.address,
		Token:      pair,
		Amount:     shares,
		UnlockTime: unlockTime,
		Withdrawer: withdrawer,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("lock shares: %w", err)
	}

	tx.OnCommit(func() {
		f.log.Info("liquidity forwarded",
			"sale", caller,
			"pair", pair,
			"created", created,
			"shares", shares.Dec(),
			"lock", id,
		)
	})
	return id, shares, nil
}
