// Package locker is the liquidity lock vault: time-locked positions of
// pool-share tokens with a fee schedule and an optional migrator.
package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/access"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/num"
	"token-launchpad/internal/observability"
)

// MaxUnlockTime bounds unlock timestamps (exclusive).
const MaxUnlockTime = 10_000_000_000

// PairChecker reports whether a token is a pool-share asset of the
// configured pool factory.
type PairChecker interface {
	IsPair(tx *chain.Tx, addr solana.PublicKey) bool
}

// Migrator moves a lock entry to another vault. It receives an allowance
// over the entry's tokens and must pull them inside Migrate.
type Migrator interface {
	Address() solana.PublicKey
	Migrate(tx *chain.Tx, vault solana.PublicKey, entry domain.LockEntry) error
}

// DefaultFees returns the initial fee schedule.
func DefaultFees() domain.FeeSchedule {
	return domain.FeeSchedule{
		ReferralPercent:        250,
		ReferralDiscount:       100,
		NativeFee:              num.Units(1, 18),
		SecondaryTokenFee:      num.Units(100, 18),
		SecondaryTokenDiscount: 200,
		LiquidityFee:           10,
		ReferralHold:           num.Units(10, 18),
	}
}

// Config wires a Vault.
type Config struct {
	Ledger  *chain.Ledger
	Pairs   PairChecker
	Owner   solana.PublicKey
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Validate checks required fields.
func (c *Config) Validate() error {
	var errs []error
	if c.Ledger == nil {
		errs = append(errs, errors.New("ledger is required"))
	}
	if c.Pairs == nil {
		errs = append(errs, errors.New("pair checker is required"))
	}
	if c.Owner.IsZero() {
		errs = append(errs, errors.New("owner is required"))
	}
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	return errors.Join(errs...)
}

// Vault holds lock entries. State is mutated only inside ledger transactions.
type Vault struct {
	ledger  *chain.Ledger
	pairs   PairChecker
	owner   *access.Owner
	metrics *observability.Metrics
	log     *slog.Logger
	address solana.PublicKey

	fees      domain.FeeSchedule
	dev       solana.PublicKey
	migrator  Migrator
	whitelist *access.AddressSet

	nextID uint64
	locks  map[uint64]*domain.LockEntry
}

// New creates a vault with the default fee schedule; dev defaults to owner.
func New(cfg Config) (*Vault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vault config: %w", err)
	}
	return &Vault{
		ledger:    cfg.Ledger,
		pairs:     cfg.Pairs,
		owner:     access.NewOwner(cfg.Owner),
		metrics:   cfg.Metrics,
		log:       cfg.Logger.With("component", "vault"),
		address:   chain.MustDerive("lock-vault"),
		fees:      DefaultFees(),
		dev:       cfg.Owner,
		whitelist: access.NewAddressSet(),
		locks:     make(map[uint64]*domain.LockEntry),
	}, nil
}

// Address returns the vault program address.
func (v *Vault) Address() solana.PublicKey {
	return v.address
}

// Owner returns the vault admin.
func (v *Vault) Owner() solana.PublicKey {
	return v.owner.Address()
}

// Fees returns the current fee schedule.
func (v *Vault) Fees() domain.FeeSchedule {
	var out domain.FeeSchedule
	_ = v.ledger.View(func(_ *chain.Tx) error {
		out = v.fees.Clone()
		return nil
	})
	return out
}

// Dev returns the fee receiver.
func (v *Vault) Dev() solana.PublicKey {
	var out solana.PublicKey
	_ = v.ledger.View(func(_ *chain.Tx) error {
		out = v.dev
		return nil
	})
	return out
}

func (v *Vault) admin(ctx context.Context, caller solana.PublicKey, fn func(tx *chain.Tx) error) error {
	return v.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := v.owner.Check(caller); err != nil {
			return err
		}
		return fn(tx)
	})
}

// SetFees replaces the fee amounts. Token addresses are set separately.
func (v *Vault) SetFees(ctx context.Context, caller solana.PublicKey, f domain.FeeSchedule) error {
	return v.admin(ctx, caller, func(tx *chain.Tx) error {
		if f.ReferralPercent > 1000 || f.ReferralDiscount > 1000 || f.SecondaryTokenDiscount > 1000 || f.LiquidityFee > 1000 {
			return domain.ErrInvalidFee
		}
		if f.NativeFee == nil || f.SecondaryTokenFee == nil {
			return domain.ErrInvalidFee
		}
		prev := v.fees
		tx.OnRevert(func() { v.fees = prev })
		next := f.Clone()
		next.ReferralToken = prev.ReferralToken
		next.ReferralHold = prev.ReferralHold.Clone()
		next.SecondaryFeeToken = prev.SecondaryFeeToken
		v.fees = next
		return nil
	})
}

// SetReferralTokenAndHold configures which token, and how much of it, a
// referral must hold to qualify.
func (v *Vault) SetReferralTokenAndHold(ctx context.Context, caller, token solana.PublicKey, hold *uint256.Int) error {
	return v.admin(ctx, caller, func(tx *chain.Tx) error {
		prevToken, prevHold := v.fees.ReferralToken, v.fees.ReferralHold
		tx.OnRevert(func() { v.fees.ReferralToken, v.fees.ReferralHold = prevToken, prevHold })
		v.fees.ReferralToken = token
		v.fees.ReferralHold = hold.Clone()
		return nil
	})
}

// SetSecondaryFeeToken configures the token burned by FeeSecondaryToken locks.
func (v *Vault) SetSecondaryFeeToken(ctx context.Context, caller, token solana.PublicKey) error {
	return v.admin(ctx, caller, func(tx *chain.Tx) error {
		prev := v.fees.SecondaryFeeToken
		tx.OnRevert(func() { v.fees.SecondaryFeeToken = prev })
		v.fees.SecondaryFeeToken = token
		return nil
	})
}

// SetDev sets the fee receiver.
func (v *Vault) SetDev(ctx context.Context, caller, dev solana.PublicKey) error {
	return v.admin(ctx, caller, func(tx *chain.Tx) error {
		if dev.IsZero() {
			return domain.ErrZeroAddress
		}
		prev := v.dev
		tx.OnRevert(func() { v.dev = prev })
		v.dev = dev
		return nil
	})
}

// SetMigrator sets or clears (nil) the migrator.
func (v *Vault) SetMigrator(ctx context.Context, caller solana.PublicKey, m Migrator) error {
	return v.admin(ctx, caller, func(tx *chain.Tx) error {
		prev := v.migrator
		tx.OnRevert(func() { v.migrator = prev })
		v.migrator = m
		return nil
	})
}

// WhitelistFeeAccount exempts or un-exempts an account from lock fees.
func (v *Vault) WhitelistFeeAccount(ctx context.Context, caller, account solana.PublicKey, add bool) error {
	return v.admin(ctx, caller, func(tx *chain.Tx) error {
		v.whitelist.Edit(tx, account, add)
		return nil
	})
}

// TransferOwnership hands the vault admin role to next.
func (v *Vault) TransferOwnership(ctx context.Context, caller, next solana.PublicKey) error {
	return v.ledger.Execute(ctx, func(tx *chain.Tx) error {
		return v.owner.Transfer(tx, caller, next)
	})
}

// IsWhitelisted reports fee exemption.
func (v *Vault) IsWhitelisted(account solana.PublicKey) bool {
	var ok bool
	_ = v.ledger.View(func(_ *chain.Tx) error {
		ok = v.whitelist.Contains(account)
		return nil
	})
	return ok
}

// WhitelistedAccounts enumerates fee-exempt accounts.
func (v *Vault) WhitelistedAccounts() []solana.PublicKey {
	var out []solana.PublicKey
	_ = v.ledger.View(func(_ *chain.Tx) error {
		out = v.whitelist.Values()
		return nil
	})
	return out
}

// Entry returns a copy of the lock entry.
func (v *Vault) Entry(id uint64) (domain.LockEntry, bool) {
	var (
		out domain.LockEntry
		ok  bool
	)
	_ = v.ledger.View(func(_ *chain.Tx) error {
		var e *domain.LockEntry
		if e, ok = v.locks[id]; ok {
			out = e.Clone()
		}
		return nil
	})
	return out, ok
}

// LocksOf returns the owner's entries ordered by id.
func (v *Vault) LocksOf(owner solana.PublicKey) []domain.LockEntry {
	return v.filter(func(e *domain.LockEntry) bool { return e.Owner.Equals(owner) })
}

// LocksForToken returns the token's entries ordered by id.
func (v *Vault) LocksForToken(token solana.PublicKey) []domain.LockEntry {
	return v.filter(func(e *domain.LockEntry) bool { return e.Token.Equals(token) })
}

// LockedTokens returns every token with at least one entry.
func (v *Vault) LockedTokens() []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var out []solana.PublicKey
	for _, e := range v.filter(func(*domain.LockEntry) bool { return true }) {
		if _, ok := seen[e.Token]; ok {
			continue
		}
		seen[e.Token] = struct{}{}
		out = append(out, e.Token)
	}
	return out
}

// NumLocks returns the number of live entries.
func (v *Vault) NumLocks() int {
	var n int
	_ = v.ledger.View(func(_ *chain.Tx) error {
		n = len(v.locks)
		return nil
	})
	return n
}

func (v *Vault) filter(keep func(*domain.LockEntry) bool) []domain.LockEntry {
	var out []domain.LockEntry
	_ = v.ledger.View(func(_ *chain.Tx) error {
		for _, e := range v.locks {
			if keep(e) {
				out = append(out, e.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *Vault) observe(fn func(m *observability.Metrics)) {
	if v.metrics != nil {
		fn(v.metrics)
	}
}
