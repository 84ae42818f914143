package locker

import (
	"context"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/num"
	"token-launchpad/internal/observability"
)

// LockRequest opens a new entry. Tokens are pulled from Caller; the entry
// belongs to Withdrawer (Caller when zero).
type LockRequest struct {
	Caller     solana.PublicKey
	Token      solana.PublicKey
	Amount     *uint256.Int
	UnlockTime int64
	Referral   solana.PublicKey
	FeeMode    domain.FeeMode
	Value      *uint256.Int // native attached for FeeNative
	Withdrawer solana.PublicKey
}

// Lock opens a new entry and returns its id.
func (v *Vault) Lock(ctx context.Context, req LockRequest) (uint64, error) {
	var id uint64
	err := v.ledger.Execute(ctx, func(tx *chain.Tx) error {
		var err error
		id, err = v.LockTx(tx, req)
		return err
	})
	if err != nil {
		return 0, err
	}
	v.log.Info("liquidity locked", "id", id, "token", req.Token, "amount", req.Amount.Dec(), "unlock", req.UnlockTime)
	return id, nil
}

// LockTx is Lock for callers already inside a transaction.
func (v *Vault) LockTx(tx *chain.Tx, req LockRequest) (uint64, error) {
	if req.Amount == nil || req.Amount.IsZero() {
		return 0, domain.ErrInsufficient
	}
	if req.UnlockTime >= MaxUnlockTime || req.UnlockTime < tx.Now() {
		return 0, domain.ErrTimestampInvalid
	}
	if !v.pairs.IsPair(tx, req.Token) {
		return 0, domain.ErrNotPair
	}
	withdrawer := req.Withdrawer
	if withdrawer.IsZero() {
		withdrawer = req.Caller
	}

	if err := tx.TransferFrom(req.Token, v.address, req.Caller, v.address, req.Amount); err != nil {
		return 0, err
	}

	held := req.Amount.Clone()
	if !v.whitelist.Contains(req.Caller) {
		var err error
		if held, err = v.chargeFee(tx, req); err != nil {
			return 0, err
		}
	}

	v.nextID++
	id := v.nextID
	tx.OnRevert(func() { v.nextID = id - 1 })
	v.put(tx, &domain.LockEntry{
		ID:            id,
		Owner:         withdrawer,
		Token:         req.Token,
		Amount:        held,
		InitialAmount: held.Clone(),
		LockTime:      tx.Now(),
		UnlockTime:    req.UnlockTime,
	})

	v.emit(tx, domain.Event{
		Kind:         domain.EventLocked,
		Actor:        req.Caller.String(),
		Counterparty: withdrawer.String(),
		Asset:        req.Token.String(),
		Amount:       held.Dec(),
		Ref:          strconv.FormatUint(id, 10),
	})
	tx.OnCommit(func() {
		v.observe(func(m *observability.Metrics) {
			m.LocksCreated.Inc()
			m.ActiveLocks.Inc()
		})
	})
	return id, nil
}

// chargeFee collects the fee for req and returns the amount the entry holds.
func (v *Vault) chargeFee(tx *chain.Tx, req LockRequest) (*uint256.Int, error) {
	referred := v.validReferral(tx, req.Caller, req.Referral)

	switch req.FeeMode {
	case domain.FeeNative:
		fee := v.fees.NativeFee.Clone()
		if referred {
			var err error
			if fee, err = num.MulDivU(fee, 1000-v.fees.ReferralDiscount, 1000); err != nil {
				return nil, err
			}
		}
		value := req.Value
		if value == nil {
			value = num.Zero()
		}
		if value.Lt(fee) {
			return nil, domain.ErrFeeNotMet
		}
		toDev := fee
		if referred {
			share, err := num.MulDivU(fee, v.fees.ReferralPercent, 1000)
			if err != nil {
				return nil, err
			}
			if err := v.payFee(tx, chain.NativeAsset, req.Caller, req.Referral, share, "referral"); err != nil {
				return nil, err
			}
			toDev = new(uint256.Int).Sub(fee, share)
		}
		if err := v.payFee(tx, chain.NativeAsset, req.Caller, v.dev, toDev, "native"); err != nil {
			return nil, err
		}
		return req.Amount.Clone(), nil

	case domain.FeeInKind:
		fee, err := num.MulDivU(req.Amount, v.fees.LiquidityFee, 1000)
		if err != nil {
			return nil, err
		}
		if err := v.payFee(tx, req.Token, v.address, v.dev, fee, "in_kind"); err != nil {
			return nil, err
		}
		held := new(uint256.Int).Sub(req.Amount, fee)
		if held.IsZero() {
			return nil, domain.ErrInsufficient
		}
		return held, nil

	case domain.FeeSecondaryToken:
		if v.fees.SecondaryFeeToken.IsZero() {
			return nil, domain.ErrFeeTokenNotSet
		}
		fee := v.fees.SecondaryTokenFee.Clone()
		if referred {
			var err error
			if fee, err = num.MulDivU(fee, 1000-v.fees.SecondaryTokenDiscount, 1000); err != nil {
				return nil, err
			}
		}
		if !fee.IsZero() {
			if err := tx.TransferFrom(v.fees.SecondaryFeeToken, v.address, req.Caller, chain.BurnAddress, fee); err != nil {
				return nil, err
			}
			v.emitFee(tx, v.fees.SecondaryFeeToken, chain.BurnAddress, fee, "secondary_token")
		}
		return req.Amount.Clone(), nil

	default:
		return nil, domain.NewError(domain.KindInvalidInput, "UNKNOWN FEE MODE")
	}
}

func (v *Vault) validReferral(tx *chain.Tx, caller, referral solana.PublicKey) bool {
	if referral.IsZero() || referral.Equals(caller) || v.fees.ReferralToken.IsZero() {
		return false
	}
	return !tx.BalanceOf(v.fees.ReferralToken, referral).Lt(v.fees.ReferralHold)
}

func (v *Vault) payFee(tx *chain.Tx, asset, from, to solana.PublicKey, amount *uint256.Int, label string) error {
	if amount.IsZero() {
		return nil
	}
	if err := tx.Transfer(asset, from, to, amount); err != nil {
		return err
	}
	v.emitFee(tx, asset, to, amount, label)
	return nil
}

func (v *Vault) emitFee(tx *chain.Tx, asset, to solana.PublicKey, amount *uint256.Int, label string) {
	v.emit(tx, domain.Event{
		Kind:         domain.EventFeePaid,
		Counterparty: to.String(),
		Asset:        asset.String(),
		Amount:       amount.Dec(),
		Ref:          label,
	})
	tx.OnCommit(func() {
		v.observe(func(m *observability.Metrics) { m.FeesPaid.WithLabelValues("vault_" + label).Inc() })
	})
}

// Increase adds tokens to an entry without a fee.
func (v *Vault) Increase(ctx context.Context, caller solana.PublicKey, id uint64, amount *uint256.Int) error {
	return v.mutate(ctx, caller, id, "increase", func(tx *chain.Tx, e *domain.LockEntry) error {
		if amount == nil || amount.IsZero() {
			return domain.ErrInsufficient
		}
		if err := tx.TransferFrom(e.Token, v.address, caller, v.address, amount); err != nil {
			return err
		}
		var err error
		if e.Amount, err = num.Add(e.Amount, amount); err != nil {
			return err
		}
		if e.InitialAmount, err = num.Add(e.InitialAmount, amount); err != nil {
			return err
		}
		v.emit(tx, domain.Event{
			Kind:   domain.EventLockIncreased,
			Actor:  caller.String(),
			Asset:  e.Token.String(),
			Amount: amount.Dec(),
			Ref:    strconv.FormatUint(id, 10),
		})
		return nil
	})
}

// Extend moves the unlock time later. It never shortens a lock.
func (v *Vault) Extend(ctx context.Context, caller solana.PublicKey, id uint64, unlockTime int64) error {
	return v.mutate(ctx, caller, id, "extend", func(tx *chain.Tx, e *domain.LockEntry) error {
		if unlockTime >= MaxUnlockTime {
			return domain.ErrTimestampInvalid
		}
		if unlockTime < e.UnlockTime {
			return domain.ErrShortenedLock
		}
		e.UnlockTime = unlockTime
		v.emit(tx, domain.Event{
			Kind:  domain.EventLockExtended,
			Actor: caller.String(),
			Asset: e.Token.String(),
			Ref:   strconv.FormatUint(id, 10) + ":" + strconv.FormatInt(unlockTime, 10),
		})
		return nil
	})
}

// Split moves amount into a new entry with the same token, owner and
// unlock time and returns the new id.
func (v *Vault) Split(ctx context.Context, caller solana.PublicKey, id uint64, amount *uint256.Int) (uint64, error) {
	var newID uint64
	err := v.mutate(ctx, caller, id, "split", func(tx *chain.Tx, e *domain.LockEntry) error {
		if amount == nil || amount.IsZero() || !amount.Lt(e.Amount) {
			return domain.ErrInsufficient
		}
		e.Amount = new(uint256.Int).Sub(e.Amount, amount)

		v.nextID++
		newID = v.nextID
		n := newID
		tx.OnRevert(func() { v.nextID = n - 1 })
		v.put(tx, &domain.LockEntry{
			ID:            newID,
			Owner:         e.Owner,
			Token:         e.Token,
			Amount:        amount.Clone(),
			InitialAmount: amount.Clone(),
			LockTime:      e.LockTime,
			UnlockTime:    e.UnlockTime,
		})
		v.emit(tx, domain.Event{
			Kind:   domain.EventLockSplit,
			Actor:  caller.String(),
			Asset:  e.Token.String(),
			Amount: amount.Dec(),
			Ref:    strconv.FormatUint(id, 10) + ">" + strconv.FormatUint(newID, 10),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	v.observe(func(m *observability.Metrics) {
		m.LocksCreated.Inc()
		m.ActiveLocks.Inc()
	})
	return newID, nil
}

// TransferOwner hands an entry to a new owner.
func (v *Vault) TransferOwner(ctx context.Context, caller solana.PublicKey, id uint64, newOwner solana.PublicKey) error {
	return v.mutate(ctx, caller, id, "transfer", func(tx *chain.Tx, e *domain.LockEntry) error {
		if newOwner.IsZero() {
			return domain.ErrZeroAddress
		}
		e.Owner = newOwner
		v.emit(tx, domain.Event{
			Kind:         domain.EventLockTransferred,
			Actor:        caller.String(),
			Counterparty: newOwner.String(),
			Asset:        e.Token.String(),
			Ref:          strconv.FormatUint(id, 10),
		})
		return nil
	})
}

// Withdraw releases unlocked tokens to the owner. The entry is removed
// once empty.
func (v *Vault) Withdraw(ctx context.Context, caller solana.PublicKey, id uint64, amount *uint256.Int) error {
	var closed bool
	err := v.mutate(ctx, caller, id, "withdraw", func(tx *chain.Tx, e *domain.LockEntry) error {
		if tx.Now() < e.UnlockTime {
			return domain.ErrNotUnlocked
		}
		if amount == nil || amount.IsZero() || amount.Gt(e.Amount) {
			return domain.ErrInsufficient
		}
		e.Amount = new(uint256.Int).Sub(e.Amount, amount)
		if err := tx.Transfer(e.Token, v.address, caller, amount); err != nil {
			return err
		}
		if e.Amount.IsZero() {
			v.remove(tx, id)
			closed = true
		}
		v.emit(tx, domain.Event{
			Kind:   domain.EventWithdrawn,
			Actor:  caller.String(),
			Asset:  e.Token.String(),
			Amount: amount.Dec(),
			Ref:    strconv.FormatUint(id, 10),
		})
		return nil
	})
	if err != nil {
		return err
	}
	v.observe(func(m *observability.Metrics) {
		m.Withdrawals.Inc()
		if closed {
			m.ActiveLocks.Dec()
		}
	})
	return nil
}

// Migrate hands the entry to the configured migrator and removes it.
func (v *Vault) Migrate(ctx context.Context, caller solana.PublicKey, id uint64) error {
	err := v.mutate(ctx, caller, id, "migrate", func(tx *chain.Tx, e *domain.LockEntry) error {
		if v.migrator == nil {
			return domain.ErrMigratorNotSet
		}
		snapshot := e.Clone()
		before := tx.BalanceOf(e.Token, v.address)
		if err := tx.Approve(e.Token, v.address, v.migrator.Address(), e.Amount); err != nil {
			return err
		}
		if err := v.migrator.Migrate(tx, v.address, snapshot); err != nil {
			return err
		}
		// The migrator must pull exactly the locked amount.
		if pulled := num.SubFloor(before, tx.BalanceOf(e.Token, v.address)); !pulled.Eq(snapshot.Amount) {
			return domain.ErrMigrationFailed
		}
		if err := tx.Approve(e.Token, v.address, v.migrator.Address(), num.Zero()); err != nil {
			return err
		}
		v.remove(tx, id)
		v.emit(tx, domain.Event{
			Kind:         domain.EventMigrated,
			Actor:        caller.String(),
			Counterparty: v.migrator.Address().String(),
			Asset:        e.Token.String(),
			Amount:       snapshot.Amount.Dec(),
			Ref:          strconv.FormatUint(id, 10),
		})
		return nil
	})
	if err != nil {
		return err
	}
	v.observe(func(m *observability.Metrics) { m.ActiveLocks.Dec() })
	return nil
}

// mutate runs fn on an owned entry inside a transaction. The entry is
// restored on revert.
func (v *Vault) mutate(ctx context.Context, caller solana.PublicKey, id uint64, op string, fn func(tx *chain.Tx, e *domain.LockEntry) error) error {
	err := v.ledger.Execute(ctx, func(tx *chain.Tx) error {
		e, ok := v.locks[id]
		if !ok {
			return domain.ErrLockNotFound
		}
		if !e.Owner.Equals(caller) {
			return domain.ErrNotLockOwner
		}
		prev := e.Clone()
		tx.OnRevert(func() { *e = prev })
		return fn(tx, e)
	})
	if err != nil {
		return err
	}
	v.observe(func(m *observability.Metrics) { m.LockMutations.WithLabelValues(op).Inc() })
	return nil
}

func (v *Vault) put(tx *chain.Tx, e *domain.LockEntry) {
	v.locks[e.ID] = e
	tx.OnRevert(func() { delete(v.locks, e.ID) })
}

func (v *Vault) remove(tx *chain.Tx, id uint64) {
	e := v.locks[id]
	delete(v.locks, id)
	tx.OnRevert(func() { v.locks[id] = e })
}

func (v *Vault) emit(tx *chain.Tx, e domain.Event) {
	e.Contract = v.address.String()
	tx.Emit(e)
}
