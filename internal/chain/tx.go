package chain

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/num"
)

// ErrReadOnly is returned when a view transaction attempts a mutation.
var ErrReadOnly = errors.New("read-only transaction")

// Tx is the handle programs use to read and mutate ledger state.
// Only valid inside Ledger.Execute or Ledger.View.
type Tx struct {
	l        *Ledger
	seq      uint64
	now      int64
	readOnly bool
	undo     []func()
	commit   []func()
	events   []domain.Event
}

// Seq returns the transaction number.
func (tx *Tx) Seq() uint64 { return tx.seq }

// Now returns the block time in unix seconds.
func (tx *Tx) Now() int64 { return tx.now }

// OnRevert registers fn to run if the transaction fails. Undo functions
// run in reverse registration order.
func (tx *Tx) OnRevert(fn func()) {
	if tx.readOnly {
		return
	}
	tx.undo = append(tx.undo, fn)
}

// OnCommit registers fn to run after the transaction commits, outside the
// ledger lock. Hooks registered by a reverted transaction never run.
func (tx *Tx) OnCommit(fn func()) {
	if tx.readOnly {
		return
	}
	tx.commit = append(tx.commit, fn)
}

func (tx *Tx) revert() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.commit = nil
	tx.events = nil
}

// Emit buffers an event. Events reach sinks only after commit.
func (tx *Tx) Emit(e domain.Event) {
	if tx.readOnly {
		return
	}
	e.TxSeq = tx.seq
	e.Index = len(tx.events)
	e.Timestamp = tx.now
	e.ID = idhash.ComputeEventID(e.TxSeq, e.Index, e.Kind, e.Contract)
	tx.events = append(tx.events, e)
}

// Asset returns asset metadata.
func (tx *Tx) Asset(id solana.PublicKey) (Asset, bool) {
	st, ok := tx.l.assets[id]
	if !ok {
		return Asset{}, false
	}
	return st.meta, true
}

// BalanceOf returns a copy of holder's balance.
func (tx *Tx) BalanceOf(asset, holder solana.PublicKey) *uint256.Int {
	st, ok := tx.l.assets[asset]
	if !ok {
		return new(uint256.Int)
	}
	return st.balance(holder).Clone()
}

// TotalSupply returns a copy of the asset supply.
func (tx *Tx) TotalSupply(asset solana.PublicKey) *uint256.Int {
	st, ok := tx.l.assets[asset]
	if !ok {
		return new(uint256.Int)
	}
	return st.supply.Clone()
}

// Allowance returns how much spender may move from owner.
func (tx *Tx) Allowance(asset, owner, spender solana.PublicKey) *uint256.Int {
	st, ok := tx.l.assets[asset]
	if !ok {
		return new(uint256.Int)
	}
	if a, ok := st.allowances[allowanceKey{owner, spender}]; ok {
		return a.Clone()
	}
	return new(uint256.Int)
}

// CreateAsset registers an asset and mints spec.InitialSupply to spec.Holder.
func (tx *Tx) CreateAsset(spec AssetSpec) (solana.PublicKey, error) {
	if tx.readOnly {
		return solana.PublicKey{}, ErrReadOnly
	}
	id := spec.ID
	if id.IsZero() {
		tx.l.nonce++
		n := tx.l.nonce
		tx.OnRevert(func() { tx.l.nonce = n - 1 })
		derived, err := Derive("asset", []byte(spec.Symbol), idhash.Uint64(n))
		if err != nil {
			return solana.PublicKey{}, err
		}
		id = derived
	}
	if _, exists := tx.l.assets[id]; exists {
		return solana.PublicKey{}, fmt.Errorf("asset %s: %w", id, domain.ErrAlreadyRegistered)
	}

	tx.l.assets[id] = newAssetState(Asset{
		ID:            id,
		Symbol:        spec.Symbol,
		Decimals:      spec.Decimals,
		MintAuthority: spec.MintAuthority,
	})
	tx.OnRevert(func() { delete(tx.l.assets, id) })

	if spec.InitialSupply != nil && !spec.InitialSupply.IsZero() {
		if spec.Holder.IsZero() {
			return solana.PublicKey{}, domain.ErrZeroAddress
		}
		if err := tx.mint(tx.l.assets[id], spec.Holder, spec.InitialSupply); err != nil {
			return solana.PublicKey{}, err
		}
	}
	return id, nil
}

// Mint creates new units. Only the asset's mint authority may mint.
func (tx *Tx) Mint(authority, asset, to solana.PublicKey, amount *uint256.Int) error {
	st, err := tx.writable(asset)
	if err != nil {
		return err
	}
	if st.meta.MintAuthority.IsZero() || !st.meta.MintAuthority.Equals(authority) {
		return domain.ErrNotOwner
	}
	return tx.mint(st, to, amount)
}

// Burn destroys units held by from. Only the asset's mint authority may burn.
func (tx *Tx) Burn(authority, asset, from solana.PublicKey, amount *uint256.Int) error {
	st, err := tx.writable(asset)
	if err != nil {
		return err
	}
	if st.meta.MintAuthority.IsZero() || !st.meta.MintAuthority.Equals(authority) {
		return domain.ErrNotOwner
	}
	return tx.burn(st, from, amount)
}

// Transfer moves amount from one holder to another.
func (tx *Tx) Transfer(asset, from, to solana.PublicKey, amount *uint256.Int) error {
	st, err := tx.writable(asset)
	if err != nil {
		return err
	}
	if err := tx.move(st, from, to, amount); err != nil {
		if errors.Is(err, domain.ErrUnderflow) {
			return fmt.Errorf("%s balance of %s: %w", st.meta.Symbol, from, domain.ErrTransferFailed)
		}
		return err
	}
	return nil
}

// Approve sets spender's allowance over owner's asset.
func (tx *Tx) Approve(asset, owner, spender solana.PublicKey, amount *uint256.Int) error {
	st, err := tx.writable(asset)
	if err != nil {
		return err
	}
	if spender.IsZero() {
		return domain.ErrZeroAddress
	}
	key := allowanceKey{owner, spender}
	prev, had := st.allowances[key]
	st.allowances[key] = amount.Clone()
	tx.OnRevert(func() {
		if had {
			st.allowances[key] = prev
		} else {
			delete(st.allowances, key)
		}
	})
	return nil
}

// TransferFrom moves amount from `from` to `to` using spender's allowance.
func (tx *Tx) TransferFrom(asset, spender, from, to solana.PublicKey, amount *uint256.Int) error {
	st, err := tx.writable(asset)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	key := allowanceKey{from, spender}
	allowed := st.allowances[key]
	if allowed == nil || allowed.Lt(amount) || st.balance(from).Lt(amount) {
		return fmt.Errorf("%s from %s: %w", st.meta.Symbol, from, domain.ErrTransferFromFailed)
	}
	if !allowed.Eq(maxAllowance) {
		prev := allowed
		st.allowances[key] = new(uint256.Int).Sub(allowed, amount)
		tx.OnRevert(func() { st.allowances[key] = prev })
	}
	return tx.move(st, from, to, amount)
}

// Wrap converts native currency held by holder into the wrapped asset.
func (tx *Tx) Wrap(holder solana.PublicKey, amount *uint256.Int) error {
	if err := tx.Transfer(NativeAsset, holder, wrappedCustodian, amount); err != nil {
		return err
	}
	return tx.Mint(wrappedCustodian, WrappedNative, holder, amount)
}

// Unwrap converts wrapped native back into native currency.
func (tx *Tx) Unwrap(holder solana.PublicKey, amount *uint256.Int) error {
	if err := tx.Burn(wrappedCustodian, WrappedNative, holder, amount); err != nil {
		return err
	}
	return tx.Transfer(NativeAsset, wrappedCustodian, holder, amount)
}

func (tx *Tx) writable(asset solana.PublicKey) (*assetState, error) {
	if tx.readOnly {
		return nil, ErrReadOnly
	}
	st, ok := tx.l.assets[asset]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", asset, domain.ErrUnknownAsset)
	}
	return st, nil
}

func (tx *Tx) setBalance(st *assetState, holder solana.PublicKey, v *uint256.Int) {
	prev, had := st.balances[holder]
	if v.IsZero() {
		delete(st.balances, holder)
	} else {
		st.balances[holder] = v
	}
	tx.OnRevert(func() {
		if had {
			st.balances[holder] = prev
		} else {
			delete(st.balances, holder)
		}
	})
}

func (tx *Tx) setSupply(st *assetState, v *uint256.Int) {
	prev := st.supply
	st.supply = v
	tx.OnRevert(func() { st.supply = prev })
}

func (tx *Tx) move(st *assetState, from, to solana.PublicKey, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if to.IsZero() {
		return domain.ErrZeroAddress
	}
	if from.Equals(BurnAddress) {
		return domain.ErrSinkIsFrozen
	}
	if from.Equals(to) {
		if st.balance(from).Lt(amount) {
			return domain.ErrUnderflow
		}
		tx.emitTransfer(st, from, to, amount)
		return nil
	}
	fromBal, err := num.Sub(st.balance(from), amount)
	if err != nil {
		return err
	}
	toBal, err := num.Add(st.balance(to), amount)
	if err != nil {
		return err
	}
	tx.setBalance(st, from, fromBal)
	tx.setBalance(st, to, toBal)
	tx.emitTransfer(st, from, to, amount)
	return nil
}

func (tx *Tx) mint(st *assetState, to solana.PublicKey, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if to.IsZero() {
		return domain.ErrZeroAddress
	}
	supply, err := num.Add(st.supply, amount)
	if err != nil {
		return err
	}
	bal, err := num.Add(st.balance(to), amount)
	if err != nil {
		return err
	}
	tx.setSupply(st, supply)
	tx.setBalance(st, to, bal)
	tx.emitTransfer(st, solana.PublicKey{}, to, amount)
	return nil
}

func (tx *Tx) burn(st *assetState, from solana.PublicKey, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	bal, err := num.Sub(st.balance(from), amount)
	if err != nil {
		return fmt.Errorf("%s balance of %s: %w", st.meta.Symbol, from, domain.ErrTransferFailed)
	}
	supply, err := num.Sub(st.supply, amount)
	if err != nil {
		return err
	}
	tx.setBalance(st, from, bal)
	tx.setSupply(st, supply)
	tx.emitTransfer(st, from, solana.PublicKey{}, amount)
	return nil
}

func (tx *Tx) emitTransfer(st *assetState, from, to solana.PublicKey, amount *uint256.Int) {
	e := domain.Event{
		Kind:     domain.EventTransfer,
		Contract: st.meta.ID.String(),
		Asset:    st.meta.ID.String(),
		Amount:   amount.Dec(),
	}
	if !from.IsZero() {
		e.Actor = from.String()
	}
	if !to.IsZero() {
		e.Counterparty = to.String()
	}
	tx.Emit(e)
}
