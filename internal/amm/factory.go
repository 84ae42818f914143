// Package amm is a constant-product (x·y=k) pool factory. Each pair is
// its own pool-share asset on the ledger.
package amm

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/num"
)

// MinimumLiquidity is locked forever on the first mint of every pair.
const MinimumLiquidity = 1000

// ShareDecimals is the precision of pool-share assets.
const ShareDecimals = 18

// Pair is one pool.
type Pair struct {
	Address  solana.PublicKey
	Token0   solana.PublicKey
	Token1   solana.PublicKey
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

func (p *Pair) clone() Pair {
	return Pair{
		Address:  p.Address,
		Token0:   p.Token0,
		Token1:   p.Token1,
		Reserve0: p.Reserve0.Clone(),
		Reserve1: p.Reserve1.Clone(),
	}
}

type pairKey struct {
	token0 solana.PublicKey
	token1 solana.PublicKey
}

// Factory creates and tracks pairs.
type Factory struct {
	ledger    *chain.Ledger
	address   solana.PublicKey
	pairs     map[pairKey]*Pair
	byAddress map[solana.PublicKey]*Pair
	all       []solana.PublicKey
}

// NewFactory creates an empty factory.
func NewFactory(ledger *chain.Ledger) *Factory {
	return &Factory{
		ledger:    ledger,
		address:   chain.MustDerive("amm-factory"),
		pairs:     make(map[pairKey]*Pair),
		byAddress: make(map[solana.PublicKey]*Pair),
	}
}

// Address returns the factory program address.
func (f *Factory) Address() solana.PublicKey {
	return f.address
}

// SortTokens orders two assets by address bytes.
func SortTokens(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey, error) {
	switch bytes.Compare(a[:], b[:]) {
	case 0:
		return solana.PublicKey{}, solana.PublicKey{}, domain.ErrIdenticalAssets
	case -1:
		return a, b, nil
	default:
		return b, a, nil
	}
}

// PairFor returns the pair of a and b if it exists.
func (f *Factory) PairFor(_ *chain.Tx, a, b solana.PublicKey) (solana.PublicKey, bool) {
	t0, t1, err := SortTokens(a, b)
	if err != nil {
		return solana.PublicKey{}, false
	}
	p, ok := f.pairs[pairKey{t0, t1}]
	if !ok {
		return solana.PublicKey{}, false
	}
	return p.Address, true
}

// IsPair reports whether addr is a pool-share asset of this factory.
func (f *Factory) IsPair(_ *chain.Tx, addr solana.PublicKey) bool {
	_, ok := f.byAddress[addr]
	return ok
}

// Pair returns a copy of the pair state.
func (f *Factory) Pair(_ *chain.Tx, addr solana.PublicKey) (Pair, bool) {
	p, ok := f.byAddress[addr]
	if !ok {
		return Pair{}, false
	}
	return p.clone(), true
}

// PairInfo returns a copy of the pair state outside a transaction.
func (f *Factory) PairInfo(addr solana.PublicKey) (Pair, bool) {
	var (
		out Pair
		ok  bool
	)
	_ = f.ledger.View(func(tx *chain.Tx) error {
		out, ok = f.Pair(tx, addr)
		return nil
	})
	return out, ok
}

// AllPairsLength returns the number of pairs created.
func (f *Factory) AllPairsLength() int {
	var n int
	_ = f.ledger.View(func(_ *chain.Tx) error {
		n = len(f.all)
		return nil
	})
	return n
}

// CreatePair deploys the pool for a and b.
func (f *Factory) CreatePair(tx *chain.Tx, a, b solana.PublicKey) (solana.PublicKey, error) {
	t0, t1, err := SortTokens(a, b)
	if err != nil {
		return solana.PublicKey{}, err
	}
	key := pairKey{t0, t1}
	if _, exists := f.pairs[key]; exists {
		return solana.PublicKey{}, domain.ErrPairExists
	}
	if _, ok := tx.Asset(t0); !ok {
		return solana.PublicKey{}, fmt.Errorf("token0 %s: %w", t0, domain.ErrUnknownAsset)
	}
	if _, ok := tx.Asset(t1); !ok {
		return solana.PublicKey{}, fmt.Errorf("token1 %s: %w", t1, domain.ErrUnknownAsset)
	}

	addr, err := chain.Derive("pair", t0[:], t1[:])
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, err := tx.CreateAsset(chain.AssetSpec{
		ID:            addr,
		Symbol:        "LP",
		Decimals:      ShareDecimals,
		MintAuthority: addr,
	}); err != nil {
		return solana.PublicKey{}, fmt.Errorf("create share asset: %w", err)
	}

	p := &Pair{Address: addr, Token0: t0, Token1: t1, Reserve0: new(uint256.Int), Reserve1: new(uint256.Int)}
	f.pairs[key] = p
	f.byAddress[addr] = p
	f.all = append(f.all, addr)
	tx.OnRevert(func() {
		delete(f.pairs, key)
		delete(f.byAddress, addr)
		f.all = f.all[:len(f.all)-1]
	})

	tx.Emit(domain.Event{
		Kind:         domain.EventPairCreated,
		Contract:     f.address.String(),
		Actor:        t0.String(),
		Counterparty: t1.String(),
		Asset:        addr.String(),
	})
	return addr, nil
}

// Mint issues pool shares for whatever the pair holds above its reserves.
func (f *Factory) Mint(tx *chain.Tx, pairAddr, to solana.PublicKey) (*uint256.Int, error) {
	p, ok := f.byAddress[pairAddr]
	if !ok {
		return nil, domain.ErrNotPair
	}

	balance0 := tx.BalanceOf(p.Token0, p.Address)
	balance1 := tx.BalanceOf(p.Token1, p.Address)
	amount0, err := num.Sub(balance0, p.Reserve0)
	if err != nil {
		return nil, err
	}
	amount1, err := num.Sub(balance1, p.Reserve1)
	if err != nil {
		return nil, err
	}

	var liquidity *uint256.Int
	supply := tx.TotalSupply(p.Address)
	if supply.IsZero() {
		product, err := num.Mul(amount0, amount1)
		if err != nil {
			return nil, err
		}
		root := num.Sqrt(product)
		if !root.Gt(num.New(MinimumLiquidity)) {
			return nil, domain.ErrInsufficientLiquidity
		}
		liquidity = new(uint256.Int).Sub(root, num.New(MinimumLiquidity))
		if err := tx.Mint(p.Address, p.Address, chain.BurnAddress, num.New(MinimumLiquidity)); err != nil {
			return nil, err
		}
	} else {
		l0, err := num.MulDiv(amount0, supply, p.Reserve0)
		if err != nil {
			return nil, err
		}
		l1, err := num.MulDiv(amount1, supply, p.Reserve1)
		if err != nil {
			return nil, err
		}
		liquidity = num.Min(l0, l1)
	}
	if liquidity.IsZero() {
		return nil, domain.ErrInsufficientLiquidity
	}
	if err := tx.Mint(p.Address, p.Address, to, liquidity); err != nil {
		return nil, err
	}

	prev0, prev1 := p.Reserve0, p.Reserve1
	p.Reserve0, p.Reserve1 = balance0, balance1
	tx.OnRevert(func() { p.Reserve0, p.Reserve1 = prev0, prev1 })

	tx.Emit(domain.Event{
		Kind:         domain.EventLiquidityAdded,
		Contract:     p.Address.String(),
		Counterparty: to.String(),
		Asset:        p.Address.String(),
		Amount:       liquidity.Dec(),
		Ref:          fmt.Sprintf("%s:%s", amount0.Dec(), amount1.Dec()),
	})
	return liquidity, nil
}
