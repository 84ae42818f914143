package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/num"
)

// Deposit is the result of AddLiquidity.
type Deposit struct {
	Pair      solana.PublicKey
	AmountA   *uint256.Int // actually deposited
	AmountB   *uint256.Int
	Liquidity *uint256.Int // shares minted to the recipient
	Created   bool         // pair was created by this call
}

// AddLiquidity deposits up to the desired amounts from caller, creating the
// pair if needed. Against existing reserves only the ratio-matching part of
// the desired amounts is taken; the rest stays with caller.
func (f *Factory) AddLiquidity(tx *chain.Tx, caller, tokenA, tokenB solana.PublicKey, amountADesired, amountBDesired *uint256.Int, to solana.PublicKey) (Deposit, error) {
	var out Deposit

	pairAddr, ok := f.PairFor(tx, tokenA, tokenB)
	if !ok {
		created, err := f.CreatePair(tx, tokenA, tokenB)
		if err != nil {
			return out, err
		}
		pairAddr = created
		out.Created = true
	}
	out.Pair = pairAddr

	amountA, amountB, err := f.optimalAmounts(pairAddr, tokenA, amountADesired, amountBDesired)
	if err != nil {
		return out, err
	}

	if err := tx.Transfer(tokenA, caller, pairAddr, amountA); err != nil {
		return out, err
	}
	if err := tx.Transfer(tokenB, caller, pairAddr, amountB); err != nil {
		return out, err
	}
	liquidity, err := f.Mint(tx, pairAddr, to)
	if err != nil {
		return out, err
	}

	out.AmountA, out.AmountB, out.Liquidity = amountA, amountB, liquidity
	return out, nil
}

func (f *Factory) optimalAmounts(pairAddr, tokenA solana.PublicKey, desiredA, desiredB *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	p := f.byAddress[pairAddr]
	reserveA, reserveB := p.Reserve0, p.Reserve1
	if !p.Token0.Equals(tokenA) {
		reserveA, reserveB = reserveB, reserveA
	}
	if reserveA.IsZero() && reserveB.IsZero() {
		return desiredA.Clone(), desiredB.Clone(), nil
	}

	optimalB, err := num.Quote(desiredA, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !optimalB.Gt(desiredB) {
		return desiredA.Clone(), optimalB, nil
	}
	optimalA, err := num.Quote(desiredB, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	return optimalA, desiredB.Clone(), nil
}
