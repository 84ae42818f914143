package launchpad

import (
	"github.com/holiman/uint256"

	"token-launchpad/internal/num"
)

// SettlementInput are the collected totals a successful sale settles with.
type SettlementInput struct {
	BaseCollected     *uint256.Int
	TokensSold        *uint256.Int
	TokenFee          uint64 // per mille
	LiquidityPermille uint64
	ListingDiscount   uint64 // percent
}

// Settlement is the split of a successful sale. All divisions truncate.
type Settlement struct {
	SaleFee     *uint256.Int // sale asset to the sale-fee receiver
	BaseFee     *uint256.Int // base asset to the base-fee receiver
	SaleNet     *uint256.Int
	BaseNet     *uint256.Int
	SaleForPool *uint256.Int
	BaseForPool *uint256.Int
	BaseToOwner *uint256.Int // base left after fee and pool
}

// ComputeSettlement splits collected totals into fees, pool liquidity and
// owner proceeds. The order of operations is fixed; rounding dust stays
// with the fee receivers and the owner, never with the pool.
func ComputeSettlement(in SettlementInput) (Settlement, error) {
	var (
		s   Settlement
		err error
	)
	if s.SaleFee, err = num.MulDivU(in.TokensSold, in.TokenFee, 1000); err != nil {
		return Settlement{}, err
	}
	if s.BaseFee, err = num.MulDivU(in.BaseCollected, in.TokenFee, 1000); err != nil {
		return Settlement{}, err
	}
	if s.SaleNet, err = num.MulDivU(in.TokensSold, 1000-in.TokenFee, 1000); err != nil {
		return Settlement{}, err
	}
	if s.BaseNet, err = num.MulDivU(in.BaseCollected, 1000-in.TokenFee, 1000); err != nil {
		return Settlement{}, err
	}
	if s.SaleForPool, err = saleForPool(s.SaleNet, in.LiquidityPermille, in.ListingDiscount); err != nil {
		return Settlement{}, err
	}
	if s.BaseForPool, err = num.MulDivU(s.BaseNet, in.LiquidityPermille, 1000); err != nil {
		return Settlement{}, err
	}
	if s.BaseToOwner, err = num.Sub(s.BaseNet, s.BaseForPool); err != nil {
		return Settlement{}, err
	}
	return s, nil
}

func saleForPool(saleNet *uint256.Int, liquidity, listing uint64) (*uint256.Int, error) {
	p, err := num.Mul(saleNet, num.New(liquidity*(100-listing)))
	if err != nil {
		return nil, err
	}
	return num.Div(p, num.New(100000))
}

// Leftover is the reserve that remains unallocated after settlement:
// reserve − (sold + bonus) − saleForPool − saleFee.
func Leftover(reserve, sold, bonus *uint256.Int, s Settlement) (*uint256.Int, error) {
	committed, err := num.Sum(sold, bonus, s.SaleForPool, s.SaleFee)
	if err != nil {
		return nil, err
	}
	return num.Sub(reserve, committed)
}

// AmountRequired is the sale-asset reserve a sale of totalOffered needs to
// cover buyer allocations, pool liquidity and the sale fee at full hardcap.
func AmountRequired(totalOffered *uint256.Int, listing, liquidity, tokenFee uint64) (*uint256.Int, error) {
	s, err := ComputeSettlement(SettlementInput{
		BaseCollected:     num.Zero(),
		TokensSold:        totalOffered,
		TokenFee:          tokenFee,
		LiquidityPermille: liquidity,
		ListingDiscount:   listing,
	})
	if err != nil {
		return nil, err
	}
	return num.Sum(totalOffered, s.SaleForPool, s.SaleFee)
}

// ReferralBudget is the extra reserve escrowed for referral bonuses.
func ReferralBudget(totalOffered *uint256.Int, referralBps uint64) (*uint256.Int, error) {
	return num.MulDivU(totalOffered, referralBps, 10000)
}
