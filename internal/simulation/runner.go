package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/launchpad"
	"token-launchpad/internal/num"
	"token-launchpad/internal/platform"
)

// BuyerOutcome is what one buyer put in and got out.
type BuyerOutcome struct {
	Address   solana.PublicKey
	Deposited *uint256.Int // base units accepted by the sale
	Owed      *uint256.Int // sale units allocated
	Received  *uint256.Int // sale units claimed, or base units refunded on failure
}

// ReferralOutcome is the bonus one referrer claimed.
type ReferralOutcome struct {
	Address solana.PublicKey
	Claimed *uint256.Int
}

// Result summarizes a finished launch.
type Result struct {
	Scenario Scenario

	Sale      solana.PublicKey
	SaleAsset chain.Asset
	BaseAsset chain.Asset
	Phase     domain.Phase
	Info      launchpad.Info
	Status    domain.SaleStatus

	Settlement *launchpad.Settlement // nil unless the sale succeeded
	Pair       solana.PublicKey
	Lock       *domain.LockEntry // as locked at finalize
	Withdrawn  *uint256.Int      // pool shares the owner took out after unlock

	Buyers    []BuyerOutcome
	Referrals []ReferralOutcome

	OwnerBaseProceeds *uint256.Int // base units the owner received at finalize
	OwnerReclaimed    *uint256.Int // sale units returned to the owner on failure
	Burned            *uint256.Int // sale units sent to the burn address
	SaleFeesPaid      *uint256.Int
	BaseFeesPaid      *uint256.Int
}

// Runner drives a launch on a deployment whose ledger runs on a fake clock.
type Runner struct {
	d     *platform.Deployment
	clock *clockwork.FakeClock
	log   *slog.Logger
}

// NewRunner creates a Runner. The deployment must use clock.
func NewRunner(d *platform.Deployment, clock *clockwork.FakeClock, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{d: d, clock: clock, log: log.With("component", "simulation")}
}

// Run executes the scenario: create, deposit, then either finalize, claim and
// unlock, or refund and reclaim.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Result, error) {
	amt, err := sc.parse()
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	ledger := r.d.Ledger
	settings := r.d.Settings.Current()

	owner := solana.NewWallet().PublicKey()
	if err := ledger.Airdrop(ctx, owner, settings.CreationFee); err != nil {
		return nil, fmt.Errorf("fund owner: %w", err)
	}

	required, err := r.d.Generator.AmountRequired(amt.total, sc.ListingDiscount, sc.LiquidityPermille)
	if err != nil {
		return nil, fmt.Errorf("amount required: %w", err)
	}
	budget, err := launchpad.ReferralBudget(amt.total, settings.ReferralFee)
	if err != nil {
		return nil, err
	}
	supply, err := num.Add(required, budget)
	if err != nil {
		return nil, err
	}
	saleToken, err := ledger.CreateAsset(ctx, chain.AssetSpec{
		Symbol: "SALE", Decimals: sc.SaleDecimals, Holder: owner, InitialSupply: supply,
	})
	if err != nil {
		return nil, fmt.Errorf("create sale asset: %w", err)
	}
	if err := ledger.Approve(ctx, saleToken, owner, r.d.Generator.Address(), chain.MaxAllowance()); err != nil {
		return nil, err
	}

	baseToken := chain.NativeAsset
	baseSource := solana.NewWallet().PublicKey()
	if !sc.Native {
		baseToken, err = ledger.CreateAsset(ctx, chain.AssetSpec{
			Symbol: "BASE", Decimals: sc.BaseDecimals, Holder: baseSource, InitialSupply: amt.fill.Clone(),
		})
		if err != nil {
			return nil, fmt.Errorf("create base asset: %w", err)
		}
	}

	baseFeesBefore := ledger.BalanceOf(baseToken, settings.BaseFeeReceiver)

	start := ledger.Now() + 60
	sale, err := r.d.Generator.Create(ctx, launchpad.CreateRequest{
		Caller:            owner,
		Value:             settings.CreationFee,
		SaleAsset:         saleToken,
		BaseAsset:         baseToken,
		TotalOffered:      amt.total,
		HardCap:           amt.hardCap,
		SoftCap:           amt.softCap,
		MaxSpendPerBuyer:  amt.maxSpend,
		LiquidityPermille: sc.LiquidityPermille,
		ListingDiscount:   sc.ListingDiscount,
		LockDuration:      sc.LockDuration,
		StartTime:         start,
		EndTime:           start + 86400,
	})
	if err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	r.log.Info("sale created", "sale", sale.Address(), "reserve", num.Format(required, sc.SaleDecimals))

	r.advanceTo(start + settings.Round1Length)

	buyers, err := r.deposit(ctx, sale, sc, amt, baseToken, baseSource)
	if err != nil {
		return nil, err
	}

	if sale.Phase() == domain.PhaseActive {
		r.advanceTo(sale.Config().EndTime + 1)
	}

	saleMeta, _ := ledger.Asset(saleToken)
	baseMeta, _ := ledger.Asset(baseToken)
	res := &Result{
		Scenario:          sc,
		Sale:              sale.Address(),
		SaleAsset:         saleMeta,
		BaseAsset:         baseMeta,
		Phase:             sale.Phase(),
		Info:              sale.Info(),
		Buyers:            buyers,
		OwnerBaseProceeds: num.Zero(),
		OwnerReclaimed:    num.Zero(),
		Withdrawn:         num.Zero(),
	}

	if res.Phase == domain.PhaseSuccess {
		err = r.settle(ctx, sale, owner, res)
	} else {
		err = r.unwind(ctx, sale, owner, res)
	}
	if err != nil {
		return nil, err
	}

	res.Status = sale.Status()
	res.Burned = ledger.BalanceOf(saleToken, chain.BurnAddress)
	res.SaleFeesPaid = ledger.BalanceOf(saleToken, settings.SaleFeeReceiver)
	res.BaseFeesPaid = num.SubFloor(ledger.BalanceOf(baseToken, settings.BaseFeeReceiver), baseFeesBefore)
	if sc.Native {
		// The creation fee lands in the same native balance.
		res.BaseFeesPaid = num.SubFloor(res.BaseFeesPaid, res.Info.CreationFee)
	}
	return res, nil
}

func (r *Runner) deposit(ctx context.Context, sale *launchpad.Sale, sc Scenario, amt amounts, baseToken, baseSource solana.PublicKey) ([]BuyerOutcome, error) {
	ledger := r.d.Ledger
	remaining := amt.fill.Clone()
	per := num.Min(amt.maxSpend, new(uint256.Int).Div(amt.fill, uint256.NewInt(uint64(sc.Buyers))))

	var (
		out      []BuyerOutcome
		referrer solana.PublicKey
	)
	for i := 0; i < sc.Buyers && !remaining.IsZero(); i++ {
		amount := per
		if i == sc.Buyers-1 {
			amount = num.Min(remaining, amt.maxSpend)
		}
		if amount.IsZero() {
			continue
		}

		buyer := solana.NewWallet().PublicKey()
		req := launchpad.DepositRequest{Buyer: buyer, Amount: amount.Clone()}
		if sc.Native {
			if err := ledger.Airdrop(ctx, buyer, amount); err != nil {
				return nil, err
			}
			req.Value = amount.Clone()
		} else {
			if err := ledger.Transfer(ctx, baseToken, baseSource, buyer, amount); err != nil {
				return nil, err
			}
			if err := ledger.Approve(ctx, baseToken, buyer, sale.Address(), chain.MaxAllowance()); err != nil {
				return nil, err
			}
		}
		if sc.Referrals && i > 0 {
			req.Referrer = referrer
		}

		got, err := sale.Deposit(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("deposit %d: %w", i, err)
		}
		if i == 0 {
			referrer = buyer
		}
		remaining = num.SubFloor(remaining, got.Accepted)
		out = append(out, BuyerOutcome{Address: buyer, Deposited: got.Accepted, Owed: got.Tokens, Received: num.Zero()})
		r.log.Debug("deposit", "buyer", buyer, "accepted", got.Accepted.Dec(), "tokens", got.Tokens.Dec())
	}
	return out, nil
}

// settle finalizes, pays every claim and exercises the vault lock.
func (r *Runner) settle(ctx context.Context, sale *launchpad.Sale, owner solana.PublicKey, res *Result) error {
	ledger := r.d.Ledger
	base := sale.Config().BaseAsset

	before := ledger.BalanceOf(base, owner)
	st, err := sale.Finalize(ctx, owner)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	res.Settlement = &st
	res.OwnerBaseProceeds = num.SubFloor(ledger.BalanceOf(base, owner), before)

	for i := range res.Buyers {
		b := &res.Buyers[i]
		got, err := sale.ClaimTokens(ctx, b.Address)
		if err != nil {
			return fmt.Errorf("claim tokens: %w", err)
		}
		b.Received = got
		if _, ok := sale.Referral(b.Address); ok {
			bonus, err := sale.ClaimReferral(ctx, b.Address)
			if err != nil {
				return fmt.Errorf("claim referral: %w", err)
			}
			res.Referrals = append(res.Referrals, ReferralOutcome{Address: b.Address, Claimed: bonus})
		}
	}

	lockID := sale.Status().LockID
	entry, ok := r.d.Vault.Entry(lockID)
	if !ok {
		return fmt.Errorf("lock %d not found", lockID)
	}
	locked := entry.Clone()
	res.Lock = &locked
	res.Pair = entry.Token
	if res.Scenario.KeepLock {
		return nil
	}

	extended := entry.UnlockTime + 86400
	if err := r.d.Vault.Extend(ctx, owner, lockID, extended); err != nil {
		return fmt.Errorf("extend lock: %w", err)
	}
	r.advanceTo(extended)
	if err := r.d.Vault.Withdraw(ctx, owner, lockID, entry.Amount); err != nil {
		return fmt.Errorf("withdraw lock: %w", err)
	}
	res.Withdrawn = entry.Amount.Clone()
	return nil
}

// unwind refunds every buyer and returns the escrow to the owner.
func (r *Runner) unwind(ctx context.Context, sale *launchpad.Sale, owner solana.PublicKey, res *Result) error {
	for i := range res.Buyers {
		b := &res.Buyers[i]
		got, err := sale.ClaimRefund(ctx, b.Address)
		if err != nil {
			return fmt.Errorf("claim refund: %w", err)
		}
		b.Received = got
	}
	got, err := sale.OwnerReclaim(ctx, owner)
	if err != nil {
		return fmt.Errorf("owner reclaim: %w", err)
	}
	res.OwnerReclaimed = got
	return nil
}

func (r *Runner) advanceTo(ts int64) {
	if d := ts - r.d.Ledger.Now(); d > 0 {
		r.clock.Advance(time.Duration(d) * time.Second)
	}
}
