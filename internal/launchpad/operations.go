package launchpad

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/num"
	"token-launchpad/internal/observability"
)

// DepositRequest is a buyer's purchase.
type DepositRequest struct {
	Buyer    solana.PublicKey
	Amount   *uint256.Int     // base units the buyer wants to spend
	Value    *uint256.Int     // native value attached; must equal Amount for native sales
	Referrer solana.PublicKey // optional
}

// DepositResult is what a deposit actually did.
type DepositResult struct {
	Accepted      *uint256.Int // base units taken from the buyer
	Tokens        *uint256.Int // sale units allocated to the buyer
	ReferralBonus *uint256.Int // sale units credited to the referrer
}

// Deposit buys sale tokens. The accepted amount is capped by the buyer's
// remaining allowance and the remaining hardcap headroom, so a later
// buyer may receive a partial fill.
func (s *Sale) Deposit(ctx context.Context, req DepositRequest) (DepositResult, error) {
	var res DepositResult
	err := s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		var err error
		res, err = s.deposit(tx, req)
		return err
	})
	if err != nil {
		return DepositResult{}, err
	}
	s.observe(func(m *observability.Metrics) { m.Deposits.Inc() })
	s.log.Debug("deposit accepted", "sale", s.address, "buyer", req.Buyer, "accepted", res.Accepted.Dec(), "tokens", res.Tokens.Dec())
	return res, nil
}

func (s *Sale) deposit(tx *chain.Tx, req DepositRequest) (DepositResult, error) {
	if s.phase(tx) != domain.PhaseActive {
		return DepositResult{}, domain.ErrNotActive
	}
	if req.Amount == nil {
		req.Amount = num.Zero()
	}
	value := req.Value
	if value == nil {
		value = num.Zero()
	}
	if s.IsNative() {
		if !value.Eq(req.Amount) {
			return DepositResult{}, domain.ErrInvalidValue
		}
	} else if !value.IsZero() {
		return DepositResult{}, domain.ErrInvalidValue
	}

	cur := s.settings.Read(tx)
	allowed := s.policy(AccessInput{
		Now:                tx.Now(),
		StartTime:          s.cfg.StartTime,
		Round1Length:       cur.Round1Length,
		WhitelistOnly:      s.status.WhitelistOnly,
		Whitelisted:        s.whitelist.Contains(req.Buyer),
		EarlyAccessEnabled: s.settings.EarlyAccessEnabled(tx),
		HoldsEarlyAccess:   s.settings.UserHoldsEarlyAccess(tx, req.Buyer),
	})
	if !allowed {
		return DepositResult{}, domain.ErrNotWhitelisted
	}

	buyer, ok := s.buyers[req.Buyer]
	isNew := !ok
	if isNew {
		buyer = &domain.BuyerRecord{BaseDeposited: num.Zero(), TokensOwed: num.Zero()}
	}

	accepted := num.Min(req.Amount, num.SubFloor(s.cfg.MaxSpendPerBuyer, buyer.BaseDeposited))
	accepted = num.Min(accepted, num.SubFloor(s.cfg.HardCap, s.status.TotalBaseCollected))

	tokens, err := s.allocation(accepted)
	if err != nil {
		return DepositResult{}, err
	}
	if tokens.IsZero() {
		return DepositResult{}, domain.ErrZeroTokens
	}

	s.snapshotStatus(tx)
	if isNew {
		s.buyers[req.Buyer] = buyer
		s.status.BuyerCount++
		tx.OnRevert(func() { delete(s.buyers, req.Buyer) })
	} else {
		prev := buyer.Clone()
		tx.OnRevert(func() { *buyer = prev })
	}

	if buyer.BaseDeposited, err = num.Add(buyer.BaseDeposited, accepted); err != nil {
		return DepositResult{}, err
	}
	if buyer.TokensOwed, err = num.Add(buyer.TokensOwed, tokens); err != nil {
		return DepositResult{}, err
	}
	if s.status.TotalBaseCollected, err = num.Add(s.status.TotalBaseCollected, accepted); err != nil {
		return DepositResult{}, err
	}
	if s.status.TotalTokensSold, err = num.Add(s.status.TotalTokensSold, tokens); err != nil {
		return DepositResult{}, err
	}

	if s.IsNative() {
		err = tx.Transfer(chain.NativeAsset, req.Buyer, s.address, accepted)
	} else {
		err = tx.TransferFrom(s.cfg.BaseAsset, s.address, req.Buyer, s.address, accepted)
	}
	if err != nil {
		return DepositResult{}, err
	}

	s.emit(tx, domain.Event{
		Kind:         domain.EventDeposit,
		Actor:        req.Buyer.String(),
		Counterparty: addrString(req.Referrer),
		Asset:        s.cfg.BaseAsset.String(),
		Amount:       accepted.Dec(),
		Ref:          tokens.Dec(),
	})

	bonus, err := s.accrueReferral(tx, req.Buyer, req.Referrer, tokens)
	if err != nil {
		return DepositResult{}, err
	}

	return DepositResult{Accepted: accepted, Tokens: tokens, ReferralBonus: bonus}, nil
}

// allocation converts base units into sale units at the fixed price,
// multiplying before dividing so neither asset's precision is lost.
func (s *Sale) allocation(accepted *uint256.Int) (*uint256.Int, error) {
	v, err := num.Mul(accepted, s.cfg.TotalOffered)
	if err != nil {
		return nil, err
	}
	if v, err = num.Mul(v, num.Scale()); err != nil {
		return nil, err
	}
	if v, err = num.Div(v, s.cfg.HardCap); err != nil {
		return nil, err
	}
	return num.Div(v, num.Scale())
}

// accrueReferral credits an additive bonus to a qualifying referrer.
// Invalid referrers are ignored; accruals stop once the escrowed budget is spent.
func (s *Sale) accrueReferral(tx *chain.Tx, buyer, referrer solana.PublicKey, tokens *uint256.Int) (*uint256.Int, error) {
	if referrer.IsZero() || referrer.Equals(buyer) || !s.settings.ReferrerIsValid(tx, referrer) {
		return num.Zero(), nil
	}
	bonus, err := num.MulDivU(tokens, s.fees.ReferralFee, 10000)
	if err != nil {
		return nil, err
	}
	bonus = num.Min(bonus, num.SubFloor(s.referralBudget, s.status.TotalReferralAccrued))
	if bonus.IsZero() {
		return bonus, nil
	}

	rec, ok := s.referrals[referrer]
	if !ok {
		rec = &domain.ReferralRecord{Accrued: num.Zero()}
		s.referrals[referrer] = rec
		tx.OnRevert(func() { delete(s.referrals, referrer) })
	} else {
		prev := rec.Accrued
		tx.OnRevert(func() { rec.Accrued = prev })
	}
	if rec.Accrued, err = num.Add(rec.Accrued, bonus); err != nil {
		return nil, err
	}
	if s.status.TotalReferralAccrued, err = num.Add(s.status.TotalReferralAccrued, bonus); err != nil {
		return nil, err
	}

	s.emit(tx, domain.Event{
		Kind:         domain.EventReferralAccrued,
		Actor:        buyer.String(),
		Counterparty: referrer.String(),
		Asset:        s.cfg.SaleAsset.String(),
		Amount:       bonus.Dec(),
	})
	return bonus, nil
}

// Finalize settles a successful sale exactly once: seeds and locks pool
// liquidity, pays fees and proceeds, returns the unused referral budget
// and burns whatever reserve is left.
func (s *Sale) Finalize(ctx context.Context, caller solana.PublicKey) (Settlement, error) {
	var out Settlement
	var burned *uint256.Int
	err := s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		var err error
		out, burned, err = s.finalize(tx, caller)
		return err
	})
	if err != nil {
		return Settlement{}, err
	}
	s.observe(func(m *observability.Metrics) {
		m.SalesFinalized.Inc()
		if !burned.IsZero() {
			m.LeftoverBurns.Inc()
		}
	})
	s.log.Info("sale finalized", "sale", s.address, "base_for_pool", out.BaseForPool.Dec(), "sale_for_pool", out.SaleForPool.Dec(), "burned", burned.Dec())
	return out, nil
}

func (s *Sale) finalize(tx *chain.Tx, caller solana.PublicKey) (Settlement, *uint256.Int, error) {
	if s.status.Finalized {
		return Settlement{}, nil, domain.ErrAlreadyFinalized
	}
	if s.phase(tx) != domain.PhaseSuccess {
		return Settlement{}, nil, domain.ErrNotSuccess
	}

	st, err := ComputeSettlement(SettlementInput{
		BaseCollected:     s.status.TotalBaseCollected,
		TokensSold:        s.status.TotalTokensSold,
		TokenFee:          s.fees.TokenFee,
		LiquidityPermille: s.cfg.LiquidityPermille,
		ListingDiscount:   s.cfg.ListingDiscount,
	})
	if err != nil {
		return Settlement{}, nil, err
	}
	escrow, err := num.Add(s.reserve, s.referralBudget)
	if err != nil {
		return Settlement{}, nil, err
	}
	if _, err := Leftover(escrow, s.status.TotalTokensSold, s.status.TotalReferralAccrued, st); err != nil {
		return Settlement{}, nil, fmt.Errorf("reserve does not cover allocations: %w", err)
	}

	s.snapshotStatus(tx)
	prevSettlement := s.settlement
	tx.OnRevert(func() { s.settlement = prevSettlement })

	// Pool liquidity, locked for the owner.
	poolBase := s.cfg.BaseAsset
	if s.IsNative() {
		if err := tx.Wrap(s.address, st.BaseForPool); err != nil {
			return Settlement{}, nil, err
		}
		poolBase = chain.WrappedNative
	}
	fwd := s.forwarder.Address()
	if err := tx.Approve(poolBase, s.address, fwd, st.BaseForPool); err != nil {
		return Settlement{}, nil, err
	}
	if err := tx.Approve(s.cfg.SaleAsset, s.address, fwd, st.SaleForPool); err != nil {
		return Settlement{}, nil, err
	}
	lockID, shares, err := s.forwarder.LockLiquidity(tx, s.address, poolBase, s.cfg.SaleAsset,
		st.BaseForPool, st.SaleForPool, tx.Now()+s.cfg.LockDuration, s.cfg.Owner)
	if err != nil {
		return Settlement{}, nil, fmt.Errorf("lock liquidity: %w", err)
	}
	s.status.LockID = lockID

	// Fees.
	cur := s.settings.Read(tx)
	if err := s.payFee(tx, s.cfg.SaleAsset, cur.SaleFeeReceiver, st.SaleFee, "sale_fee"); err != nil {
		return Settlement{}, nil, err
	}
	if err := s.payFee(tx, s.cfg.BaseAsset, cur.BaseFeeReceiver, st.BaseFee, "base_fee"); err != nil {
		return Settlement{}, nil, err
	}
	if err := s.payCreationFee(tx, cur.BaseFeeReceiver); err != nil {
		return Settlement{}, nil, err
	}

	// Proceeds.
	proceeds := tx.BalanceOf(s.cfg.BaseAsset, s.address)
	if err := tx.Transfer(s.cfg.BaseAsset, s.address, s.cfg.Owner, proceeds); err != nil {
		return Settlement{}, nil, err
	}

	// Unused referral budget goes back to the owner before the burn.
	surplus := num.SubFloor(s.referralBudget, s.status.TotalReferralAccrued)
	if err := tx.Transfer(s.cfg.SaleAsset, s.address, s.cfg.Owner, surplus); err != nil {
		return Settlement{}, nil, err
	}

	// Whatever is not owed to buyers or referrers is destroyed.
	owed, err := num.Add(s.status.TotalTokensSold, s.status.TotalReferralAccrued)
	if err != nil {
		return Settlement{}, nil, err
	}
	leftover := num.SubFloor(tx.BalanceOf(s.cfg.SaleAsset, s.address), owed)
	if !leftover.IsZero() {
		if err := tx.Transfer(s.cfg.SaleAsset, s.address, chain.BurnAddress, leftover); err != nil {
			return Settlement{}, nil, err
		}
		s.emit(tx, domain.Event{
			Kind:         domain.EventLeftoverBurned,
			Actor:        caller.String(),
			Counterparty: chain.BurnAddress.String(),
			Asset:        s.cfg.SaleAsset.String(),
			Amount:       leftover.Dec(),
		})
	}

	s.status.Finalized = true
	s.settlement = &st
	s.emit(tx, domain.Event{
		Kind:         domain.EventFinalized,
		Actor:        caller.String(),
		Counterparty: s.cfg.Owner.String(),
		Asset:        s.cfg.BaseAsset.String(),
		Amount:       s.status.TotalBaseCollected.Dec(),
		Ref:          fmt.Sprintf("lock:%d shares:%s", lockID, shares.Dec()),
	})
	return st, leftover, nil
}

func (s *Sale) payFee(tx *chain.Tx, asset, to solana.PublicKey, amount *uint256.Int, label string) error {
	if amount.IsZero() {
		return nil
	}
	if err := tx.Transfer(asset, s.address, to, amount); err != nil {
		return fmt.Errorf("pay %s: %w", label, err)
	}
	s.emit(tx, domain.Event{
		Kind:         domain.EventFeePaid,
		Counterparty: to.String(),
		Asset:        asset.String(),
		Amount:       amount.Dec(),
		Ref:          label,
	})
	tx.OnCommit(func() {
		s.observe(func(m *observability.Metrics) { m.FeesPaid.WithLabelValues(feeLabel(label)).Inc() })
	})
	return nil
}

// feeLabel maps "sale_fee" to the metric label "sale".
func feeLabel(label string) string {
	return strings.TrimSuffix(label, "_fee")
}

func (s *Sale) payCreationFee(tx *chain.Tx, to solana.PublicKey) error {
	if s.creationFee.IsZero() {
		return nil
	}
	if err := s.payFee(tx, chain.NativeAsset, to, s.creationFee, "creation_fee"); err != nil {
		return err
	}
	prev := s.creationFee
	s.creationFee = num.Zero()
	tx.OnRevert(func() { s.creationFee = prev })
	return nil
}

// ClaimTokens pays a buyer's allocation after finalization.
func (s *Sale) ClaimTokens(ctx context.Context, buyer solana.PublicKey) (*uint256.Int, error) {
	var owed *uint256.Int
	err := s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if !s.status.Finalized {
			if s.phase(tx) == domain.PhaseFailed {
				return domain.ErrNotSuccess
			}
			return domain.ErrAwaitingLP
		}
		rec, ok := s.buyers[buyer]
		if !ok || rec.TokensOwed.IsZero() {
			return domain.ErrNothingToClaim
		}
		if rec.TokensClaimed {
			return domain.ErrAlreadyClaimed
		}

		s.snapshotStatus(tx)
		rec.TokensClaimed = true
		tx.OnRevert(func() { rec.TokensClaimed = false })

		owed = rec.TokensOwed.Clone()
		var err error
		if s.status.TotalTokensWithdrawn, err = num.Add(s.status.TotalTokensWithdrawn, owed); err != nil {
			return err
		}
		if err := tx.Transfer(s.cfg.SaleAsset, s.address, buyer, owed); err != nil {
			return err
		}
		s.emit(tx, domain.Event{
			Kind:         domain.EventTokensClaimed,
			Actor:        buyer.String(),
			Asset:        s.cfg.SaleAsset.String(),
			Amount:       owed.Dec(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observe(func(m *observability.Metrics) { m.Claims.WithLabelValues("tokens").Inc() })
	return owed, nil
}

// ClaimReferral pays a referrer's accrued bonus after finalization.
func (s *Sale) ClaimReferral(ctx context.Context, referrer solana.PublicKey) (*uint256.Int, error) {
	var bonus *uint256.Int
	err := s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if !s.status.Finalized {
			if s.phase(tx) == domain.PhaseFailed {
				return domain.ErrNotSuccess
			}
			return domain.ErrAwaitingLP
		}
		rec, ok := s.referrals[referrer]
		if !ok || rec.Accrued.IsZero() {
			return domain.ErrNothingToClaim
		}
		if rec.Claimed {
			return domain.ErrAlreadyClaimed
		}

		s.snapshotStatus(tx)
		rec.Claimed = true
		tx.OnRevert(func() { rec.Claimed = false })

		bonus = rec.Accrued.Clone()
		var err error
		if s.status.TotalReferralClaimed, err = num.Add(s.status.TotalReferralClaimed, bonus); err != nil {
			return err
		}
		if err := tx.Transfer(s.cfg.SaleAsset, s.address, referrer, bonus); err != nil {
			return err
		}
		s.emit(tx, domain.Event{
			Kind:   domain.EventReferralClaimed,
			Actor:  referrer.String(),
			Asset:  s.cfg.SaleAsset.String(),
			Amount: bonus.Dec(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observe(func(m *observability.Metrics) { m.Claims.WithLabelValues("referral").Inc() })
	return bonus, nil
}

// ClaimRefund returns a buyer's deposit from a failed sale.
func (s *Sale) ClaimRefund(ctx context.Context, buyer solana.PublicKey) (*uint256.Int, error) {
	var refund *uint256.Int
	err := s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if s.phase(tx) != domain.PhaseFailed {
			return domain.ErrNotFailed
		}
		rec, ok := s.buyers[buyer]
		if !ok || rec.BaseDeposited.IsZero() {
			return domain.ErrNothingToClaim
		}
		if rec.BaseRefunded {
			return domain.ErrAlreadyClaimed
		}

		s.snapshotStatus(tx)
		rec.BaseRefunded = true
		tx.OnRevert(func() { rec.BaseRefunded = false })

		refund = rec.BaseDeposited.Clone()
		var err error
		if s.status.TotalBaseWithdrawn, err = num.Add(s.status.TotalBaseWithdrawn, refund); err != nil {
			return err
		}
		if err := tx.Transfer(s.cfg.BaseAsset, s.address, buyer, refund); err != nil {
			return err
		}
		s.emit(tx, domain.Event{
			Kind:   domain.EventRefunded,
			Actor:  buyer.String(),
			Asset:  s.cfg.BaseAsset.String(),
			Amount: refund.Dec(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observe(func(m *observability.Metrics) { m.Claims.WithLabelValues("refund").Inc() })
	return refund, nil
}

// OwnerReclaim returns the unsold reserve of a failed sale to its owner and
// settles the held creation fee. Usable once.
func (s *Sale) OwnerReclaim(ctx context.Context, caller solana.PublicKey) (*uint256.Int, error) {
	var reclaimed *uint256.Int
	err := s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if !caller.Equals(s.cfg.Owner) {
			return domain.ErrNotSaleOwner
		}
		if s.status.Finalized || s.phase(tx) != domain.PhaseFailed {
			return domain.ErrNotFailed
		}
		if s.status.Reclaimed {
			return domain.ErrAlreadyReclaimed
		}

		s.snapshotStatus(tx)
		s.status.Reclaimed = true

		reclaimed = tx.BalanceOf(s.cfg.SaleAsset, s.address)
		if err := tx.Transfer(s.cfg.SaleAsset, s.address, s.cfg.Owner, reclaimed); err != nil {
			return err
		}
		if err := s.payCreationFee(tx, s.settings.Read(tx).BaseFeeReceiver); err != nil {
			return err
		}
		s.emit(tx, domain.Event{
			Kind:   domain.EventOwnerReclaimed,
			Actor:  caller.String(),
			Asset:  s.cfg.SaleAsset.String(),
			Amount: reclaimed.Dec(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reclaimed, nil
}

// ForceFail aborts the sale. Allowed for the sale owner or the platform
// admin at any time before finalization; irreversible.
func (s *Sale) ForceFail(ctx context.Context, caller solana.PublicKey) error {
	err := s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if !caller.Equals(s.cfg.Owner) && !s.settings.IsAdmin(caller) {
			return domain.ErrNotAdmin
		}
		if s.status.Finalized {
			return domain.ErrAlreadyFinalized
		}
		s.snapshotStatus(tx)
		s.status.ForceFailed = true
		s.emit(tx, domain.Event{
			Kind:  domain.EventForceFailed,
			Actor: caller.String(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.observe(func(m *observability.Metrics) { m.SalesFailed.Inc() })
	s.log.Warn("sale force-failed", "sale", s.address, "caller", caller)
	return nil
}

// SetWhitelistOnly toggles the whitelist restriction. Owner only, before finalization.
func (s *Sale) SetWhitelistOnly(ctx context.Context, caller solana.PublicKey, on bool) error {
	return s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := s.checkOwnerEditable(caller); err != nil {
			return err
		}
		s.snapshotStatus(tx)
		s.status.WhitelistOnly = on
		return nil
	})
}

// EditWhitelist adds or removes buyers. Owner only, before finalization.
func (s *Sale) EditWhitelist(ctx context.Context, caller solana.PublicKey, users []solana.PublicKey, add bool) error {
	return s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := s.checkOwnerEditable(caller); err != nil {
			return err
		}
		for _, u := range users {
			s.whitelist.Edit(tx, u, add)
		}
		return nil
	})
}

func (s *Sale) checkOwnerEditable(caller solana.PublicKey) error {
	if !caller.Equals(s.cfg.Owner) {
		return domain.ErrNotSaleOwner
	}
	if s.status.Finalized {
		return domain.ErrAlreadyFinalized
	}
	return nil
}
