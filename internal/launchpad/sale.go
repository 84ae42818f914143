// Package launchpad implements token sales: creation through the
// generator, buyer deposits, the derived phase machine, one-time
// finalization into pool liquidity, and claims.
package launchpad

import (
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/access"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/settings"
)

// LiquidityForwarder seeds the pool and locks the resulting shares.
// It pulls both amounts from the sale via allowances and returns the
// vault entry id and the pool shares locked.
type LiquidityForwarder interface {
	Address() solana.PublicKey
	LockLiquidity(tx *chain.Tx, caller, baseAsset, saleAsset solana.PublicKey, baseAmount, saleAmount *uint256.Int, unlockTime int64, withdrawer solana.PublicKey) (uint64, *uint256.Int, error)
}

// Fees are the platform fees frozen into a sale at creation.
type Fees struct {
	TokenFee    uint64 // per mille
	ReferralFee uint64 // basis points
}

// Sale is one offering. All state is mutated inside ledger transactions.
type Sale struct {
	ledger    *chain.Ledger
	settings  *settings.Settings
	forwarder LiquidityForwarder
	policy    AccessPolicy
	metrics   *observability.Metrics
	log       *slog.Logger

	address   solana.PublicKey
	generator solana.PublicKey
	cfg       domain.SaleConfig
	fees      Fees
	status    domain.SaleStatus
	buyers    map[solana.PublicKey]*domain.BuyerRecord
	referrals map[solana.PublicKey]*domain.ReferralRecord
	whitelist *access.AddressSet

	reserve        *uint256.Int // sale asset escrowed at creation
	referralBudget *uint256.Int
	creationFee    *uint256.Int // native, held until settlement or reclaim
	settlement     *Settlement
}

// Address returns the sale program address.
func (s *Sale) Address() solana.PublicKey {
	return s.address
}

// Config returns the immutable sale configuration.
func (s *Sale) Config() domain.SaleConfig {
	cfg := s.cfg
	cfg.TotalOffered = s.cfg.TotalOffered.Clone()
	cfg.HardCap = s.cfg.HardCap.Clone()
	cfg.SoftCap = s.cfg.SoftCap.Clone()
	cfg.MaxSpendPerBuyer = s.cfg.MaxSpendPerBuyer.Clone()
	return cfg
}

// Fees returns the fees frozen at creation.
func (s *Sale) Fees() Fees {
	return s.fees
}

// IsNative reports whether buyers pay in the native currency.
func (s *Sale) IsNative() bool {
	return s.cfg.BaseAsset.Equals(chain.NativeAsset)
}

// DerivePhase computes the sale phase. Rules apply in order; the hardcap
// rule precedes the time window so a filled sale leaves Active at once.
func DerivePhase(cfg domain.SaleConfig, status domain.SaleStatus, now int64) domain.Phase {
	switch {
	case status.ForceFailed:
		return domain.PhaseFailed
	case now < cfg.StartTime:
		return domain.PhasePending
	case !status.TotalBaseCollected.Lt(cfg.HardCap):
		return domain.PhaseSuccess
	case now <= cfg.EndTime:
		return domain.PhaseActive
	case !status.TotalBaseCollected.Lt(cfg.SoftCap):
		return domain.PhaseSuccess
	default:
		return domain.PhaseFailed
	}
}

func (s *Sale) phase(tx *chain.Tx) domain.Phase {
	return DerivePhase(s.cfg, s.status, tx.Now())
}

// Phase returns the current phase.
func (s *Sale) Phase() domain.Phase {
	var p domain.Phase
	_ = s.ledger.View(func(tx *chain.Tx) error {
		p = s.phase(tx)
		return nil
	})
	return p
}

// Status returns a copy of the mutable sale state.
func (s *Sale) Status() domain.SaleStatus {
	var out domain.SaleStatus
	_ = s.ledger.View(func(_ *chain.Tx) error {
		out = s.status.Clone()
		return nil
	})
	return out
}

// Info is the sale configuration plus derived values.
type Info struct {
	Config         domain.SaleConfig
	Fees           Fees
	TokenPrice     *uint256.Int // base units per 1e18 sale units
	Reserve        *uint256.Int
	ReferralBudget *uint256.Int
	CreationFee    *uint256.Int
	IsNative       bool
}

// Info returns the sale configuration and derived price.
func (s *Sale) Info() Info {
	var out Info
	_ = s.ledger.View(func(_ *chain.Tx) error {
		price, err := tokenPrice(s.cfg.HardCap, s.cfg.TotalOffered)
		if err != nil {
			price = new(uint256.Int)
		}
		out = Info{
			Config:         s.Config(),
			Fees:           s.fees,
			TokenPrice:     price,
			Reserve:        s.reserve.Clone(),
			ReferralBudget: s.referralBudget.Clone(),
			CreationFee:    s.creationFee.Clone(),
			IsNative:       s.IsNative(),
		}
		return nil
	})
	return out
}

// Buyer returns the buyer's record, if any.
func (s *Sale) Buyer(addr solana.PublicKey) (domain.BuyerRecord, bool) {
	var (
		out domain.BuyerRecord
		ok  bool
	)
	_ = s.ledger.View(func(_ *chain.Tx) error {
		var rec *domain.BuyerRecord
		if rec, ok = s.buyers[addr]; ok {
			out = rec.Clone()
		}
		return nil
	})
	return out, ok
}

// Referral returns the referrer's accrued bonus, if any.
func (s *Sale) Referral(addr solana.PublicKey) (domain.ReferralRecord, bool) {
	var (
		out domain.ReferralRecord
		ok  bool
	)
	_ = s.ledger.View(func(_ *chain.Tx) error {
		var rec *domain.ReferralRecord
		if rec, ok = s.referrals[addr]; ok {
			out = domain.ReferralRecord{Accrued: rec.Accrued.Clone(), Claimed: rec.Claimed}
		}
		return nil
	})
	return out, ok
}

// Settlement returns the finalization split once the sale is finalized.
func (s *Sale) Settlement() (Settlement, bool) {
	var (
		out Settlement
		ok  bool
	)
	_ = s.ledger.View(func(_ *chain.Tx) error {
		if s.settlement != nil {
			out, ok = *s.settlement, true
		}
		return nil
	})
	return out, ok
}

// IsWhitelisted reports sale whitelist membership.
func (s *Sale) IsWhitelisted(addr solana.PublicKey) bool {
	var ok bool
	_ = s.ledger.View(func(_ *chain.Tx) error {
		ok = s.whitelist.Contains(addr)
		return nil
	})
	return ok
}

// WhitelistLength returns the number of whitelisted buyers.
func (s *Sale) WhitelistLength() int {
	var n int
	_ = s.ledger.View(func(_ *chain.Tx) error {
		n = s.whitelist.Len()
		return nil
	})
	return n
}

// WhitelistAt returns the i-th whitelisted buyer.
func (s *Sale) WhitelistAt(i int) (solana.PublicKey, bool) {
	var (
		addr solana.PublicKey
		ok   bool
	)
	_ = s.ledger.View(func(_ *chain.Tx) error {
		addr, ok = s.whitelist.At(i)
		return nil
	})
	return addr, ok
}

// Snapshot returns a denormalized view for storage and APIs.
func (s *Sale) Snapshot() domain.SaleSnapshot {
	var out domain.SaleSnapshot
	_ = s.ledger.View(func(tx *chain.Tx) error {
		out = domain.SaleSnapshot{
			Address:   s.address.String(),
			Owner:     s.cfg.Owner.String(),
			SaleAsset: s.cfg.SaleAsset.String(),
			BaseAsset: s.cfg.BaseAsset.String(),
			Phase:     s.phase(tx),
			Collected: s.status.TotalBaseCollected.Dec(),
			Sold:      s.status.TotalTokensSold.Dec(),
			HardCap:   s.cfg.HardCap.Dec(),
			SoftCap:   s.cfg.SoftCap.Dec(),
			Buyers:    s.status.BuyerCount,
			Finalized: s.status.Finalized,
			StartTime: s.cfg.StartTime,
			EndTime:   s.cfg.EndTime,
			UpdatedAt: tx.Now(),
		}
		return nil
	})
	return out
}

// snapshotStatus registers an undo for the whole status struct.
func (s *Sale) snapshotStatus(tx *chain.Tx) {
	prev := s.status.Clone()
	tx.OnRevert(func() { s.status = prev })
}

func (s *Sale) observe(fn func(m *observability.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func (s *Sale) emit(tx *chain.Tx, e domain.Event) {
	e.Contract = s.address.String()
	tx.Emit(e)
}

func addrString(a solana.PublicKey) string {
	if a.IsZero() {
		return ""
	}
	return a.String()
}
