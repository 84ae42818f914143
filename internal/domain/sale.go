package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Phase is the derived lifecycle phase of a sale. Never stored.
type Phase int

const (
	PhasePending Phase = iota
	PhaseActive
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "PENDING"
	case PhaseActive:
		return "ACTIVE"
	case PhaseSuccess:
		return "SUCCESS"
	case PhaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// SaleConfig is fixed at creation.
type SaleConfig struct {
	Owner             solana.PublicKey
	SaleAsset         solana.PublicKey
	BaseAsset         solana.PublicKey // chain.NativeAsset for native-currency sales
	TotalOffered      *uint256.Int     // sale-asset units
	HardCap           *uint256.Int     // base-asset units
	SoftCap           *uint256.Int     // base-asset units
	MaxSpendPerBuyer  *uint256.Int     // base-asset units
	LiquidityPermille uint64           // share of net proceeds routed to the pool (250..1000)
	ListingDiscount   uint64           // percent below sale price used for the listing rate
	LockDuration      int64            // seconds the pool shares stay locked
	StartTime         int64            // unix seconds
	EndTime           int64            // unix seconds
	Referrer          solana.PublicKey // creation referrer, zero if none
}

// SaleStatus is the mutable part of a sale.
type SaleStatus struct {
	TotalBaseCollected   *uint256.Int
	TotalBaseWithdrawn   *uint256.Int
	TotalTokensSold      *uint256.Int
	TotalTokensWithdrawn *uint256.Int
	TotalReferralAccrued *uint256.Int
	TotalReferralClaimed *uint256.Int
	BuyerCount           uint64
	ForceFailed          bool
	Finalized            bool
	WhitelistOnly        bool
	Reclaimed            bool
	LockID               uint64 // vault entry holding the pool shares, set on finalize
}

// NewSaleStatus returns a status with all totals at zero.
func NewSaleStatus() SaleStatus {
	return SaleStatus{
		TotalBaseCollected:   new(uint256.Int),
		TotalBaseWithdrawn:   new(uint256.Int),
		TotalTokensSold:      new(uint256.Int),
		TotalTokensWithdrawn: new(uint256.Int),
		TotalReferralAccrued: new(uint256.Int),
		TotalReferralClaimed: new(uint256.Int),
	}
}

// Clone returns a deep copy.
func (s SaleStatus) Clone() SaleStatus {
	out := s
	out.TotalBaseCollected = s.TotalBaseCollected.Clone()
	out.TotalBaseWithdrawn = s.TotalBaseWithdrawn.Clone()
	out.TotalTokensSold = s.TotalTokensSold.Clone()
	out.TotalTokensWithdrawn = s.TotalTokensWithdrawn.Clone()
	out.TotalReferralAccrued = s.TotalReferralAccrued.Clone()
	out.TotalReferralClaimed = s.TotalReferralClaimed.Clone()
	return out
}

// BuyerRecord is created on first deposit and never deleted.
type BuyerRecord struct {
	BaseDeposited *uint256.Int
	TokensOwed    *uint256.Int
	TokensClaimed bool
	BaseRefunded  bool
}

// Clone returns a deep copy.
func (b BuyerRecord) Clone() BuyerRecord {
	out := b
	out.BaseDeposited = b.BaseDeposited.Clone()
	out.TokensOwed = b.TokensOwed.Clone()
	return out
}

// ReferralRecord is the bonus accrued by one referrer.
type ReferralRecord struct {
	Accrued *uint256.Int
	Claimed bool
}

// SaleSnapshot is a denormalized view of a sale for storage and APIs.
type SaleSnapshot struct {
	Address   string
	Owner     string
	SaleAsset string
	BaseAsset string
	Phase     Phase
	Collected string // decimal string, base-asset units
	Sold      string // decimal string, sale-asset units
	HardCap   string
	SoftCap   string
	Buyers    uint64
	Finalized bool
	StartTime int64
	EndTime   int64
	UpdatedAt int64 // unix seconds
}
