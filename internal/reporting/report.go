// Package reporting renders launch results as Markdown and CSV.
package reporting

import "time"

// Report is a launch result with every amount already formatted.
type Report struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time

	Sale       SaleSection
	Settlement *SettlementSection // nil for failed sales
	Lock       *LockSection       // nil when no liquidity was locked
	Buyers     []BuyerRow
	Referrals  []ReferralRow
	Events     []EventCountRow // sorted by kind
}

// SaleSection describes the sale and its final state.
type SaleSection struct {
	Address   string
	Owner     string
	SaleAsset string // symbol
	BaseAsset string // symbol
	Phase     string
	HardCap   string
	SoftCap   string
	Collected string
	Sold      string
	Buyers    uint64
	Reclaimed string // sale units returned to the owner, failed sales only
}

// SettlementSection is the finalize split.
type SettlementSection struct {
	SaleFee     string
	BaseFee     string
	SaleNet     string
	BaseNet     string
	SaleForPool string
	BaseForPool string
	BaseToOwner string
	OwnerBase   string // observed owner balance change at finalize
	Burned      string
}

// LockSection describes the vault entry holding the pool shares.
type LockSection struct {
	ID         uint64
	Pair       string
	Amount     string
	LockTime   int64
	UnlockTime int64
	Withdrawn  string
}

// BuyerRow is one buyer's outcome.
type BuyerRow struct {
	Address   string
	Deposited string
	Owed      string
	Received  string
}

// ReferralRow is one claimed referral bonus.
type ReferralRow struct {
	Address string
	Claimed string
}

// EventCountRow counts indexed events of one kind.
type EventCountRow struct {
	Kind  string
	Count int
}
