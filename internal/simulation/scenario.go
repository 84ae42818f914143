// Package simulation runs a scripted launch end to end on a fresh deployment.
package simulation

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"token-launchpad/internal/num"
)

// Scenario describes one scripted launch. Amounts are decimal strings in
// whole units of their asset.
type Scenario struct {
	TotalOffered string
	HardCap      string
	SoftCap      string
	MaxSpend     string
	// Fill is the base amount buyers try to deposit in total.
	Fill   string
	Buyers int

	LiquidityPermille uint64
	ListingDiscount   uint64
	LockDuration      int64 // seconds

	Native       bool
	SaleDecimals uint8
	BaseDecimals uint8

	// Referrals makes every buyer after the first use the first buyer as referrer.
	Referrals bool

	// KeepLock leaves the pool shares in the vault instead of withdrawing
	// them after unlock.
	KeepLock bool
}

// DefaultScenario fills the hard cap with four buyers.
func DefaultScenario() Scenario {
	return Scenario{
		TotalOffered:      "10000",
		HardCap:           "10",
		SoftCap:           "5",
		MaxSpend:          "4",
		Fill:              "10",
		Buyers:            4,
		LiquidityPermille: 500,
		ListingDiscount:   25,
		LockDuration:      30 * 24 * 3600,
		SaleDecimals:      18,
		BaseDecimals:      18,
		Referrals:         true,
	}
}

// amounts is a Scenario with its decimal strings parsed.
type amounts struct {
	total, hardCap, softCap, maxSpend, fill *uint256.Int
}

// parse checks the scenario and returns its amounts in base units.
func (s Scenario) parse() (amounts, error) {
	var (
		a    amounts
		errs []error
	)
	parse := func(name, v string, decimals uint8) *uint256.Int {
		out, err := num.Parse(v, decimals)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return num.Zero()
		}
		return out
	}
	a.total = parse("total offered", s.TotalOffered, s.SaleDecimals)
	a.hardCap = parse("hard cap", s.HardCap, s.BaseDecimals)
	a.softCap = parse("soft cap", s.SoftCap, s.BaseDecimals)
	a.maxSpend = parse("max spend", s.MaxSpend, s.BaseDecimals)
	a.fill = parse("fill", s.Fill, s.BaseDecimals)

	if s.Buyers < 1 {
		errs = append(errs, errors.New("at least one buyer is required"))
	}
	if s.SaleDecimals > 18 || s.BaseDecimals > 18 {
		errs = append(errs, errors.New("decimals must be at most 18"))
	}
	return a, errors.Join(errs...)
}
