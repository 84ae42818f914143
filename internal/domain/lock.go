package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// LockEntry is one vault position of pool-share tokens.
type LockEntry struct {
	ID            uint64
	Owner         solana.PublicKey
	Token         solana.PublicKey // pool-share asset
	Amount        *uint256.Int
	InitialAmount *uint256.Int
	LockTime      int64 // unix seconds
	UnlockTime    int64 // unix seconds
}

// Clone returns a deep copy.
func (e LockEntry) Clone() LockEntry {
	out := e
	out.Amount = e.Amount.Clone()
	out.InitialAmount = e.InitialAmount.Clone()
	return out
}

// FeeMode selects how a non-whitelisted caller pays the vault fee.
type FeeMode int

const (
	FeeNative FeeMode = iota
	FeeInKind
	FeeSecondaryToken
)

func (m FeeMode) String() string {
	switch m {
	case FeeNative:
		return "native"
	case FeeInKind:
		return "in_kind"
	case FeeSecondaryToken:
		return "secondary_token"
	default:
		return "unknown"
	}
}

// FeeSchedule is the vault's owner-mutable fee configuration.
// Percent fields are per mille.
type FeeSchedule struct {
	ReferralPercent        uint64       // share of the native fee paid to the referrer
	ReferralDiscount       uint64       // native fee discount with a valid referral
	NativeFee              *uint256.Int // flat fee in native units
	SecondaryTokenFee      *uint256.Int // flat fee in secondary-token units
	SecondaryTokenDiscount uint64       // secondary fee discount with a valid referral
	LiquidityFee           uint64       // in-kind cut of the locked amount
	ReferralToken          solana.PublicKey
	ReferralHold           *uint256.Int
	SecondaryFeeToken      solana.PublicKey
}

// Clone returns a deep copy.
func (f FeeSchedule) Clone() FeeSchedule {
	out := f
	out.NativeFee = f.NativeFee.Clone()
	out.SecondaryTokenFee = f.SecondaryTokenFee.Clone()
	out.ReferralHold = f.ReferralHold.Clone()
	return out
}
