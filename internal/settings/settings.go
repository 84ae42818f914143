// Package settings is the platform-wide launchpad configuration: fees,
// fee receivers, round timing, early-access tokens and allowed referrers.
package settings

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"token-launchpad/internal/access"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/num"
)

// Defaults.
const (
	DefaultTokenFee      = 15      // per mille of sold tokens and raised base
	DefaultReferralFee   = 100     // basis points of a buyer's allocation
	DefaultRound1Length  = 7200    // seconds
	DefaultMaxSaleLength = 1209600 // two weeks
)

// DefaultCreationFee is 0.5 native units at 18 decimals.
func DefaultCreationFee() *uint256.Int {
	return num.New(500_000_000_000_000_000)
}

// Settings is owner-gated configuration read by sales and the generator.
// State is only touched inside ledger transactions.
type Settings struct {
	ledger *chain.Ledger
	owner  *access.Owner

	tokenFee        uint64
	referralFee     uint64
	creationFee     *uint256.Int
	saleFeeReceiver solana.PublicKey
	baseFeeReceiver solana.PublicKey
	round1Length    int64
	maxSaleLength   int64

	earlyAccess     *access.AddressSet
	earlyAccessHold map[solana.PublicKey]*uint256.Int
	referrers       *access.AddressSet
}

// New creates settings owned by owner with default values.
func New(ledger *chain.Ledger, owner solana.PublicKey) *Settings {
	return &Settings{
		ledger:          ledger,
		owner:           access.NewOwner(owner),
		tokenFee:        DefaultTokenFee,
		referralFee:     DefaultReferralFee,
		creationFee:     DefaultCreationFee(),
		saleFeeReceiver: owner,
		baseFeeReceiver: owner,
		round1Length:    DefaultRound1Length,
		maxSaleLength:   DefaultMaxSaleLength,
		earlyAccess:     access.NewAddressSet(),
		earlyAccessHold: make(map[solana.PublicKey]*uint256.Int),
		referrers:       access.NewAddressSet(),
	}
}

// Snapshot is an immutable copy of the settings a sale reads in one transaction.
type Snapshot struct {
	Owner           solana.PublicKey
	TokenFee        uint64
	ReferralFee     uint64
	CreationFee     *uint256.Int
	SaleFeeReceiver solana.PublicKey
	BaseFeeReceiver solana.PublicKey
	Round1Length    int64
	MaxSaleLength   int64
}

// Read returns the current values. Must be called inside a transaction.
func (s *Settings) Read(_ *chain.Tx) Snapshot {
	return Snapshot{
		Owner:           s.owner.Address(),
		TokenFee:        s.tokenFee,
		ReferralFee:     s.referralFee,
		CreationFee:     s.creationFee.Clone(),
		SaleFeeReceiver: s.saleFeeReceiver,
		BaseFeeReceiver: s.baseFeeReceiver,
		Round1Length:    s.round1Length,
		MaxSaleLength:   s.maxSaleLength,
	}
}

// Current returns the current values outside a transaction.
func (s *Settings) Current() Snapshot {
	var out Snapshot
	_ = s.ledger.View(func(tx *chain.Tx) error {
		out = s.Read(tx)
		return nil
	})
	return out
}

// IsAdmin reports whether addr is the platform owner.
func (s *Settings) IsAdmin(addr solana.PublicKey) bool {
	return s.owner.Is(addr)
}

// ReferrerIsValid reports whether addr may earn referral bonuses.
// An empty allow-list makes referrals permissionless.
func (s *Settings) ReferrerIsValid(_ *chain.Tx, addr solana.PublicKey) bool {
	if addr.IsZero() {
		return false
	}
	if s.referrers.Len() == 0 {
		return true
	}
	return s.referrers.Contains(addr)
}

// EarlyAccessEnabled reports whether any early-access token is configured.
func (s *Settings) EarlyAccessEnabled(_ *chain.Tx) bool {
	return s.earlyAccess.Len() > 0
}

// UserHoldsEarlyAccess reports whether holder has at least the configured
// hold amount of any early-access token.
func (s *Settings) UserHoldsEarlyAccess(tx *chain.Tx, holder solana.PublicKey) bool {
	for _, token := range s.earlyAccess.Values() {
		hold := s.earlyAccessHold[token]
		if !tx.BalanceOf(token, holder).Lt(hold) {
			return true
		}
	}
	return false
}

// EarlyAccessToken is an early-access token and its minimum hold.
type EarlyAccessToken struct {
	Token      solana.PublicKey
	HoldAmount *uint256.Int
}

// EarlyAccessTokens enumerates the early-access list.
func (s *Settings) EarlyAccessTokens() []EarlyAccessToken {
	var out []EarlyAccessToken
	_ = s.ledger.View(func(_ *chain.Tx) error {
		for _, token := range s.earlyAccess.Values() {
			out = append(out, EarlyAccessToken{Token: token, HoldAmount: s.earlyAccessHold[token].Clone()})
		}
		return nil
	})
	return out
}

// AllowedReferrers enumerates the referrer allow-list.
func (s *Settings) AllowedReferrers() []solana.PublicKey {
	var out []solana.PublicKey
	_ = s.ledger.View(func(_ *chain.Tx) error {
		out = s.referrers.Values()
		return nil
	})
	return out
}

// SetFees updates the token fee (per mille), creation fee (native units)
// and referral fee (basis points).
func (s *Settings) SetFees(ctx context.Context, caller solana.PublicKey, tokenFee uint64, creationFee *uint256.Int, referralFee uint64) error {
	return s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := s.owner.Check(caller); err != nil {
			return err
		}
		if tokenFee > 1000 || referralFee > 10000 {
			return domain.ErrInvalidFee
		}
		prevToken, prevCreation, prevReferral := s.tokenFee, s.creationFee, s.referralFee
		s.tokenFee, s.creationFee, s.referralFee = tokenFee, creationFee.Clone(), referralFee
		tx.OnRevert(func() {
			s.tokenFee, s.creationFee, s.referralFee = prevToken, prevCreation, prevReferral
		})
		return nil
	})
}

// SetFeeAddresses updates where sale-asset and base-asset fees are paid.
func (s *Settings) SetFeeAddresses(ctx context.Context, caller, saleFeeReceiver, baseFeeReceiver solana.PublicKey) error {
	return s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := s.owner.Check(caller); err != nil {
			return err
		}
		if saleFeeReceiver.IsZero() || baseFeeReceiver.IsZero() {
			return domain.ErrZeroAddress
		}
		prevSale, prevBase := s.saleFeeReceiver, s.baseFeeReceiver
		s.saleFeeReceiver, s.baseFeeReceiver = saleFeeReceiver, baseFeeReceiver
		tx.OnRevert(func() { s.saleFeeReceiver, s.baseFeeReceiver = prevSale, prevBase })
		return nil
	})
}

// SetRound1Length updates the early-access window in seconds.
func (s *Settings) SetRound1Length(ctx context.Context, caller solana.PublicKey, seconds int64) error {
	return s.setInt(ctx, caller, &s.round1Length, seconds)
}

// SetMaxSaleLength updates the maximum sale duration in seconds.
func (s *Settings) SetMaxSaleLength(ctx context.Context, caller solana.PublicKey, seconds int64) error {
	return s.setInt(ctx, caller, &s.maxSaleLength, seconds)
}

func (s *Settings) setInt(ctx context.Context, caller solana.PublicKey, field *int64, v int64) error {
	return s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := s.owner.Check(caller); err != nil {
			return err
		}
		if v < 0 {
			return domain.ErrInvalidTimePeriod
		}
		prev := *field
		*field = v
		tx.OnRevert(func() { *field = prev })
		return nil
	})
}

// EditAllowedReferrers adds or removes a referrer from the allow-list.
func (s *Settings) EditAllowedReferrers(ctx context.Context, caller, referrer solana.PublicKey, add bool) error {
	return s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := s.owner.Check(caller); err != nil {
			return err
		}
		s.referrers.Edit(tx, referrer, add)
		return nil
	})
}

// EditEarlyAccessTokens adds a token with its hold amount, or removes it.
func (s *Settings) EditEarlyAccessTokens(ctx context.Context, caller, token solana.PublicKey, holdAmount *uint256.Int, add bool) error {
	return s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		if err := s.owner.Check(caller); err != nil {
			return err
		}
		prev, had := s.earlyAccessHold[token]
		tx.OnRevert(func() {
			if had {
				s.earlyAccessHold[token] = prev
			} else {
				delete(s.earlyAccessHold, token)
			}
		})
		if add {
			s.earlyAccess.Add(tx, token)
			s.earlyAccessHold[token] = holdAmount.Clone()
			return nil
		}
		s.earlyAccess.Remove(tx, token)
		delete(s.earlyAccessHold, token)
		return nil
	})
}

// TransferOwnership hands the admin role to next.
func (s *Settings) TransferOwnership(ctx context.Context, caller, next solana.PublicKey) error {
	return s.ledger.Execute(ctx, func(tx *chain.Tx) error {
		return s.owner.Transfer(tx, caller, next)
	})
}
