package settings

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/logger"
	"token-launchpad/internal/num"
)

func setup(t *testing.T) (*chain.Ledger, *Settings, solana.PublicKey) {
	t.Helper()
	l, err := chain.NewLedger(chain.Config{Logger: logger.Discard()})
	require.NoError(t, err)
	owner := solana.NewWallet().PublicKey()
	return l, New(l, owner), owner
}

func TestDefaults(t *testing.T) {
	_, s, owner := setup(t)
	cur := s.Current()

	assert.Equal(t, uint64(15), cur.TokenFee)
	assert.Equal(t, uint64(100), cur.ReferralFee)
	assert.Equal(t, int64(7200), cur.Round1Length)
	assert.Equal(t, int64(1209600), cur.MaxSaleLength)
	assert.Equal(t, "500000000000000000", cur.CreationFee.Dec())
	assert.Equal(t, owner, cur.SaleFeeReceiver)
	assert.Equal(t, owner, cur.BaseFeeReceiver)
	assert.True(t, s.IsAdmin(owner))
}

func TestSettersAreOwnerGated(t *testing.T) {
	ctx := context.Background()
	_, s, _ := setup(t)
	other := solana.NewWallet().PublicKey()

	errs := []error{
		s.SetFees(ctx, other, 10, num.New(1), 50),
		s.SetFeeAddresses(ctx, other, other, other),
		s.SetRound1Length(ctx, other, 1),
		s.SetMaxSaleLength(ctx, other, 1),
		s.EditAllowedReferrers(ctx, other, other, true),
		s.EditEarlyAccessTokens(ctx, other, other, num.New(1), true),
		s.TransferOwnership(ctx, other, other),
	}
	for i, err := range errs {
		require.ErrorIs(t, err, domain.ErrNotOwner, "setter %d", i)
		assert.Equal(t, "Ownable: caller is not the owner", err.(*domain.Error).Reason)
	}
}

func TestSetters(t *testing.T) {
	ctx := context.Background()
	_, s, owner := setup(t)
	sale, base := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	require.NoError(t, s.SetFees(ctx, owner, 20, num.New(7), 250))
	require.NoError(t, s.SetFeeAddresses(ctx, owner, sale, base))
	require.NoError(t, s.SetRound1Length(ctx, owner, 60))
	require.NoError(t, s.SetMaxSaleLength(ctx, owner, 600))

	cur := s.Current()
	assert.Equal(t, uint64(20), cur.TokenFee)
	assert.Equal(t, uint64(250), cur.ReferralFee)
	assert.Equal(t, uint64(7), cur.CreationFee.Uint64())
	assert.Equal(t, sale, cur.SaleFeeReceiver)
	assert.Equal(t, base, cur.BaseFeeReceiver)
	assert.Equal(t, int64(60), cur.Round1Length)
	assert.Equal(t, int64(600), cur.MaxSaleLength)

	require.ErrorIs(t, s.SetFees(ctx, owner, 1001, num.New(0), 0), domain.ErrInvalidFee)
	require.ErrorIs(t, s.SetFeeAddresses(ctx, owner, solana.PublicKey{}, base), domain.ErrZeroAddress)
	assert.Equal(t, uint64(20), s.Current().TokenFee)
}

func TestReferrers(t *testing.T) {
	ctx := context.Background()
	l, s, owner := setup(t)
	a, b := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	valid := func(addr solana.PublicKey) bool {
		var ok bool
		_ = l.View(func(tx *chain.Tx) error {
			ok = s.ReferrerIsValid(tx, addr)
			return nil
		})
		return ok
	}

	assert.True(t, valid(a), "empty allow-list is permissionless")
	assert.False(t, valid(solana.PublicKey{}))

	require.NoError(t, s.EditAllowedReferrers(ctx, owner, a, true))
	assert.True(t, valid(a))
	assert.False(t, valid(b))
	assert.Equal(t, []solana.PublicKey{a}, s.AllowedReferrers())

	require.NoError(t, s.EditAllowedReferrers(ctx, owner, a, false))
	assert.Empty(t, s.AllowedReferrers())
}

func TestEarlyAccessTokens(t *testing.T) {
	ctx := context.Background()
	l, s, owner := setup(t)
	holder := solana.NewWallet().PublicKey()
	token, err := l.CreateAsset(ctx, chain.AssetSpec{Symbol: "EA", Decimals: 0, Holder: holder, InitialSupply: num.New(5)})
	require.NoError(t, err)

	holds := func(addr solana.PublicKey) (enabled, ok bool) {
		_ = l.View(func(tx *chain.Tx) error {
			enabled = s.EarlyAccessEnabled(tx)
			ok = s.UserHoldsEarlyAccess(tx, addr)
			return nil
		})
		return
	}

	enabled, ok := holds(holder)
	assert.False(t, enabled)
	assert.False(t, ok)

	require.NoError(t, s.EditEarlyAccessTokens(ctx, owner, token, num.New(5), true))
	enabled, ok = holds(holder)
	assert.True(t, enabled)
	assert.True(t, ok)
	_, ok = holds(owner)
	assert.False(t, ok)

	require.NoError(t, s.EditEarlyAccessTokens(ctx, owner, token, num.New(6), true))
	_, ok = holds(holder)
	assert.False(t, ok, "hold amount raised above balance")
	require.Len(t, s.EarlyAccessTokens(), 1)
	assert.Equal(t, uint64(6), s.EarlyAccessTokens()[0].HoldAmount.Uint64())

	require.NoError(t, s.EditEarlyAccessTokens(ctx, owner, token, nil, false))
	assert.Empty(t, s.EarlyAccessTokens())
}
