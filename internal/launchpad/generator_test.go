package launchpad_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/launchpad"
	"token-launchpad/internal/num"
	"token-launchpad/internal/settings"
)

func TestGeneratorCreateValidation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name    string
		mod     func(r *launchpad.CreateRequest)
		wantErr error
	}{
		{"no creation fee", func(r *launchpad.CreateRequest) { r.Value = num.Zero() }, domain.ErrFeeNotMet},
		{"self referral", func(r *launchpad.CreateRequest) { r.Referrer = r.Caller }, domain.ErrInvalidReferral},
		{"below min divisibility", func(r *launchpad.CreateRequest) { r.TotalOffered = num.New(9999) }, domain.ErrMinDivisibility},
		{"zero token price", func(r *launchpad.CreateRequest) { r.HardCap = num.New(1) }, domain.ErrInvalidTokenPrice},
		{"zero softcap", func(r *launchpad.CreateRequest) { r.SoftCap = num.Zero() }, domain.ErrInvalidCaps},
		{"softcap above hardcap", func(r *launchpad.CreateRequest) { r.SoftCap = e.base(t, "11") }, domain.ErrInvalidCaps},
		{"zero max spend", func(r *launchpad.CreateRequest) { r.MaxSpendPerBuyer = num.Zero() }, domain.ErrInvalidCaps},
		{"end before start", func(r *launchpad.CreateRequest) { r.EndTime = r.StartTime }, domain.ErrInvalidTimePeriod},
		{"sale too long", func(r *launchpad.CreateRequest) {
			r.EndTime = r.StartTime + settings.DefaultMaxSaleLength + 1
		}, domain.ErrInvalidTimePeriod},
		{"lock past timestamp bound", func(r *launchpad.CreateRequest) {
			r.LockDuration = launchpad.MaxTimestamp - r.EndTime
		}, domain.ErrInvalidTimePeriod},
		{"liquidity too low", func(r *launchpad.CreateRequest) { r.LiquidityPermille = 249 }, domain.ErrInvalidLiquidity},
		{"liquidity too high", func(r *launchpad.CreateRequest) { r.LiquidityPermille = 1001 }, domain.ErrInvalidLiquidity},
		{"listing discount 100", func(r *launchpad.CreateRequest) { r.ListingDiscount = 100 }, domain.ErrInvalidListingRate},
		{"unknown base", func(r *launchpad.CreateRequest) { r.BaseAsset = solana.NewWallet().PublicKey() }, domain.ErrUnknownAsset},
		{"native sale asset", func(r *launchpad.CreateRequest) { r.SaleAsset = chain.NativeAsset }, domain.ErrIdenticalAssets},
		{"base equals sale", func(r *launchpad.CreateRequest) { r.BaseAsset = r.SaleAsset }, domain.ErrIdenticalAssets},
		{"reserve exceeds balance", func(r *launchpad.CreateRequest) {
			r.TotalOffered = e.sale(t, "900000")
		}, domain.ErrTransferFromFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := e.request(t)
			tt.mod(&req)
			_, err := e.gen.Create(e.ctx, req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, e.gen.Sales())
	assert.Zero(t, e.registry.SalesLength())
	assert.Equal(t, num.Units(10, 18), e.ledger.BalanceOf(chain.NativeAsset, e.owner), "failed creations charge nothing")
	assert.Equal(t, e.sale(t, "1000000"), e.ledger.BalanceOf(e.saleToken, e.owner))
}

func TestGeneratorRequiresRegistryAuthorization(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.registry.AllowCreator(e.ctx, e.platform, e.gen.Address(), false))

	_, err := e.gen.Create(e.ctx, e.request(t))
	require.ErrorIs(t, err, domain.ErrNotCreator)
	assert.Empty(t, e.gen.Sales())
}

func TestGeneratorCreate(t *testing.T) {
	e := newEnv(t)
	referrer := solana.NewWallet().PublicKey()

	req := e.request(t)
	req.Referrer = referrer
	req.Value = num.Units(2, 18) // overpaying moves only the fee
	s, err := e.gen.Create(e.ctx, req)
	require.NoError(t, err)

	required, err := e.gen.AmountRequired(req.TotalOffered, req.ListingDiscount, req.LiquidityPermille)
	require.NoError(t, err)
	assert.Equal(t, e.sale(t, "13843.75"), required)

	info := s.Info()
	assert.Equal(t, required, info.Reserve)
	assert.Equal(t, e.sale(t, "100"), info.ReferralBudget)
	assert.Equal(t, settings.DefaultCreationFee(), info.CreationFee)
	assert.Equal(t, launchpad.Fees{TokenFee: settings.DefaultTokenFee, ReferralFee: settings.DefaultReferralFee}, info.Fees)
	assert.Equal(t, referrer, info.Config.Referrer)
	assert.False(t, info.IsNative)

	assert.Equal(t, e.base(t, "9.5"), e.ledger.BalanceOf(chain.NativeAsset, e.owner))
	assert.Equal(t, settings.DefaultCreationFee(), e.ledger.BalanceOf(chain.NativeAsset, s.Address()))

	got, ok := e.gen.Sale(s.Address())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, e.registry.SalesLength())
	addr, ok := e.registry.SaleAtIndex(0)
	require.True(t, ok)
	assert.Equal(t, s.Address(), addr)

	second := e.create(t, nil)
	assert.NotEqual(t, s.Address(), second.Address())
	assert.Len(t, e.gen.Sales(), 2)
}

func TestFeesAreFrozenAtCreation(t *testing.T) {
	e := newEnv(t)
	s := e.create(t, nil)

	require.NoError(t, e.settings.SetFees(e.ctx, e.platform, 50, num.Zero(), 500))
	assert.Equal(t, launchpad.Fees{TokenFee: settings.DefaultTokenFee, ReferralFee: settings.DefaultReferralFee}, s.Fees())

	e.start(s)
	buyer := e.buyer(t, s, "10")
	_, err := e.deposit(s, buyer, e.base(t, "10"), solana.PublicKey{})
	require.NoError(t, err)
	st, err := s.Finalize(e.ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, e.sale(t, "150"), st.SaleFee)

	later := e.create(t, nil)
	assert.Equal(t, launchpad.Fees{TokenFee: 50, ReferralFee: 500}, later.Fees())
}
