package launchpad_test

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/forwarder"
	"token-launchpad/internal/launchpad"
	"token-launchpad/internal/locker"
	"token-launchpad/internal/logger"
	"token-launchpad/internal/num"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/settings"
)

const t0 = 1_700_000_000

// env is a complete launchpad deployment on a fresh ledger.
type env struct {
	ctx      context.Context
	ledger   *chain.Ledger
	clock    *clockwork.FakeClock
	metrics  *observability.Metrics
	settings *settings.Settings
	registry *registry.Registry
	factory  *amm.Factory
	vault    *locker.Vault
	fwd      *forwarder.Forwarder
	gen      *launchpad.Generator

	platform   solana.PublicKey
	owner      solana.PublicKey
	saleFeeTo  solana.PublicKey
	baseFeeTo  solana.PublicKey
	saleToken  solana.PublicKey
	baseToken  solana.PublicKey // chain.NativeAsset for native sales
	baseDec    uint8
	saleDec    uint8
	baseSource solana.PublicKey // holds the base supply for token-base sales
}

type envOption func(*envOptions)

type envOptions struct {
	native  bool
	baseDec uint8
	saleDec uint8
	policy  launchpad.AccessPolicy
}

func withNativeBase() envOption { return func(o *envOptions) { o.native = true } }

func withDecimals(sale, base uint8) envOption {
	return func(o *envOptions) { o.saleDec, o.baseDec = sale, base }
}

func withPolicy(p launchpad.AccessPolicy) envOption {
	return func(o *envOptions) { o.policy = p }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	o := envOptions{baseDec: 18, saleDec: 18}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Unix(t0, 0))
	metrics := observability.NewIsolatedMetrics("")
	log := logger.Discard()

	ledger, err := chain.NewLedger(chain.Config{Clock: clock, Logger: log, Metrics: metrics})
	require.NoError(t, err)

	e := &env{
		ctx:       ctx,
		ledger:    ledger,
		clock:     clock,
		metrics:   metrics,
		platform:  solana.NewWallet().PublicKey(),
		owner:     solana.NewWallet().PublicKey(),
		saleFeeTo: solana.NewWallet().PublicKey(),
		baseFeeTo: solana.NewWallet().PublicKey(),
		baseDec:   o.baseDec,
		saleDec:   o.saleDec,
	}

	e.settings = settings.New(ledger, e.platform)
	require.NoError(t, e.settings.SetFeeAddresses(ctx, e.platform, e.saleFeeTo, e.baseFeeTo))
	e.registry = registry.New(ledger, e.platform)
	e.factory = amm.NewFactory(ledger)

	e.vault, err = locker.New(locker.Config{Ledger: ledger, Pairs: e.factory, Owner: e.platform, Metrics: metrics, Logger: log})
	require.NoError(t, err)
	e.fwd, err = forwarder.New(forwarder.Config{Ledger: ledger, Factory: e.factory, Vault: e.vault, Registry: e.registry, Logger: log})
	require.NoError(t, err)
	require.NoError(t, e.vault.WhitelistFeeAccount(ctx, e.platform, e.fwd.Address(), true))

	e.gen, err = launchpad.NewGenerator(launchpad.GeneratorConfig{
		Ledger:    ledger,
		Settings:  e.settings,
		Registry:  e.registry,
		Forwarder: e.fwd,
		Policy:    o.policy,
		Metrics:   metrics,
		Logger:    log,
	})
	require.NoError(t, err)
	require.NoError(t, e.registry.AllowCreator(ctx, e.platform, e.gen.Address(), true))

	require.NoError(t, ledger.Airdrop(ctx, e.owner, num.Units(10, 18)))
	e.saleToken, err = ledger.CreateAsset(ctx, chain.AssetSpec{
		Symbol:        "SALE",
		Decimals:      o.saleDec,
		Holder:        e.owner,
		InitialSupply: num.Units(1_000_000, o.saleDec),
	})
	require.NoError(t, err)
	require.NoError(t, ledger.Approve(ctx, e.saleToken, e.owner, e.gen.Address(), chain.MaxAllowance()))

	if o.native {
		e.baseToken = chain.NativeAsset
	} else {
		e.baseSource = solana.NewWallet().PublicKey()
		e.baseToken, err = ledger.CreateAsset(ctx, chain.AssetSpec{
			Symbol:        "BASE",
			Decimals:      o.baseDec,
			Holder:        e.baseSource,
			InitialSupply: num.Units(1_000_000, o.baseDec),
		})
		require.NoError(t, err)
	}
	return e
}

// base converts a decimal string into base-asset units.
func (e *env) base(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := num.Parse(s, e.baseDec)
	require.NoError(t, err)
	return v
}

// sale converts a decimal string into sale-asset units.
func (e *env) sale(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := num.Parse(s, e.saleDec)
	require.NoError(t, err)
	return v
}

func (e *env) request(t *testing.T) launchpad.CreateRequest {
	t.Helper()
	start := e.ledger.Now() + 100
	return launchpad.CreateRequest{
		Caller:            e.owner,
		Value:             settings.DefaultCreationFee(),
		SaleAsset:         e.saleToken,
		BaseAsset:         e.baseToken,
		TotalOffered:      e.sale(t, "10000"),
		HardCap:           e.base(t, "10"),
		SoftCap:           e.base(t, "5"),
		MaxSpendPerBuyer:  e.base(t, "10"),
		LiquidityPermille: 500,
		ListingDiscount:   25,
		LockDuration:      30 * 24 * 3600,
		StartTime:         start,
		EndTime:           start + 86400,
	}
}

func (e *env) create(t *testing.T, mod func(r *launchpad.CreateRequest)) *launchpad.Sale {
	t.Helper()
	req := e.request(t)
	if mod != nil {
		mod(&req)
	}
	s, err := e.gen.Create(e.ctx, req)
	require.NoError(t, err)
	return s
}

// start moves the clock past the sale start and the round-1 window.
func (e *env) start(s *launchpad.Sale) {
	e.advanceTo(s.Config().StartTime + settings.DefaultRound1Length)
}

func (e *env) advanceTo(ts int64) {
	if d := ts - e.ledger.Now(); d > 0 {
		e.clock.Advance(time.Duration(d) * time.Second)
	}
}

// buyer returns a funded wallet that has approved the sale.
func (e *env) buyer(t *testing.T, s *launchpad.Sale, funds string) solana.PublicKey {
	t.Helper()
	b := solana.NewWallet().PublicKey()
	amount := e.base(t, funds)
	if e.baseToken.Equals(chain.NativeAsset) {
		require.NoError(t, e.ledger.Airdrop(e.ctx, b, amount))
		return b
	}
	require.NoError(t, e.ledger.Transfer(e.ctx, e.baseToken, e.baseSource, b, amount))
	require.NoError(t, e.ledger.Approve(e.ctx, e.baseToken, b, s.Address(), chain.MaxAllowance()))
	return b
}

func (e *env) deposit(s *launchpad.Sale, buyer solana.PublicKey, amount *uint256.Int, referrer solana.PublicKey) (launchpad.DepositResult, error) {
	req := launchpad.DepositRequest{Buyer: buyer, Amount: amount, Referrer: referrer}
	if s.IsNative() {
		req.Value = amount
	}
	return s.Deposit(e.ctx, req)
}
