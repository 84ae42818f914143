package locker

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/logger"
	"token-launchpad/internal/num"
)

type fixture struct {
	ctx     context.Context
	ledger  *chain.Ledger
	clock   *clockwork.FakeClock
	factory *amm.Factory
	vault   *Vault
	admin   solana.PublicKey
	user    solana.PublicKey
	lp      solana.PublicKey
	shares  *uint256.Int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	ledger, err := chain.NewLedger(chain.Config{Clock: clock, Logger: logger.Discard()})
	require.NoError(t, err)

	f := &fixture{
		ctx:     ctx,
		ledger:  ledger,
		clock:   clock,
		factory: amm.NewFactory(ledger),
		admin:   solana.NewWallet().PublicKey(),
		user:    solana.NewWallet().PublicKey(),
	}
	f.vault, err = New(Config{Ledger: ledger, Pairs: f.factory, Owner: f.admin, Logger: logger.Discard()})
	require.NoError(t, err)

	a := f.token(t, "A", f.user, 1_000)
	b := f.token(t, "B", f.user, 1_000)
	require.NoError(t, ledger.Execute(ctx, func(tx *chain.Tx) error {
		dep, err := f.factory.AddLiquidity(tx, f.user, a, b, num.Units(100, 18), num.Units(100, 18), f.user)
		f.lp, f.shares = dep.Pair, dep.Liquidity
		return err
	}))
	require.NoError(t, ledger.Approve(ctx, f.lp, f.user, f.vault.Address(), chain.MaxAllowance()))
	require.NoError(t, ledger.Airdrop(ctx, f.user, num.Units(10, 18)))
	return f
}

func (f *fixture) token(t *testing.T, symbol string, holder solana.PublicKey, supply uint64) solana.PublicKey {
	t.Helper()
	id, err := f.ledger.CreateAsset(f.ctx, chain.AssetSpec{
		Symbol:        symbol,
		Decimals:      18,
		Holder:        holder,
		InitialSupply: num.Units(supply, 18),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) lock(t *testing.T, amount *uint256.Int, unlock int64) uint64 {
	t.Helper()
	require.NoError(t, f.vault.WhitelistFeeAccount(f.ctx, f.admin, f.user, true))
	id, err := f.vault.Lock(f.ctx, LockRequest{Caller: f.user, Token: f.lp, Amount: amount, UnlockTime: unlock})
	require.NoError(t, err)
	return id
}

func (f *fixture) now() int64 { return f.ledger.Now() }

func TestLockValidation(t *testing.T) {
	f := newFixture(t)
	notPair := f.token(t, "X", f.user, 10)

	tests := []struct {
		name    string
		req     LockRequest
		wantErr error
	}{
		{"zero amount", LockRequest{Caller: f.user, Token: f.lp, Amount: num.Zero(), UnlockTime: f.now() + 10}, domain.ErrInsufficient},
		{"unlock in past", LockRequest{Caller: f.user, Token: f.lp, Amount: num.New(1), UnlockTime: f.now() - 1}, domain.ErrTimestampInvalid},
		{"unlock too far", LockRequest{Caller: f.user, Token: f.lp, Amount: num.New(1), UnlockTime: MaxUnlockTime}, domain.ErrTimestampInvalid},
		{"not a pair", LockRequest{Caller: f.user, Token: notPair, Amount: num.New(1), UnlockTime: f.now() + 10}, domain.ErrNotPair},
		{"no fee attached", LockRequest{Caller: f.user, Token: f.lp, Amount: num.New(1), UnlockTime: f.now() + 10}, domain.ErrFeeNotMet},
		{"no allowance", LockRequest{Caller: f.admin, Token: f.lp, Amount: num.New(1), UnlockTime: f.now() + 10}, domain.ErrTransferFromFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.vault.Lock(f.ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, f.vault.NumLocks())
	assert.Equal(t, f.shares, f.ledger.BalanceOf(f.lp, f.user))
}

func TestLockNativeFee(t *testing.T) {
	f := newFixture(t)
	dev := solana.NewWallet().PublicKey()
	require.NoError(t, f.vault.SetDev(f.ctx, f.admin, dev))

	id, err := f.vault.Lock(f.ctx, LockRequest{
		Caller:     f.user,
		Token:      f.lp,
		Amount:     num.Units(1, 18),
		UnlockTime: f.now() + 100,
		FeeMode:    domain.FeeNative,
		Value:      num.Units(5, 18),
	})
	require.NoError(t, err)
	assert.Equal(t, num.Units(1, 18), f.ledger.BalanceOf(chain.NativeAsset, dev))
	assert.Equal(t, num.Units(9, 18), f.ledger.BalanceOf(chain.NativeAsset, f.user), "only the fee is debited")

	e, ok := f.vault.Entry(id)
	require.True(t, ok)
	assert.Equal(t, num.Units(1, 18), e.Amount)
	assert.Equal(t, f.user, e.Owner)
	assert.Equal(t, f.now(), e.LockTime)
}

func TestLockNativeFeeWithReferral(t *testing.T) {
	f := newFixture(t)
	referral := solana.NewWallet().PublicKey()
	refToken := f.token(t, "REF", referral, 10)
	require.NoError(t, f.vault.SetReferralTokenAndHold(f.ctx, f.admin, refToken, num.Units(10, 18)))

	_, err := f.vault.Lock(f.ctx, LockRequest{
		Caller:     f.user,
		Token:      f.lp,
		Amount:     num.New(1000),
		UnlockTime: f.now() + 100,
		Referral:   referral,
		FeeMode:    domain.FeeNative,
		Value:      num.Units(1, 18),
	})
	require.NoError(t, err)

	// fee 1e18 discounted 10% = 0.9; referral takes 25% of it
	assert.Equal(t, num.New(225_000_000_000_000_000), f.ledger.BalanceOf(chain.NativeAsset, referral))
	assert.Equal(t, num.New(675_000_000_000_000_000), f.ledger.BalanceOf(chain.NativeAsset, f.admin))
	assert.Equal(t, num.New(9_100_000_000_000_000_000), f.ledger.BalanceOf(chain.NativeAsset, f.user))
}

func TestLockInKindFee(t *testing.T) {
	f := newFixture(t)
	id, err := f.vault.Lock(f.ctx, LockRequest{
		Caller:     f.user,
		Token:      f.lp,
		Amount:     num.New(10_000),
		UnlockTime: f.now() + 100,
		FeeMode:    domain.FeeInKind,
	})
	require.NoError(t, err)

	e, _ := f.vault.Entry(id)
	assert.Equal(t, num.New(9_900), e.Amount)
	assert.Equal(t, num.New(100), f.ledger.BalanceOf(f.lp, f.admin))
	assert.Equal(t, num.New(9_900), f.ledger.BalanceOf(f.lp, f.vault.Address()))
}

func TestLockSecondaryTokenFee(t *testing.T) {
	f := newFixture(t)
	req := LockRequest{
		Caller:     f.user,
		Token:      f.lp,
		Amount:     num.New(10_000),
		UnlockTime: f.now() + 100,
		FeeMode:    domain.FeeSecondaryToken,
	}
	_, err := f.vault.Lock(f.ctx, req)
	require.ErrorIs(t, err, domain.ErrFeeTokenNotSet)

	sec := f.token(t, "SEC", f.user, 1_000)
	require.NoError(t, f.vault.SetSecondaryFeeToken(f.ctx, f.admin, sec))
	require.NoError(t, f.ledger.Approve(f.ctx, sec, f.user, f.vault.Address(), chain.MaxAllowance()))

	_, err = f.vault.Lock(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, num.Units(100, 18), f.ledger.BalanceOf(sec, chain.BurnAddress))
	assert.Equal(t, num.Units(900, 18), f.ledger.BalanceOf(sec, f.user))
}

func TestWhitelistedLockIsFeeFree(t *testing.T) {
	f := newFixture(t)
	withdrawer := solana.NewWallet().PublicKey()
	require.NoError(t, f.vault.WhitelistFeeAccount(f.ctx, f.admin, f.user, true))
	assert.Equal(t, []solana.PublicKey{f.user}, f.vault.WhitelistedAccounts())

	id, err := f.vault.Lock(f.ctx, LockRequest{
		Caller:     f.user,
		Token:      f.lp,
		Amount:     f.shares,
		UnlockTime: f.now() + 100,
		Withdrawer: withdrawer,
	})
	require.NoError(t, err)

	e, _ := f.vault.Entry(id)
	assert.Equal(t, f.shares, e.Amount)
	assert.Equal(t, withdrawer, e.Owner)
	assert.Equal(t, num.Units(10, 18), f.ledger.BalanceOf(chain.NativeAsset, f.user))
	assert.Len(t, f.vault.LocksOf(withdrawer), 1)
	assert.Empty(t, f.vault.LocksOf(f.user))
	assert.Equal(t, []solana.PublicKey{f.lp}, f.vault.LockedTokens())
}

func TestIncreaseExtendTransfer(t *testing.T) {
	f := newFixture(t)
	unlock := f.now() + 100
	id := f.lock(t, num.New(1_000), unlock)
	stranger := solana.NewWallet().PublicKey()

	require.ErrorIs(t, f.vault.Increase(f.ctx, stranger, id, num.New(1)), domain.ErrNotLockOwner)
	require.ErrorIs(t, f.vault.Increase(f.ctx, f.user, id, num.Zero()), domain.ErrInsufficient)
	require.ErrorIs(t, f.vault.Increase(f.ctx, f.user, 99, num.New(1)), domain.ErrLockNotFound)
	require.NoError(t, f.vault.Increase(f.ctx, f.user, id, num.New(500)))

	require.ErrorIs(t, f.vault.Extend(f.ctx, f.user, id, unlock-1), domain.ErrShortenedLock)
	require.ErrorIs(t, f.vault.Extend(f.ctx, f.user, id, MaxUnlockTime), domain.ErrTimestampInvalid)
	require.NoError(t, f.vault.Extend(f.ctx, f.user, id, unlock+50))

	e, _ := f.vault.Entry(id)
	assert.Equal(t, num.New(1_500), e.Amount)
	assert.Equal(t, num.New(1_500), e.InitialAmount)
	assert.Equal(t, unlock+50, e.UnlockTime)

	require.ErrorIs(t, f.vault.TransferOwner(f.ctx, f.user, id, solana.PublicKey{}), domain.ErrZeroAddress)
	require.NoError(t, f.vault.TransferOwner(f.ctx, f.user, id, stranger))
	require.ErrorIs(t, f.vault.Extend(f.ctx, f.user, id, unlock+60), domain.ErrNotLockOwner)
	e, _ = f.vault.Entry(id)
	assert.Equal(t, stranger, e.Owner)
}

func TestSplitConservesAmount(t *testing.T) {
	f := newFixture(t)
	id := f.lock(t, num.New(1_000), f.now()+100)

	_, err := f.vault.Split(f.ctx, f.user, id, num.Zero())
	require.ErrorIs(t, err, domain.ErrInsufficient)
	_, err = f.vault.Split(f.ctx, f.user, id, num.New(1_000))
	require.ErrorIs(t, err, domain.ErrInsufficient)

	newID, err := f.vault.Split(f.ctx, f.user, id, num.New(300))
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)

	orig, _ := f.vault.Entry(id)
	part, _ := f.vault.Entry(newID)
	assert.Equal(t, num.New(700), orig.Amount)
	assert.Equal(t, num.New(300), part.Amount)
	assert.Equal(t, orig.UnlockTime, part.UnlockTime)
	assert.Equal(t, orig.Owner, part.Owner)
	assert.Equal(t, orig.Token, part.Token)

	locks := f.vault.LocksForToken(f.lp)
	require.Len(t, locks, 2)
	assert.Equal(t, id, locks[0].ID)
	assert.Equal(t, newID, locks[1].ID)
	assert.Equal(t, 2, f.vault.NumLocks())
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	before := f.ledger.BalanceOf(f.lp, f.user)
	unlock := f.now() + 100
	id := f.lock(t, num.New(1_000), unlock)

	require.ErrorIs(t, f.vault.Withdraw(f.ctx, f.user, id, num.New(1)), domain.ErrNotUnlocked)

	f.clock.Advance(100 * time.Second)
	require.ErrorIs(t, f.vault.Withdraw(f.ctx, f.user, id, num.New(1_001)), domain.ErrInsufficient)
	require.NoError(t, f.vault.Withdraw(f.ctx, f.user, id, num.New(400)))
	e, ok := f.vault.Entry(id)
	require.True(t, ok)
	assert.Equal(t, num.New(600), e.Amount)

	require.NoError(t, f.vault.Withdraw(f.ctx, f.user, id, num.New(600)))
	_, ok = f.vault.Entry(id)
	assert.False(t, ok, "empty entry is removed")
	assert.Equal(t, before, f.ledger.BalanceOf(f.lp, f.user))
	assert.Zero(t, f.vault.NumLocks())
}

type sinkMigrator struct {
	address solana.PublicKey
	got     []domain.LockEntry
	fail    error
}

func (m *sinkMigrator) Address() solana.PublicKey { return m.address }

func (m *sinkMigrator) Migrate(tx *chain.Tx, vault solana.PublicKey, entry domain.LockEntry) error {
	if err := tx.TransferFrom(entry.Token, m.address, vault, m.address, entry.Amount); err != nil {
		return err
	}
	if m.fail != nil {
		return m.fail
	}
	m.got = append(m.got, entry)
	tx.OnRevert(func() { m.got = m.got[:len(m.got)-1] })
	return nil
}

func TestMigrate(t *testing.T) {
	f := newFixture(t)
	id := f.lock(t, num.New(1_000), f.now()+100)

	require.ErrorIs(t, f.vault.Migrate(f.ctx, f.user, id), domain.ErrMigratorNotSet)

	m := &sinkMigrator{address: solana.NewWallet().PublicKey(), fail: domain.ErrTransferFailed}
	require.ErrorIs(t, f.vault.SetMigrator(f.ctx, f.user, m), domain.ErrNotOwner)
	require.NoError(t, f.vault.SetMigrator(f.ctx, f.admin, m))

	require.ErrorIs(t, f.vault.Migrate(f.ctx, f.user, id), domain.ErrTransferFailed)
	_, ok := f.vault.Entry(id)
	assert.True(t, ok, "failed migration keeps the entry")
	assert.Equal(t, num.New(1_000), f.ledger.BalanceOf(f.lp, f.vault.Address()))

	m.fail = nil
	require.NoError(t, f.vault.Migrate(f.ctx, f.user, id))
	_, ok = f.vault.Entry(id)
	assert.False(t, ok)
	require.Len(t, m.got, 1)
	assert.Equal(t, id, m.got[0].ID)
	assert.Equal(t, num.New(1_000), f.ledger.BalanceOf(f.lp, m.address))
}

// lazyMigrator accepts an entry but transfers only pull tokens of it.
type lazyMigrator struct {
	address solana.PublicKey
	pull    *uint256.Int
}

func (m *lazyMigrator) Address() solana.PublicKey { return m.address }

func (m *lazyMigrator) Migrate(tx *chain.Tx, vault solana.PublicKey, entry domain.LockEntry) error {
	if m.pull.IsZero() {
		return nil
	}
	return tx.TransferFrom(entry.Token, m.address, vault, m.address, m.pull)
}

func TestMigrateRequiresTokensPulled(t *testing.T) {
	tests := []struct {
		name string
		pull uint64
	}{
		{"nothing pulled", 0},
		{"partial pull", 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.lock(t, num.New(1_000), f.now()+100)
			m := &lazyMigrator{address: solana.NewWallet().PublicKey(), pull: num.New(tt.pull)}
			require.NoError(t, f.vault.SetMigrator(f.ctx, f.admin, m))

			require.ErrorIs(t, f.vault.Migrate(f.ctx, f.user, id), domain.ErrMigrationFailed)
			e, ok := f.vault.Entry(id)
			require.True(t, ok, "entry survives a short migration")
			assert.Equal(t, num.New(1_000), e.Amount)
			assert.Equal(t, num.New(1_000), f.ledger.BalanceOf(f.lp, f.vault.Address()))
			assert.True(t, f.ledger.BalanceOf(f.lp, m.address).IsZero())
			assert.Equal(t, 1, f.vault.NumLocks())
		})
	}
}

func TestAdminSettersAreOwnerOnly(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, DefaultFees(), f.vault.Fees())
	assert.Equal(t, f.admin, f.vault.Dev())

	require.ErrorIs(t, f.vault.SetFees(f.ctx, f.user, DefaultFees()), domain.ErrNotOwner)
	require.ErrorIs(t, f.vault.SetDev(f.ctx, f.user, f.user), domain.ErrNotOwner)
	require.ErrorIs(t, f.vault.WhitelistFeeAccount(f.ctx, f.user, f.user, true), domain.ErrNotOwner)
	require.ErrorIs(t, f.vault.SetSecondaryFeeToken(f.ctx, f.user, f.lp), domain.ErrNotOwner)

	fees := DefaultFees()
	fees.NativeFee = num.Units(2, 18)
	fees.LiquidityFee = 20
	require.NoError(t, f.vault.SetFees(f.ctx, f.admin, fees))
	assert.Equal(t, num.Units(2, 18), f.vault.Fees().NativeFee)

	fees.ReferralPercent = 1001
	require.ErrorIs(t, f.vault.SetFees(f.ctx, f.admin, fees), domain.ErrInvalidFee)
	assert.Equal(t, uint64(250), f.vault.Fees().ReferralPercent)

	next := solana.NewWallet().PublicKey()
	require.NoError(t, f.vault.TransferOwnership(f.ctx, f.admin, next))
	assert.Equal(t, next, f.vault.Owner())
	require.ErrorIs(t, f.vault.SetDev(f.ctx, f.admin, f.admin), domain.ErrNotOwner)
}
