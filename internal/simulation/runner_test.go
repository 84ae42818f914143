package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/logger"
	"token-launchpad/internal/num"
	"token-launchpad/internal/platform"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	d, err := platform.New(context.Background(), platform.Options{Clock: clock, Logger: logger.Discard()})
	require.NoError(t, err)
	return NewRunner(d, clock, logger.Discard())
}

func units(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := num.Parse(s, 18)
	require.NoError(t, err)
	return v
}

func TestRunDefaultScenario(t *testing.T) {
	res, err := newRunner(t).Run(context.Background(), DefaultScenario())
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseSuccess, res.Phase)
	require.NotNil(t, res.Settlement)
	assert.True(t, res.Status.Finalized)

	require.Len(t, res.Buyers, 4)
	for _, b := range res.Buyers {
		assert.Equal(t, units(t, "2.5"), b.Deposited)
		assert.Equal(t, units(t, "2500"), b.Received)
	}
	require.Len(t, res.Referrals, 1)
	assert.Equal(t, res.Buyers[0].Address, res.Referrals[0].Address)
	assert.Equal(t, units(t, "75"), res.Referrals[0].Claimed)

	assert.Equal(t, units(t, "150"), res.SaleFeesPaid)
	assert.Equal(t, units(t, "0.15"), res.BaseFeesPaid)
	assert.Equal(t, units(t, "4.925"), res.OwnerBaseProceeds)
	assert.True(t, res.Burned.IsZero(), "hardcap sale burns nothing")

	require.NotNil(t, res.Lock)
	assert.Equal(t, res.Pair, res.Lock.Token)
	assert.Equal(t, res.Lock.Amount, res.Withdrawn)
	assert.Equal(t, res.Lock.LockTime+DefaultScenario().LockDuration, res.Lock.UnlockTime)
}

func TestRunFailedScenario(t *testing.T) {
	sc := DefaultScenario()
	sc.Fill = "4"
	sc.Buyers = 2

	res, err := newRunner(t).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseFailed, res.Phase)
	assert.Nil(t, res.Settlement)
	assert.Nil(t, res.Lock)
	for _, b := range res.Buyers {
		assert.Equal(t, units(t, "2"), b.Received, "refund equals deposit")
	}
	assert.Equal(t, units(t, "13943.75"), res.OwnerReclaimed)
	assert.True(t, res.Burned.IsZero())
}

func TestRunNativeSoftcapScenario(t *testing.T) {
	sc := DefaultScenario()
	sc.Native = true
	sc.Fill = "5"
	sc.Buyers = 2
	sc.Referrals = false

	res, err := newRunner(t).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseSuccess, res.Phase)
	assert.Empty(t, res.Referrals)
	assert.Equal(t, units(t, "0.075"), res.BaseFeesPaid)
	// 10000 offered, 5000 sold: the unsold share of the reserve is burned.
	assert.False(t, res.Burned.IsZero())
}

func TestRunRejectsInvalidScenario(t *testing.T) {
	sc := DefaultScenario()
	sc.HardCap = "ten"
	sc.Buyers = 0

	_, err := newRunner(t).Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hard cap")
	assert.Contains(t, err.Error(), "at least one buyer")
}

func TestRunKeepLock(t *testing.T) {
	r := newRunner(t)
	sc := DefaultScenario()
	sc.KeepLock = true

	res, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	require.NotNil(t, res.Lock)
	assert.True(t, res.Withdrawn.IsZero())

	entry, ok := r.d.Vault.Entry(res.Lock.ID)
	require.True(t, ok)
	assert.Equal(t, res.Lock.Amount, entry.Amount)
	assert.Equal(t, res.Lock.UnlockTime, entry.UnlockTime)
}
