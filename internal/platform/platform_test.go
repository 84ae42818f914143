package platform

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/logger"
)

func TestNewWiresAdminSetup(t *testing.T) {
	saleFee := solana.NewWallet().PublicKey()
	d, err := New(context.Background(), Options{
		Clock:     clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0)),
		Logger:    logger.Discard(),
		SaleFeeTo: saleFee,
	})
	require.NoError(t, err)

	assert.False(t, d.Admin.IsZero())
	assert.Equal(t, d.Admin, d.Vault.Owner())
	creator, ok := d.Registry.CreatorAtIndex(0)
	require.True(t, ok)
	assert.Equal(t, d.Generator.Address(), creator)
	assert.True(t, d.Vault.IsWhitelisted(d.Forwarder.Address()))

	cur := d.Settings.Current()
	assert.Equal(t, saleFee, cur.SaleFeeReceiver)
	assert.Equal(t, d.Admin, cur.BaseFeeReceiver, "base fee receiver defaults to admin")
}
