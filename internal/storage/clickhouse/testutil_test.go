package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	tcch "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	chstore "token-launchpad/internal/storage/clickhouse"
	"token-launchpad/internal/storage/migrations"
)

const (
	testDatabase = "test"
	testUser     = "default"
	testPassword = "password"
)

// setupTestDB starts a ClickHouse container and applies the embedded migrations.
func setupTestDB(t *testing.T) *chstore.Conn {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcch.Run(ctx,
		"clickhouse/clickhouse-server:24.1-alpine",
		tcch.WithDatabase(testDatabase),
		tcch.WithUsername(testUser),
		tcch.WithPassword(testPassword),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(stopCtx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("9000/tcp"))
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s@%s:%s/%s", testUser, testPassword, host, port.Port(), testDatabase)
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}
