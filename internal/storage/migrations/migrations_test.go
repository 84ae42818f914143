package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLFilesAreSorted(t *testing.T) {
	files, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres/001_events.sql", "postgres/002_sale_snapshots.sql"}, files)

	files, err = sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"clickhouse/001_events.sql"}, files)
}

func TestSplitStatements(t *testing.T) {
	in := `-- header
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := splitStatements(in)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	require.NoError(t, validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"))
	require.Error(t, validateNoSemicolonInStrings("SELECT 'a;b';"))
}

func TestEmbeddedClickhouseMigrationsSplitCleanly(t *testing.T) {
	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	for _, f := range files {
		data, err := ClickhouseFS.ReadFile(f)
		require.NoError(t, err)
		require.NoError(t, validateNoSemicolonInStrings(string(data)), f)
		assert.NotEmpty(t, splitStatements(string(data)), f)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/launchpad")
	require.NoError(t, err)
	assert.Equal(t, "launchpad", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	require.Error(t, err)
}
