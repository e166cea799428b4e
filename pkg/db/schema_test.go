// pkg/db/schema_test.go
package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaRendersPerDriver(t *testing.T) {
	pg, err := Schema(DriverPostgres)
	require.NoError(t, err)
	lite, err := Schema(DriverSQLite)
	require.NoError(t, err)
	require.Equal(t, len(pg), len(lite))

	for i := range pg {
		assert.NotContains(t, pg[i], "{{")
		assert.NotContains(t, lite[i], "{{")
	}
	joinedPG := strings.Join(pg, "\n")
	assert.Contains(t, joinedPG, "BIGSERIAL PRIMARY KEY")
	assert.Contains(t, joinedPG, "TIMESTAMPTZ")
	assert.Contains(t, joinedPG, "repayments_idempotency_key_unique")
	assert.Contains(t, strings.Join(lite, "\n"), "INTEGER PRIMARY KEY AUTOINCREMENT")

	_, err = Schema("mysql")
	assert.Error(t, err)
}

func TestMigrateIsRepeatable(t *testing.T) {
	ctx := context.Background()
	conn, err := NewSQLiteDB(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Migrate(ctx, conn))
	require.NoError(t, Migrate(ctx, conn))

	var tables []string
	require.NoError(t, conn.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.Equal(t, []string{"loans", "repayments", "transactions", "users", "wallets"}, tables)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	assert.Error(t, err)

	_, err = NewSQLiteDB("")
	assert.Error(t, err)
}
