package db

import (
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manakshia-steel/manakshia/migrations"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/manakshia?sslmode=disable", MigrateURL("postgres://u:p@db:5432/manakshia?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/manakshia", MigrateURL("postgresql://u@db/manakshia"))
	assert.Equal(t, "pgx5://already", MigrateURL("pgx5://already"))
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	src, err := iofs.New(migrations.Files, ".")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, identifier, err := src.ReadUp(first)
	require.NoError(t, err)
	t.Cleanup(func() { _ = up.Close() })
	assert.Equal(t, "local_purchase_orders", identifier)

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	_ = down.Close()
}
