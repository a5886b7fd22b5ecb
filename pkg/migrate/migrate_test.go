package migrate_test

import (
	"context"
	"testing"

	"github.com/angelmondragon/pos-ledger/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/pos-ledger/pkg/errors"
	"github.com/angelmondragon/pos-ledger/pkg/migrate"
	"github.com/stretchr/testify/require"
)

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client := dbtest.OpenEmpty(t)

	require.NoError(t, migrate.Initialize(ctx, client, nil))
	first, err := migrate.Version(ctx, client)
	require.NoError(t, err)
	require.Equal(t, int64(20260301090200), first)

	require.NoError(t, migrate.Initialize(ctx, client, nil))
	second, err := migrate.Version(ctx, client)
	require.NoError(t, err)
	require.Equal(t, first, second)

	for _, table := range []string{"products", "sales", "sale_items"} {
		require.True(t, client.DB().Migrator().HasTable(table), table)
	}
}

func TestInitializeEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)

	err := client.DB().WithContext(ctx).Exec(
		"INSERT INTO sale_items (sale_id, product_id, quantity, price) VALUES (999, 999, 1, 1.00)",
	).Error
	require.Error(t, err)
}

func TestInitializeRejectsMissingClient(t *testing.T) {
	err := migrate.Initialize(context.Background(), nil, nil)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStorageInit))
}

func TestInitializeFailsOnClosedDatabase(t *testing.T) {
	client := dbtest.OpenEmpty(t)
	require.NoError(t, client.Close())

	err := migrate.Initialize(context.Background(), client, nil)
	require.Error(t, err)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStorageInit))
}

func TestMigrateToVersionStepsDown(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	sqlDB, err := client.SQL()
	require.NoError(t, err)

	require.NoError(t, migrate.MigrateToVersion(ctx, sqlDB, client.Dialect(), "20260301090100"))
	require.False(t, client.DB().Migrator().HasTable("sale_items"))
	require.True(t, client.DB().Migrator().HasTable("sales"))

	require.NoError(t, migrate.MigrateToVersion(ctx, sqlDB, client.Dialect(), "20260301090200"))
	require.True(t, client.DB().Migrator().HasTable("sale_items"))
}
