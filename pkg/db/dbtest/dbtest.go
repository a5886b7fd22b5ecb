// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/angelmondragon/pos-ledger/pkg/config"
	"github.com/angelmondragon/pos-ledger/pkg/db"
	"github.com/angelmondragon/pos-ledger/pkg/migrate"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// DSN returns a private shared-cache in-memory database name.
func DSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
}

// Open returns a client backed by a fresh database with the schema applied.
// The client is closed when the test ends.
func Open(t testing.TB) *db.Client {
	t.Helper()
	client := OpenEmpty(t)
	require.NoError(t, migrate.Initialize(context.Background(), client, nil))
	return client
}

// OpenEmpty returns a client without running migrations.
func OpenEmpty(t testing.TB) *db.Client {
	t.Helper()
	client, err := db.New(context.Background(), config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    DSN(),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
