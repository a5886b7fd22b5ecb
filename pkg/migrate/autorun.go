package migrate

import (
	"context"

	"github.com/angelmondragon/pos-ledger/pkg/config"
	"github.com/angelmondragon/pos-ledger/pkg/db"
	"github.com/angelmondragon/pos-ledger/pkg/logger"
)

// MaybeRun initializes the schema on boot when the auto-migrate flag is on.
// Production deployments usually disable it and run cmd/migrate instead.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		logg.Info(ctx, "auto-migrate disabled, skipping schema initialization")
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "db_driver": cfg.DB.Driver})
	logg.Info(ctx, "initializing schema")
	return Initialize(ctx, client, logg)
}
