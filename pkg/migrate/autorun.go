package migrate

import (
	"context"
	"time"

	"github.com/pointbank/pointbank-backend/pkg/config"
	"github.com/pointbank/pointbank-backend/pkg/db"
	"github.com/pointbank/pointbank-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on startup in dev environments when
// the POINTBANK_DB_AUTO_MIGRATE feature flag is on. Production deploys run
// cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, client *db.Client, log *logger.Logger) error {
	if cfg == nil || client == nil || log == nil {
		return nil
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	log.Info(ctx, "running startup migrations")

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}

	if err := Run(runCtx, sqlDB, DefaultDir, "up"); err != nil {
		return err
	}

	log.Info(ctx, "startup migrations complete")
	return nil
}
