package migrate

import (
	"context"
	"fmt"

	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	"github.com/phuoc-stack/foodapp-backend/pkg/db"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

// UpIfDev applies pending migrations on boot, but only in dev with
// FOODAPP_AUTO_MIGRATE set. Other environments run cmd/migrate explicitly.
func UpIfDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	m, err := New(sqlDB, client.Dialect())
	if err != nil {
		return err
	}
	applied, err := m.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"dialect": client.Dialect(),
		"applied": len(applied),
	}), "dev schema up to date")
	return nil
}
