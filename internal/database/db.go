package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"svarak-backend/internal/config"
	"svarak-backend/internal/models"
)

// Open connects to the shared Postgres store, runs migrations and installs
// the change-notification trigger. The handle is returned to the caller and
// injected where needed; there is no package-level singleton.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Order{},
		&models.Setting{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	if err := installOrdersTrigger(db); err != nil {
		return nil, fmt.Errorf("install orders trigger: %w", err)
	}

	log.Info("database ready")
	return db, nil
}

// installOrdersTrigger makes every insert/update/delete on orders raise a
// pg_notify on the realtime channel, so all terminals see each other's
// changes without polling.
func installOrdersTrigger(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE OR REPLACE FUNCTION notify_orders_changed() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('orders_changed', '');
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`DROP TRIGGER IF EXISTS orders_changed_trigger ON orders`).Error; err != nil {
		return err
	}

	return db.Exec(`
		CREATE TRIGGER orders_changed_trigger
		AFTER INSERT OR UPDATE OR DELETE ON orders
		FOR EACH STATEMENT EXECUTE FUNCTION notify_orders_changed()
	`).Error
}
