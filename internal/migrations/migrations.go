package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry the timestamped files in this package
// register themselves into. bun derives each migration's name from its
// registering file, so every migration lives in its own
// <timestamp>_<label>.go file.
var Migrations = migrate.NewMigrations()

// RunMigrations runs all pending migrations.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		return nil
	}

	fmt.Printf("Migrated to %s\n", group)
	return nil
}
