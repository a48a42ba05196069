package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/chartwatch/ingestor/internal/models"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.Artist)(nil),
			(*models.Track)(nil),
			(*models.ChartEntry)(nil),
			(*models.IngestionRecord)(nil),
			(*models.ChartConfig)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.ChartConfig)(nil),
			(*models.IngestionRecord)(nil),
			(*models.ChartEntry)(nil),
			(*models.Track)(nil),
			(*models.Artist)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
