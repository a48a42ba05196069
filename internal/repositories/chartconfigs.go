package repositories

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/chartwatch/ingestor/internal/models"
)

// DueChartConfigs returns enabled job definitions whose next run is due.
func DueChartConfigs(ctx context.Context, db bun.IDB, now time.Time) ([]*models.ChartConfig, error) {
	var configs []*models.ChartConfig
	err := db.NewSelect().
		Model(&configs).
		Where("enabled = ?", true).
		Where("next_run IS NULL OR next_run <= ?", now).
		Order("id ASC").
		Scan(ctx)
	return configs, err
}

// SaveChartConfig inserts or updates a job definition.
func SaveChartConfig(ctx context.Context, db bun.IDB, cfg *models.ChartConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ID == 0 {
		_, err := db.NewInsert().Model(cfg).Exec(ctx)
		return err
	}
	_, err := db.NewUpdate().Model(cfg).WherePK().Exec(ctx)
	return err
}
