package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	// The natural key uses ifnull(region,'') because SQLite unique
	// indexes treat NULL regions as distinct rows.
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_natural_key ON chart_entries(chart_date, chart_type, chart_period, ifnull(region,''), track_id, platform)",
			"CREATE INDEX IF NOT EXISTS idx_entries_track_history ON chart_entries(track_id, chart_type, chart_period, platform, chart_date)",
			"CREATE INDEX IF NOT EXISTS idx_entries_snapshot ON chart_entries(chart_date, chart_type, chart_period)",
			"CREATE INDEX IF NOT EXISTS idx_artists_name ON artists(name COLLATE NOCASE)",
			"CREATE INDEX IF NOT EXISTS idx_tracks_name_artist ON tracks(name, artist_id)",
			"CREATE INDEX IF NOT EXISTS idx_ingestions_status ON ingestion_records(status)",
			"CREATE INDEX IF NOT EXISTS idx_chart_configs_next_run ON chart_configs(enabled, next_run)",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_entries_natural_key",
			"DROP INDEX IF EXISTS idx_entries_track_history",
			"DROP INDEX IF EXISTS idx_entries_snapshot",
			"DROP INDEX IF EXISTS idx_artists_name",
			"DROP INDEX IF EXISTS idx_tracks_name_artist",
			"DROP INDEX IF EXISTS idx_ingestions_status",
			"DROP INDEX IF EXISTS idx_chart_configs_next_run",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	})
}
