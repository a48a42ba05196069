package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/chartwatch/ingestor/internal/models"
)

// regionFilter applies the null-vs-value region semantics: the global
// chart is stored as NULL, never as a "global" string.
func regionFilter(q *bun.SelectQuery, region *string) *bun.SelectQuery {
	if region == nil {
		return q.Where("ce.region IS NULL")
	}
	return q.Where("ce.region = ?", *region)
}

// FindEntryByNaturalKey does the point lookup behind every upsert.
// Returns (nil, nil) when absent.
func FindEntryByNaturalKey(ctx context.Context, db bun.IDB, date models.ChartDate, chartType models.ChartType, period models.ChartPeriod, region *string, trackID int64, platform models.Platform) (*models.ChartEntry, error) {
	entry := new(models.ChartEntry)
	q := db.NewSelect().
		Model(entry).
		Where("ce.chart_date = ?", date).
		Where("ce.chart_type = ?", chartType).
		Where("ce.chart_period = ?", period).
		Where("ce.track_id = ?", trackID).
		Where("ce.platform = ?", platform)
	err := regionFilter(q, region).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// LatestEntryBefore returns the most recent stored entry strictly before
// the given date for the same chart variant and track; (nil, nil) when the
// track has no prior history there.
func LatestEntryBefore(ctx context.Context, db bun.IDB, date models.ChartDate, chartType models.ChartType, period models.ChartPeriod, region *string, trackID int64, platform models.Platform) (*models.ChartEntry, error) {
	entry := new(models.ChartEntry)
	q := db.NewSelect().
		Model(entry).
		Where("ce.chart_date < ?", date).
		Where("ce.chart_type = ?", chartType).
		Where("ce.chart_period = ?", period).
		Where("ce.track_id = ?", trackID).
		Where("ce.platform = ?", platform)
	err := regionFilter(q, region).
		Order("chart_date DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CountEntriesForSnapshot counts stored entries under a snapshot key.
func CountEntriesForSnapshot(ctx context.Context, db bun.IDB, date models.ChartDate, chartType models.ChartType, period models.ChartPeriod, region *string, platform models.Platform) (int, error) {
	q := db.NewSelect().
		Model((*models.ChartEntry)(nil)).
		Where("ce.chart_date = ?", date).
		Where("ce.chart_type = ?", chartType).
		Where("ce.chart_period = ?", period).
		Where("ce.platform = ?", platform)
	return regionFilter(q, region).Count(ctx)
}

// SampleEntriesForSnapshot returns the first entries under a key by
// position, for the show-warning dedup response.
func SampleEntriesForSnapshot(ctx context.Context, db bun.IDB, date models.ChartDate, chartType models.ChartType, period models.ChartPeriod, region *string, platform models.Platform, limit int) ([]*models.ChartEntry, error) {
	var entries []*models.ChartEntry
	q := db.NewSelect().
		Model(&entries).
		Where("ce.chart_date = ?", date).
		Where("ce.chart_type = ?", chartType).
		Where("ce.chart_period = ?", period).
		Where("ce.platform = ?", platform)
	err := regionFilter(q, region).
		Order("position ASC").
		Limit(limit).
		Scan(ctx)
	return entries, err
}

// InsertEntry validates and stores a new entry.
func InsertEntry(ctx context.Context, db bun.IDB, entry *models.ChartEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := db.NewInsert().Model(entry).Exec(ctx)
	return err
}

// UpdateEntry persists changes to an existing entry.
func UpdateEntry(ctx context.Context, db bun.IDB, entry *models.ChartEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := db.NewUpdate().Model(entry).WherePK().Exec(ctx)
	return err
}

// DeleteStaleEntries removes entries under a snapshot key whose track is
// not in keepTrackIDs. Used by the replace action after all rows landed.
func DeleteStaleEntries(ctx context.Context, db bun.IDB, date models.ChartDate, chartType models.ChartType, period models.ChartPeriod, region *string, platform models.Platform, keepTrackIDs []int64) (int, error) {
	q := db.NewDelete().
		Model((*models.ChartEntry)(nil)).
		Where("chart_date = ?", date).
		Where("chart_type = ?", chartType).
		Where("chart_period = ?", period).
		Where("platform = ?", platform)
	if region == nil {
		q = q.Where("region IS NULL")
	} else {
		q = q.Where("region = ?", *region)
	}
	if len(keepTrackIDs) > 0 {
		q = q.Where("track_id NOT IN (?)", bun.In(keepTrackIDs))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PositionHistory loads the chronological positions list the scoring
// engine consumes, oldest first.
func PositionHistory(ctx context.Context, db bun.IDB, trackID int64, chartType models.ChartType, period models.ChartPeriod, region *string, platform models.Platform) ([]int, error) {
	var positions []int
	q := db.NewSelect().
		Model((*models.ChartEntry)(nil)).
		Column("position").
		Where("ce.track_id = ?", trackID).
		Where("ce.chart_type = ?", chartType).
		Where("ce.chart_period = ?", period).
		Where("ce.platform = ?", platform)
	err := regionFilter(q, region).
		Order("chart_date ASC").
		Scan(ctx, &positions)
	return positions, err
}
