package repositories

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/chartwatch/ingestor/internal/models"
)

// InsertIngestionRecord opens the audit trail for one snapshot. A failure
// here is a hard failure for the surrounding run.
func InsertIngestionRecord(ctx context.Context, db bun.IDB, record *models.IngestionRecord) error {
	_, err := db.NewInsert().Model(record).Exec(ctx)
	return err
}

// UpdateIngestionRecord finalizes counts and status as processing completes.
func UpdateIngestionRecord(ctx context.Context, db bun.IDB, record *models.IngestionRecord) error {
	_, err := db.NewUpdate().Model(record).WherePK().Exec(ctx)
	return err
}

// RecentIngestionRecords lists the latest runs, newest first.
func RecentIngestionRecords(ctx context.Context, db bun.IDB, limit int) ([]*models.IngestionRecord, error) {
	var records []*models.IngestionRecord
	err := db.NewSelect().
		Model(&records).
		Order("started_at DESC").
		Limit(limit).
		Scan(ctx)
	return records, err
}
