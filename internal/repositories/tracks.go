package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/chartwatch/ingestor/internal/models"
)

// FindTrackByExternalID looks up a track by catalog identity.
// Returns (nil, nil) when absent.
func FindTrackByExternalID(ctx context.Context, db bun.IDB, externalID string) (*models.Track, error) {
	track := new(models.Track)
	err := db.NewSelect().
		Model(track).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// FindTrackByNameAndArtist is the fallback identity for tracks without a
// catalog id. Returns (nil, nil) when absent.
func FindTrackByNameAndArtist(ctx context.Context, db bun.IDB, name string, artistID int64) (*models.Track, error) {
	track := new(models.Track)
	err := db.NewSelect().
		Model(track).
		Where("lower(name) = lower(?)", name).
		Where("artist_id = ?", artistID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// InsertTrack validates and stores a new track.
func InsertTrack(ctx context.Context, db bun.IDB, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return err
	}
	_, err := db.NewInsert().Model(track).Exec(ctx)
	return err
}

// UpdateTrack persists changes to an existing track.
func UpdateTrack(ctx context.Context, db bun.IDB, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return err
	}
	_, err := db.NewUpdate().Model(track).WherePK().Exec(ctx)
	return err
}

// TracksForArtist returns all tracks owned by an artist.
func TracksForArtist(ctx context.Context, db bun.IDB, artistID int64) ([]*models.Track, error) {
	var tracks []*models.Track
	err := db.NewSelect().
		Model(&tracks).
		Where("artist_id = ?", artistID).
		Order("name ASC").
		Scan(ctx)
	return tracks, err
}
