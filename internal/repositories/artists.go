package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/chartwatch/ingestor/internal/models"
)

// FindArtistByExternalID looks up an artist by catalog identity.
// Returns (nil, nil) when absent.
func FindArtistByExternalID(ctx context.Context, db bun.IDB, externalID string) (*models.Artist, error) {
	artist := new(models.Artist)
	err := db.NewSelect().
		Model(artist).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return artist, nil
}

// FindArtistByName matches case-insensitively on the display name.
// Returns (nil, nil) when absent.
func FindArtistByName(ctx context.Context, db bun.IDB, name string) (*models.Artist, error) {
	artist := new(models.Artist)
	err := db.NewSelect().
		Model(artist).
		Where("lower(name) = lower(?)", name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return artist, nil
}

// InsertArtist validates and stores a new artist.
func InsertArtist(ctx context.Context, db bun.IDB, artist *models.Artist) error {
	if err := artist.Validate(); err != nil {
		return err
	}
	_, err := db.NewInsert().Model(artist).Exec(ctx)
	return err
}

// UpdateArtist persists changes to an existing artist.
func UpdateArtist(ctx context.Context, db bun.IDB, artist *models.Artist) error {
	if err := artist.Validate(); err != nil {
		return err
	}
	_, err := db.NewUpdate().Model(artist).WherePK().Exec(ctx)
	return err
}

// UpdateArtistMetadata fills enrichment fields in place without touching
// identity columns. Used by the best-effort enrichment worker.
func UpdateArtistMetadata(ctx context.Context, db bun.IDB, artistID int64, imageURL *string, genres models.StringArray, popularity *int) error {
	q := db.NewUpdate().
		Model((*models.Artist)(nil)).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", artistID)

	if imageURL != nil {
		q = q.Set("image_url = ?", *imageURL)
	}
	if len(genres) > 0 {
		q = q.Set("genres = ?", genres)
	}
	if popularity != nil {
		q = q.Set("popularity = ?", *popularity)
	}

	_, err := q.Exec(ctx)
	return err
}
