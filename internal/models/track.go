package models

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Track belongs to exactly one Artist and is created by the ingestion
// engine once its artist is resolved.
type Track struct {
	bun.BaseModel `bun:"table:tracks,alias:t"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	ArtistID    int64     `bun:"artist_id,notnull" json:"artist_id"`
	Name        string    `bun:"name,notnull" json:"name"`
	ExternalID  *string   `bun:"external_id,unique,nullzero" json:"external_id,omitempty"`
	ExternalURI *string   `bun:"external_uri" json:"external_uri,omitempty"`
	AlbumName   *string   `bun:"album_name" json:"album_name,omitempty"`
	PreviewURL  *string   `bun:"preview_url" json:"preview_url,omitempty"`
	DurationMS  *int      `bun:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Artist  *Artist       `bun:"rel:belongs-to,join:artist_id=id" json:"artist,omitempty"`
	Entries []*ChartEntry `bun:"rel:has-many,join:id=track_id" json:"entries,omitempty"`
}

// BeforeUpdate updates the timestamp on modifications.
func (t *Track) BeforeUpdate(ctx context.Context, query *bun.UpdateQuery) error {
	t.UpdatedAt = time.Now()
	return nil
}

// Validate checks that required track fields are present.
func (t *Track) Validate() error {
	if t.Name == "" {
		return errors.New("track name is required")
	}
	if t.ArtistID <= 0 {
		return errors.New("track must reference an artist")
	}
	if t.DurationMS != nil && *t.DurationMS < 0 {
		return errors.New("track duration cannot be negative")
	}
	return nil
}

// HasExternalID reports whether the track carries a catalog identity.
func (t *Track) HasExternalID() bool {
	return t.ExternalID != nil && *t.ExternalID != ""
}
