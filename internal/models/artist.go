package models

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Artist is a chart-credited performer. Created on first reference from
// any track row; enrichment updates fill metadata in place.
type Artist struct {
	bun.BaseModel `bun:"table:artists,alias:a"`

	ID         int64       `bun:"id,pk,autoincrement" json:"id"`
	Name       string      `bun:"name,notnull" json:"name"`
	ExternalID *string     `bun:"external_id,unique,nullzero" json:"external_id,omitempty"`
	ImageURL   *string     `bun:"image_url" json:"image_url,omitempty"`
	Genres     StringArray `bun:"genres,type:json" json:"genres,omitempty"`
	Popularity *int        `bun:"popularity" json:"popularity,omitempty"`
	CreatedAt  time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Tracks []*Track `bun:"rel:has-many,join:id=artist_id" json:"tracks,omitempty"`
}

// BeforeUpdate updates the timestamp on modifications.
func (a *Artist) BeforeUpdate(ctx context.Context, query *bun.UpdateQuery) error {
	a.UpdatedAt = time.Now()
	return nil
}

// Validate checks that required artist fields are present.
func (a *Artist) Validate() error {
	if a.Name == "" {
		return errors.New("artist name is required")
	}
	if a.Popularity != nil && (*a.Popularity < 0 || *a.Popularity > 100) {
		return errors.New("artist popularity must be within 0-100")
	}
	return nil
}

// HasExternalID reports whether the artist carries a catalog identity.
func (a *Artist) HasExternalID() bool {
	return a.ExternalID != nil && *a.ExternalID != ""
}
