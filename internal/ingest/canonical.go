package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chartwatch/ingestor/internal/models"
)

// SnapshotKey identifies one ingestion unit: a single ranked list on a
// single calendar date. Region nil means the global chart.
type SnapshotKey struct {
	Date        models.ChartDate
	ChartType   models.ChartType
	ChartPeriod models.ChartPeriod
	Region      *string
	Platform    models.Platform
}

// Validate rejects keys that cannot address stored entries.
func (k SnapshotKey) Validate() error {
	if err := k.Date.Validate(); err != nil {
		return fmt.Errorf("snapshot date: %w", err)
	}
	if k.ChartType != models.ChartRegional && k.ChartType != models.ChartViral {
		return errors.New("unknown chart type")
	}
	if k.ChartPeriod != models.PeriodDaily && k.ChartPeriod != models.PeriodWeekly {
		return errors.New("unknown chart period")
	}
	if k.Platform == "" {
		return errors.New("platform is required")
	}
	if k.Region != nil && *k.Region == "" {
		return errors.New("region must be nil for global, never empty")
	}
	return nil
}

// RegionLabel renders the region for logs and filenames.
func (k SnapshotKey) RegionLabel() string {
	if k.Region == nil {
		return "global"
	}
	return *k.Region
}

// String renders the key in filename order: type-region-period-date.
func (k SnapshotKey) String() string {
	return strings.Join([]string{
		string(k.ChartType), k.RegionLabel(), string(k.ChartPeriod), string(k.Date),
	}, "-")
}

// WithDate returns a copy of the key addressing another date.
func (k SnapshotKey) WithDate(d models.ChartDate) SnapshotKey {
	k.Date = d
	return k
}

// CanonicalRow is the parser-normalized form of one chart position,
// independent of whether it came from a tabular file or the JSON feed.
type CanonicalRow struct {
	Position         int
	TrackName        string
	ArtistNames      []string
	TrackExternalID  *string
	TrackExternalURI *string
	ArtistExternalID *string
	Streams          models.StreamCount
	PreviousRank     *int
	PeakRank         *int
}

// Validate rejects rows the reconciliation engine cannot place.
func (r CanonicalRow) Validate() error {
	if r.Position <= 0 {
		return errors.New("position must be positive")
	}
	if strings.TrimSpace(r.TrackName) == "" {
		return errors.New("track name is required")
	}
	if len(r.ArtistNames) == 0 || strings.TrimSpace(r.ArtistNames[0]) == "" {
		return errors.New("at least one artist name is required")
	}
	if r.PeakRank != nil && *r.PeakRank <= 0 {
		return errors.New("peak rank must be positive when present")
	}
	if r.PreviousRank != nil && *r.PreviousRank <= 0 {
		return errors.New("previous rank must be positive when present")
	}
	return nil
}

// PrimaryArtist returns the first credited artist. Collaborators beyond
// the first are not modeled as separate chart credit.
func (r CanonicalRow) PrimaryArtist() string {
	if len(r.ArtistNames) == 0 {
		return ""
	}
	return strings.TrimSpace(r.ArtistNames[0])
}

// ParseResult is what every source parser hands to the engine: the rows
// of one snapshot plus any row-level warnings collected along the way.
type ParseResult struct {
	Key      SnapshotKey
	Rows     []CanonicalRow
	Warnings []string
}
