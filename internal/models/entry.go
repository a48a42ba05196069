package models

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ChartEntry is the atomic chart fact: one track's rank on one date for
// one (chartType, chartPeriod, region) variant on one platform.
//
// Region is NULL for the global chart, never the string "global"; the
// natural key (chart_date, chart_type, chart_period, region, track_id,
// platform) is enforced with an expression index over ifnull(region,'')
// because SQLite treats NULLs as distinct in plain unique indexes.
type ChartEntry struct {
	bun.BaseModel `bun:"table:chart_entries,alias:ce"`

	ID           int64       `bun:"id,pk,autoincrement" json:"id"`
	TrackID      int64       `bun:"track_id,notnull" json:"track_id"`
	ChartDate    ChartDate   `bun:"chart_date,notnull" json:"chart_date"`
	ChartType    ChartType   `bun:"chart_type,notnull" json:"chart_type"`
	ChartPeriod  ChartPeriod `bun:"chart_period,notnull" json:"chart_period"`
	Region       *string     `bun:"region" json:"region,omitempty"`
	Platform     Platform    `bun:"platform,notnull" json:"platform"`
	Position     int         `bun:"position,notnull" json:"position"`
	PreviousRank *int        `bun:"previous_rank" json:"previous_rank,omitempty"`
	PeakRank     int         `bun:"peak_rank,notnull" json:"peak_rank"`
	DaysOnChart  int         `bun:"days_on_chart,notnull,default:1" json:"days_on_chart"`
	Streams      StreamCount `bun:"streams,type:text,nullzero" json:"streams"`
	Source       EntrySource `bun:"source,notnull" json:"source"`
	CreatedAt    time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Track *Track `bun:"rel:belongs-to,join:track_id=id" json:"-"`
}

// BeforeUpdate updates the timestamp on modifications.
func (e *ChartEntry) BeforeUpdate(ctx context.Context, query *bun.UpdateQuery) error {
	e.UpdatedAt = time.Now()
	return nil
}

// Validate checks the invariants every stored entry must satisfy.
func (e *ChartEntry) Validate() error {
	if e.TrackID <= 0 {
		return errors.New("entry must reference a track")
	}
	if err := e.ChartDate.Validate(); err != nil {
		return errors.New("entry chart date is invalid")
	}
	if e.ChartType != ChartRegional && e.ChartType != ChartViral {
		return errors.New("unknown chart type")
	}
	if e.ChartPeriod != PeriodDaily && e.ChartPeriod != PeriodWeekly {
		return errors.New("unknown chart period")
	}
	if e.Position <= 0 {
		return errors.New("position must be positive")
	}
	if e.PeakRank <= 0 || e.PeakRank > e.Position {
		return errors.New("peak rank must be positive and no worse than position")
	}
	if e.DaysOnChart <= 0 {
		return errors.New("days on chart must be positive")
	}
	if e.Region != nil && *e.Region == "" {
		return errors.New("region must be nil for global, never empty")
	}
	return nil
}

// IsGlobal reports whether the entry belongs to the global chart.
func (e *ChartEntry) IsGlobal() bool {
	return e.Region == nil
}

// Improved reports whether the entry climbed relative to its previous rank.
func (e *ChartEntry) Improved() bool {
	return e.PreviousRank != nil && e.Position < *e.PreviousRank
}
