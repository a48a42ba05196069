package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ChartConfig defines one recurring fetch job. The orchestrator's
// scheduled run picks up every enabled config whose next_run is due.
type ChartConfig struct {
	bun.BaseModel `bun:"table:chart_configs,alias:cc"`

	ID          int64         `bun:"id,pk,autoincrement" json:"id"`
	ChartType   ChartType     `bun:"chart_type,notnull" json:"chart_type"`
	ChartPeriod ChartPeriod   `bun:"chart_period,notnull" json:"chart_period"`
	Region      *string       `bun:"region" json:"region,omitempty"`
	Platform    Platform      `bun:"platform,notnull,default:'spotify'" json:"platform"`
	// No column default here: bun substitutes a default for the zero
	// value on insert, which would silently enable disabled jobs.
	Enabled     bool          `bun:"enabled,notnull" json:"enabled"`
	Interval    time.Duration `bun:"interval_ns,notnull" json:"interval_ns"`
	LastRun     *time.Time    `bun:"last_run" json:"last_run,omitempty"`
	NextRun     *time.Time    `bun:"next_run" json:"next_run,omitempty"`
	CreatedAt   time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Validate checks the job definition is runnable.
func (c *ChartConfig) Validate() error {
	if c.ChartType != ChartRegional && c.ChartType != ChartViral {
		return errors.New("unknown chart type")
	}
	if c.ChartPeriod != PeriodDaily && c.ChartPeriod != PeriodWeekly {
		return errors.New("unknown chart period")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	return nil
}

// Due reports whether the job should run at the given instant.
func (c *ChartConfig) Due(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	return c.NextRun == nil || !c.NextRun.After(now)
}

// MarkRun records a completed run and schedules the next one.
func (c *ChartConfig) MarkRun(now time.Time) {
	c.LastRun = &now
	next := now.Add(c.Interval)
	c.NextRun = &next
}
