package models

import (
	"time"

	"github.com/uptrace/bun"
)

// IngestionRecord audits one uploaded or fetched snapshot. Created when
// processing starts, mutated as it completes, never deleted automatically.
type IngestionRecord struct {
	bun.BaseModel `bun:"table:ingestion_records,alias:ir"`

	ID          int64        `bun:"id,pk,autoincrement" json:"id"`
	RunID       string       `bun:"run_id,unique,notnull" json:"run_id"`
	SourceName  string       `bun:"source_name,notnull" json:"source_name"`
	SourceClass EntrySource  `bun:"source_class,notnull" json:"source_class"`
	ChartDate   ChartDate    `bun:"chart_date,notnull" json:"chart_date"`
	ChartType   ChartType    `bun:"chart_type,notnull" json:"chart_type"`
	ChartPeriod ChartPeriod  `bun:"chart_period,notnull" json:"chart_period"`
	Region      *string      `bun:"region" json:"region,omitempty"`
	Status      IngestStatus `bun:"status,notnull" json:"status"`
	Created     int          `bun:"created_count,default:0" json:"created_count"`
	Updated     int          `bun:"updated_count,default:0" json:"updated_count"`
	Skipped     int          `bun:"skipped_count,default:0" json:"skipped_count"`
	ErrorLog    *string      `bun:"error_log" json:"error_log,omitempty"`
	StartedAt   time.Time    `bun:"started_at,notnull" json:"started_at"`
	FinishedAt  *time.Time   `bun:"finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Finished reports whether the run reached a terminal status.
func (r *IngestionRecord) Finished() bool {
	switch r.Status {
	case IngestSuccess, IngestPartial, IngestFailed, IngestSkipped:
		return true
	}
	return false
}
