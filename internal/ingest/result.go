package ingest

import (
	"strings"

	"github.com/chartwatch/ingestor/internal/models"
)

// Result counts what one reconciliation pass did to the store.
type Result struct {
	ArtistsCreated int      `json:"artistsCreated"`
	ArtistsUpdated int      `json:"artistsUpdated"`
	TracksCreated  int      `json:"tracksCreated"`
	TracksUpdated  int      `json:"tracksUpdated"`
	EntriesCreated int      `json:"entriesCreated"`
	EntriesUpdated int      `json:"entriesUpdated"`
	Errors         []string `json:"errors"`
}

// EntriesWritten is the total of created and updated entries.
func (r *Result) EntriesWritten() int {
	return r.EntriesCreated + r.EntriesUpdated
}

// Status derives the terminal audit status for the pass.
func (r *Result) Status(rowCount int) models.IngestStatus {
	switch {
	case rowCount > 0 && r.EntriesWritten() == 0:
		return models.IngestFailed
	case len(r.Errors) > 0:
		return models.IngestPartial
	default:
		return models.IngestSuccess
	}
}

// ErrorLog joins row errors for the audit record, nil when clean.
func (r *Result) ErrorLog() *string {
	if len(r.Errors) == 0 {
		return nil
	}
	joined := strings.Join(r.Errors, "; ")
	return &joined
}

// SnapshotResult is the per-snapshot outcome returned for every file or
// fetch processed, including short-circuited duplicates.
type SnapshotResult struct {
	SourceID         string        `json:"fileOrFetchId"`
	Success          bool          `json:"success"`
	Skipped          bool          `json:"skipped,omitempty"`
	Duplicate        bool          `json:"duplicate,omitempty"`
	RecordsProcessed int           `json:"recordsProcessed"`
	Warnings         []string      `json:"warnings,omitempty"`
	Existing         *ExistingSnapshot `json:"existing,omitempty"`
	Result           Result        `json:"result"`
}

// BatchResult aggregates a multi-date or multi-file operation. Dates the
// wall-clock budget cut off are listed unprocessed and can be re-run.
type BatchResult struct {
	Items       []SnapshotResult   `json:"items"`
	Unprocessed []models.ChartDate `json:"unprocessed,omitempty"`
}

// Succeeded counts fully successful items.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, item := range b.Items {
		if item.Success {
			n++
		}
	}
	return n
}
