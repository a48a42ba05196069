package ingest

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/repositories"
)

// Action is the configured response to re-ingesting a snapshot key that
// already has stored entries.
type Action string

const (
	// ActionSkip aborts before any write and reports skipped.
	ActionSkip Action = "skip"
	// ActionUpdate upserts rows present in the new snapshot in place and
	// leaves absent tracks untouched.
	ActionUpdate Action = "update"
	// ActionReplace upserts the new rows and then removes stored entries
	// for tracks absent from the new snapshot.
	ActionReplace Action = "replace"
	// ActionShowWarning writes nothing and returns the existing entries
	// so an attended caller can pick an action explicitly. Never used by
	// unattended jobs.
	ActionShowWarning Action = "show-warning"
)

// ParseAction validates a configured action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionSkip, ActionUpdate, ActionReplace, ActionShowWarning:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown dedup action %q", s)
}

// ExistingSnapshot describes what is already stored under a snapshot key.
type ExistingSnapshot struct {
	Exists bool                 `json:"exists"`
	Count  int                  `json:"existingCount"`
	Sample []*models.ChartEntry `json:"sample,omitempty"`
}

// CheckExisting is the read-only natural-key-prefix probe. It must run
// before any network fetch when the caller already knows the key.
func CheckExisting(ctx context.Context, db *bun.DB, key SnapshotKey) (ExistingSnapshot, error) {
	count, err := repositories.CountEntriesForSnapshot(ctx, db, key.Date, key.ChartType, key.ChartPeriod, key.Region, key.Platform)
	if err != nil {
		return ExistingSnapshot{}, fmt.Errorf("check existing %s: %w", key, err)
	}
	return ExistingSnapshot{Exists: count > 0, Count: count}, nil
}

// Decision is the dedup policy verdict for one snapshot.
type Decision struct {
	Proceed bool
	Skipped bool
	// Warning carries the existing sample under show-warning; nil otherwise.
	Warning *ExistingSnapshot
}

// Resolve applies the configured action to the probe outcome.
func Resolve(action Action, existing ExistingSnapshot) Decision {
	if !existing.Exists {
		return Decision{Proceed: true}
	}

	switch action {
	case ActionSkip:
		return Decision{Skipped: true}
	case ActionShowWarning:
		snapshot := existing
		return Decision{Warning: &snapshot}
	default:
		// update and replace both proceed to reconciliation.
		return Decision{Proceed: true}
	}
}
