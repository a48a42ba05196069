package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/ratelimit"
	"github.com/chartwatch/ingestor/internal/repositories"
)

// FileParser turns one named raw file into a parsed snapshot. The
// filename contract is enforced before the content is touched.
type FileParser func(filename string, raw []byte) (*ParseResult, error)

// Fetcher pulls chart views from the remote feed for a snapshot key.
// Implementations live under internal/sources.
type Fetcher interface {
	FetchCharts(ctx context.Context, key SnapshotKey) ([]ParseResult, error)
}

// UploadFile is one member of a multi-file manual upload.
type UploadFile struct {
	Name string
	Data []byte
}

// OrchestratorConfig wires the orchestrator's collaborators.
type OrchestratorConfig struct {
	Fetcher        Fetcher
	ParseFile      FileParser
	Limiter        ratelimit.Limiter
	DefaultActions map[models.EntrySource]Action
}

// Orchestrator sequences parsing, dedup and reconciliation per snapshot
// and aggregates per-date / per-file outcomes with partial-failure
// reporting. Batch work is sequential on purpose: the inter-date limiter
// pause is a rate-limit courtesy toward the remote source.
type Orchestrator struct {
	db       *bun.DB
	rec      *Reconciler
	fetcher  Fetcher
	parse    FileParser
	limiter  ratelimit.Limiter
	defaults map[models.EntrySource]Action
	log      *zap.Logger
}

// NewOrchestrator builds an orchestrator around a reconciler.
func NewOrchestrator(db *bun.DB, rec *Reconciler, cfg OrchestratorConfig, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.Config{Strategy: ratelimit.StrategyFixedDelay})
	}
	return &Orchestrator{
		db:       db,
		rec:      rec,
		fetcher:  cfg.Fetcher,
		parse:    cfg.ParseFile,
		limiter:  limiter,
		defaults: cfg.DefaultActions,
		log:      log,
	}
}

// ActionFor resolves the default dedup action for an ingestion source
// class, falling back to conservative built-ins.
func (o *Orchestrator) ActionFor(class models.EntrySource) Action {
	if action, ok := o.defaults[class]; ok {
		return action
	}
	switch class {
	case models.SourceScheduledFetch:
		return ActionSkip
	case models.SourcePlaylist:
		return ActionReplace
	default:
		return ActionUpdate
	}
}

// IngestFile processes one manually uploaded tabular file. Parse-level
// failures (bad filename, bad header, empty content) are returned as
// errors for per-file reporting; row-level trouble lands in the result.
func (o *Orchestrator) IngestFile(ctx context.Context, filename string, raw []byte, override *Action) (*SnapshotResult, error) {
	if o.parse == nil {
		return nil, errors.New("no file parser configured")
	}

	parsed, err := o.parse(filename, raw)
	if err != nil {
		return nil, err
	}

	action := o.ActionFor(models.SourceManualUpload)
	if override != nil {
		action = *override
	}
	return o.rec.ProcessSnapshot(ctx, filename, models.SourceManualUpload, *parsed, action)
}

// IngestFiles processes a manual multi-file upload in order. Every file
// gets an item in the batch result; a failing file never aborts the rest.
func (o *Orchestrator) IngestFiles(ctx context.Context, files []UploadFile, override *Action) *BatchResult {
	batch := &BatchResult{}
	for _, file := range files {
		item, err := o.IngestFile(ctx, file.Name, file.Data, override)
		if err != nil {
			o.log.Warn("file rejected", zap.String("file", file.Name), zap.Error(err))
			batch.Items = append(batch.Items, SnapshotResult{
				SourceID: file.Name,
				Result:   Result{Errors: []string{err.Error()}},
			})
			continue
		}
		batch.Items = append(batch.Items, *item)
	}
	return batch
}

// FetchSnapshot pulls one snapshot from the remote feed and reconciles
// every chart view it returns. The dedup probe runs before the fetch so a
// skip verdict costs no remote call.
func (o *Orchestrator) FetchSnapshot(ctx context.Context, key SnapshotKey, class models.EntrySource, override *Action) (*BatchResult, error) {
	if o.fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	action := o.ActionFor(class)
	if override != nil {
		action = *override
	}

	batch := &BatchResult{}

	existing, err := CheckExisting(ctx, o.db, key)
	if err != nil {
		return nil, err
	}
	if decision := Resolve(action, existing); !decision.Proceed {
		item := SnapshotResult{SourceID: key.String(), Duplicate: true}
		if decision.Skipped {
			item.Skipped = true
			item.Success = true
		}
		if decision.Warning != nil {
			sample, sampleErr := repositories.SampleEntriesForSnapshot(ctx, o.db, key.Date, key.ChartType, key.ChartPeriod, key.Region, key.Platform, warningSampleSize)
			if sampleErr == nil {
				decision.Warning.Sample = sample
			}
			item.Existing = decision.Warning
		}
		batch.Items = append(batch.Items, item)
		return batch, nil
	}

	views, err := o.fetcher.FetchCharts(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRemoteFetch, key, err)
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("%w: no chart views for %s", ErrEmptyResult, key)
	}

	for _, view := range views {
		item, procErr := o.rec.ProcessSnapshot(ctx, view.Key.String(), class, view, action)
		if procErr != nil {
			o.log.Warn("snapshot processing failed",
				zap.String("key", view.Key.String()), zap.Error(procErr))
			batch.Items = append(batch.Items, SnapshotResult{
				SourceID: view.Key.String(),
				Result:   Result{Errors: []string{procErr.Error()}},
			})
			continue
		}
		batch.Items = append(batch.Items, *item)
	}
	return batch, nil
}

// Backfill fetches a date range sequentially, oldest first, pausing the
// limiter's delay between dates. When the context's wall-clock budget
// runs out, already-written dates stay valid and the remainder is
// reported unprocessed; re-invoking with those dates resumes the work.
func (o *Orchestrator) Backfill(ctx context.Context, template SnapshotKey, from, to models.ChartDate) (*BatchResult, error) {
	if from > to {
		return nil, fmt.Errorf("%w: backfill range %s..%s is inverted", ErrMalformedInput, from, to)
	}
	if err := template.WithDate(from).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	batch := &BatchResult{}
	first := true
	for date := from; date <= to; date = date.AddDays(1) {
		if ctx.Err() != nil {
			o.markUnprocessed(batch, date, to)
			break
		}
		if !first {
			if err := o.limiter.Wait(ctx); err != nil {
				o.markUnprocessed(batch, date, to)
				break
			}
		}
		first = false

		key := template.WithDate(date)
		dateBatch, err := o.FetchSnapshot(ctx, key, models.SourceScheduledFetch, nil)
		if err != nil {
			o.log.Warn("backfill date failed",
				zap.String("key", key.String()), zap.Error(err))
			batch.Items = append(batch.Items, SnapshotResult{
				SourceID: key.String(),
				Result:   Result{Errors: []string{err.Error()}},
			})
			continue
		}
		batch.Items = append(batch.Items, dateBatch.Items...)
	}
	return batch, nil
}

func (o *Orchestrator) markUnprocessed(batch *BatchResult, from, to models.ChartDate) {
	for date := from; date <= to; date = date.AddDays(1) {
		batch.Unprocessed = append(batch.Unprocessed, date)
	}
	o.log.Info("budget exhausted, remaining dates reported unprocessed",
		zap.Int("remaining", len(batch.Unprocessed)))
}

// RunDue executes every enabled recurring job whose next run is due,
// targeting the calendar date of the given instant. Each job advances its
// schedule regardless of outcome so a failing chart cannot wedge the loop.
func (o *Orchestrator) RunDue(ctx context.Context, now time.Time) (*BatchResult, error) {
	configs, err := repositories.DueChartConfigs(ctx, o.db, now)
	if err != nil {
		return nil, fmt.Errorf("load due chart configs: %w", err)
	}

	batch := &BatchResult{}
	for i, cfg := range configs {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			if err := o.limiter.Wait(ctx); err != nil {
				break
			}
		}

		key := SnapshotKey{
			Date:        models.NewChartDate(now),
			ChartType:   cfg.ChartType,
			ChartPeriod: cfg.ChartPeriod,
			Region:      cfg.Region,
			Platform:    cfg.Platform,
		}
		jobBatch, err := o.FetchSnapshot(ctx, key, models.SourceScheduledFetch, nil)
		if err != nil {
			o.log.Warn("scheduled job failed",
				zap.String("key", key.String()), zap.Error(err))
			batch.Items = append(batch.Items, SnapshotResult{
				SourceID: key.String(),
				Result:   Result{Errors: []string{err.Error()}},
			})
		} else {
			batch.Items = append(batch.Items, jobBatch.Items...)
		}

		cfg.MarkRun(now)
		if err := repositories.SaveChartConfig(ctx, o.db, cfg); err != nil {
			o.log.Error("failed to advance job schedule",
				zap.Int64("config", cfg.ID), zap.Error(err))
		}
	}
	return batch, nil
}
