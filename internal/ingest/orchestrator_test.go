package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chartwatch/ingestor/internal/ingest"
	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/repositories"
)

// fakeFetcher serves one canned view per requested key and counts calls.
type fakeFetcher struct {
	calls  int
	err    error
	onCall func(n int)
}

func (f *fakeFetcher) FetchCharts(_ context.Context, key ingest.SnapshotKey) ([]ingest.ParseResult, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if f.err != nil {
		return nil, f.err
	}
	return []ingest.ParseResult{{
		Key: key,
		Rows: []ingest.CanonicalRow{
			row(1, fmt.Sprintf("Track for %s", key.Date), "Nova Lane"),
		},
	}}, nil
}

// noopLimiter removes pacing from orchestration tests.
type noopLimiter struct{}

func (noopLimiter) Wait(ctx context.Context) error       { return ctx.Err() }
func (noopLimiter) Allow() bool                          { return true }
func (noopLimiter) Reserve() time.Duration               { return 0 }
func (noopLimiter) RetryAfter(attempt int) time.Duration { return 0 }
func (noopLimiter) Reset()                               {}

func newTestOrchestrator(t *testing.T, fetcher ingest.Fetcher, parse ingest.FileParser) (*ingest.Orchestrator, *ingest.Reconciler) {
	t.Helper()
	db := testDB(t)
	rec := ingest.NewReconciler(db, zap.NewNop())
	orch := ingest.NewOrchestrator(db, rec, ingest.OrchestratorConfig{
		Fetcher:   fetcher,
		ParseFile: parse,
		Limiter:   noopLimiter{},
	}, zap.NewNop())
	return orch, rec
}

func TestFetchSnapshotSkipCostsNoRemoteCall(t *testing.T) {
	fetcher := &fakeFetcher{}
	orch, rec := newTestOrchestrator(t, fetcher, nil)
	ctx := context.Background()
	key := globalDailyKey("2025-06-01")

	seed := ingest.ParseResult{Key: key, Rows: []ingest.CanonicalRow{row(1, "Midnight Run", "Nova Lane")}}
	_, err := rec.ProcessSnapshot(ctx, "seed", models.SourceManualUpload, seed, ingest.ActionUpdate)
	require.NoError(t, err)

	batch, err := orch.FetchSnapshot(ctx, key, models.SourceScheduledFetch, nil)
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.True(t, batch.Items[0].Skipped)
	assert.True(t, batch.Items[0].Duplicate)
	assert.Zero(t, fetcher.calls, "the dedup probe must run before the fetch")
}

func TestFetchSnapshotStoresReturnedView(t *testing.T) {
	fetcher := &fakeFetcher{}
	orch, _ := newTestOrchestrator(t, fetcher, nil)
	ctx := context.Background()
	key := globalDailyKey("2025-06-01")

	batch, err := orch.FetchSnapshot(ctx, key, models.SourceScheduledFetch, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	require.Len(t, batch.Items, 1)
	assert.True(t, batch.Items[0].Success)
	assert.Equal(t, 1, batch.Items[0].Result.EntriesCreated)
}

func TestFetchSnapshotRemoteFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream 503")}
	orch, _ := newTestOrchestrator(t, fetcher, nil)

	_, err := orch.FetchSnapshot(context.Background(), globalDailyKey("2025-06-01"), models.SourceScheduledFetch, nil)
	require.ErrorIs(t, err, ingest.ErrRemoteFetch)
}

func TestBackfillSequentialOldestFirst(t *testing.T) {
	fetcher := &fakeFetcher{}
	orch, _ := newTestOrchestrator(t, fetcher, nil)

	batch, err := orch.Backfill(context.Background(), globalDailyKey(""), "2025-06-01", "2025-06-03")
	require.NoError(t, err)
	assert.Equal(t, 3, fetcher.calls)
	require.Len(t, batch.Items, 3)
	assert.Empty(t, batch.Unprocessed)
	assert.Equal(t, 3, batch.Succeeded())

	for i, date := range []string{"2025-06-01", "2025-06-02", "2025-06-03"} {
		assert.Contains(t, batch.Items[i].SourceID, date)
	}
}

func TestBackfillBudgetExpiryReportsUnprocessed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	orch, _ := newTestOrchestrator(t, fetcher, nil)

	batch, err := orch.Backfill(ctx, globalDailyKey(""), "2025-06-01", "2025-06-05")
	require.NoError(t, err, "budget expiry is not an error")
	assert.Equal(t, 2, fetcher.calls)
	assert.Len(t, batch.Items, 2, "already-written dates stay")
	assert.Equal(t,
		[]models.ChartDate{"2025-06-03", "2025-06-04", "2025-06-05"},
		batch.Unprocessed,
		"cut-off dates must be re-runnable")
}

func TestBackfillFailedDateDoesNotAbortRange(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.onCall = func(n int) {
		if n == 2 {
			fetcher.err = errors.New("transient")
		} else {
			fetcher.err = nil
		}
	}
	orch, _ := newTestOrchestrator(t, fetcher, nil)

	batch, err := orch.Backfill(context.Background(), globalDailyKey(""), "2025-06-01", "2025-06-03")
	require.NoError(t, err)
	assert.Equal(t, 3, fetcher.calls)
	require.Len(t, batch.Items, 3)
	assert.Equal(t, 2, batch.Succeeded())
	assert.NotEmpty(t, batch.Items[1].Result.Errors)
}

func TestBackfillInvertedRange(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeFetcher{}, nil)

	_, err := orch.Backfill(context.Background(), globalDailyKey(""), "2025-06-05", "2025-06-01")
	require.ErrorIs(t, err, ingest.ErrMalformedInput)
}

func TestIngestFilesIsolatesRejectedFile(t *testing.T) {
	parse := func(filename string, raw []byte) (*ingest.ParseResult, error) {
		if filename == "bad.csv" {
			return nil, fmt.Errorf("%w: header mismatch", ingest.ErrMalformedInput)
		}
		key := globalDailyKey("2025-06-01")
		return &ingest.ParseResult{
			Key:  key,
			Rows: []ingest.CanonicalRow{row(1, "Midnight Run", "Nova Lane")},
		}, nil
	}
	orch, _ := newTestOrchestrator(t, nil, parse)

	batch := orch.IngestFiles(context.Background(), []ingest.UploadFile{
		{Name: "bad.csv", Data: []byte("x")},
		{Name: "good.csv", Data: []byte("y")},
	}, nil)

	require.Len(t, batch.Items, 2)
	assert.False(t, batch.Items[0].Success)
	assert.NotEmpty(t, batch.Items[0].Result.Errors)
	assert.True(t, batch.Items[1].Success)
	assert.Equal(t, 1, batch.Succeeded())
}

func TestActionForDefaults(t *testing.T) {
	db := testDB(t)
	rec := ingest.NewReconciler(db, zap.NewNop())

	orch := ingest.NewOrchestrator(db, rec, ingest.OrchestratorConfig{
		Limiter: noopLimiter{},
	}, zap.NewNop())
	assert.Equal(t, ingest.ActionSkip, orch.ActionFor(models.SourceScheduledFetch))
	assert.Equal(t, ingest.ActionReplace, orch.ActionFor(models.SourcePlaylist))
	assert.Equal(t, ingest.ActionUpdate, orch.ActionFor(models.SourceManualUpload))

	configured := ingest.NewOrchestrator(db, rec, ingest.OrchestratorConfig{
		Limiter: noopLimiter{},
		DefaultActions: map[models.EntrySource]ingest.Action{
			models.SourceScheduledFetch: ingest.ActionUpdate,
		},
	}, zap.NewNop())
	assert.Equal(t, ingest.ActionUpdate, configured.ActionFor(models.SourceScheduledFetch))
}

func TestRunDueAdvancesSchedule(t *testing.T) {
	fetcher := &fakeFetcher{}
	db := testDB(t)
	rec := ingest.NewReconciler(db, zap.NewNop())
	orch := ingest.NewOrchestrator(db, rec, ingest.OrchestratorConfig{
		Fetcher: fetcher,
		Limiter: noopLimiter{},
	}, zap.NewNop())
	ctx := context.Background()

	job := &models.ChartConfig{
		ChartType:   models.ChartRegional,
		ChartPeriod: models.PeriodDaily,
		Platform:    models.PlatformSpotify,
		Enabled:     true,
		Interval:    24 * time.Hour,
	}
	require.NoError(t, repositories.SaveChartConfig(ctx, db, job))

	disabled := &models.ChartConfig{
		ChartType:   models.ChartViral,
		ChartPeriod: models.PeriodDaily,
		Platform:    models.PlatformSpotify,
		Enabled:     false,
		Interval:    24 * time.Hour,
	}
	require.NoError(t, repositories.SaveChartConfig(ctx, db, disabled))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	batch, err := orch.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "disabled jobs never fetch")
	require.Len(t, batch.Items, 1)
	assert.True(t, batch.Items[0].Success)

	configs, err := repositories.DueChartConfigs(ctx, db, now)
	require.NoError(t, err)
	assert.Empty(t, configs, "a run must advance next_run past now")

	later := now.Add(25 * time.Hour)
	configs, err = repositories.DueChartConfigs(ctx, db, later)
	require.NoError(t, err)
	assert.Len(t, configs, 1)
}
