package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/repositories"
)

// warningSampleSize bounds the existing-entry sample returned under the
// show-warning dedup action.
const warningSampleSize = 5

// Reconciler resolves canonical rows against stored artists, tracks and
// chart entries. One call handles one snapshot; rows are processed in
// source order and derived fields depend on previously stored history
// only, never on sibling rows of the same batch.
type Reconciler struct {
	db  *bun.DB
	log *zap.Logger

	// OnArtistCreated, when set, is invoked for every newly created
	// artist. The enricher hangs off this hook; it must not block.
	OnArtistCreated func(*models.Artist)
}

// NewReconciler wires the engine to its store.
func NewReconciler(db *bun.DB, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{db: db, log: log}
}

// runState caches identities resolved earlier in the same run so repeated
// names within one snapshot do not create duplicate artists.
type runState struct {
	artistsByExt  map[string]*models.Artist
	artistsByName map[string]*models.Artist
	tracksByExt   map[string]*models.Track
	tracksByName  map[string]*models.Track
	keptTrackIDs  []int64
}

func newRunState() *runState {
	return &runState{
		artistsByExt:  make(map[string]*models.Artist),
		artistsByName: make(map[string]*models.Artist),
		tracksByExt:   make(map[string]*models.Track),
		tracksByName:  make(map[string]*models.Track),
	}
}

// ProcessSnapshot runs the full per-snapshot flow: audit record, dedup
// policy, row reconciliation, stale-entry cleanup, audit finalization.
// The returned error is reserved for hard failures (bad key, audit row
// persistence); row-level trouble lands in the result instead.
func (r *Reconciler) ProcessSnapshot(ctx context.Context, sourceName string, class models.EntrySource, parsed ParseResult, action Action) (*SnapshotResult, error) {
	key := parsed.Key
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: snapshot key: %v", ErrMalformedInput, err)
	}

	record := &models.IngestionRecord{
		RunID:       uuid.NewString(),
		SourceName:  sourceName,
		SourceClass: class,
		ChartDate:   key.Date,
		ChartType:   key.ChartType,
		ChartPeriod: key.ChartPeriod,
		Region:      key.Region,
		Status:      models.IngestRunning,
		StartedAt:   time.Now(),
	}
	if err := repositories.InsertIngestionRecord(ctx, r.db, record); err != nil {
		return nil, fmt.Errorf("persist ingestion record: %w", err)
	}

	out := &SnapshotResult{SourceID: sourceName, Warnings: parsed.Warnings}

	existing, err := CheckExisting(ctx, r.db, key)
	if err != nil {
		r.log.Error("dedup probe failed",
			zap.String("key", key.String()), zap.Error(err))
		out.Result.Errors = append(out.Result.Errors, err.Error())
		r.finalize(ctx, record, models.IngestFailed, &out.Result)
		return out, nil
	}

	switch decision := Resolve(action, existing); {
	case decision.Skipped:
		r.log.Info("snapshot already ingested, skipping",
			zap.String("key", key.String()),
			zap.Int("existing", existing.Count))
		out.Skipped = true
		out.Duplicate = true
		out.Success = true
		r.finalize(ctx, record, models.IngestSkipped, &out.Result)
		return out, nil

	case decision.Warning != nil:
		sample, sampleErr := repositories.SampleEntriesForSnapshot(ctx, r.db, key.Date, key.ChartType, key.ChartPeriod, key.Region, key.Platform, warningSampleSize)
		if sampleErr == nil {
			decision.Warning.Sample = sample
		}
		out.Duplicate = true
		out.Existing = decision.Warning
		r.finalize(ctx, record, models.IngestSkipped, &out.Result)
		return out, nil
	}

	result, recErr := r.Reconcile(ctx, parsed.Rows, key, action, class)
	out.Result = *result
	out.RecordsProcessed = result.EntriesWritten()

	status := result.Status(len(parsed.Rows))
	if len(parsed.Rows) == 0 && len(parsed.Warnings) > 0 {
		// The source parsed but every row was rejected: nothing written
		// is not a clean run.
		status = models.IngestFailed
		out.Result.Errors = append(out.Result.Errors, "no usable rows in source")
	}
	if recErr != nil {
		status = models.IngestFailed
		out.Result.Errors = append(out.Result.Errors, recErr.Error())
	}
	out.Success = status == models.IngestSuccess || status == models.IngestPartial

	record.Created = result.EntriesCreated
	record.Updated = result.EntriesUpdated
	record.Skipped = len(result.Errors)
	r.finalize(ctx, record, status, &out.Result)
	return out, nil
}

func (r *Reconciler) finalize(ctx context.Context, record *models.IngestionRecord, status models.IngestStatus, result *Result) {
	now := time.Now()
	record.Status = status
	record.FinishedAt = &now
	record.ErrorLog = result.ErrorLog()
	if err := repositories.UpdateIngestionRecord(ctx, r.db, record); err != nil {
		r.log.Error("failed to finalize ingestion record",
			zap.String("run_id", record.RunID), zap.Error(err))
	}
}

// Reconcile is the upsert engine: per row it resolves artist and track
// identities, computes derived fields from stored history, and writes the
// entry keyed by the natural key. Row failures are collected and never
// abort the batch; store failures do, with whatever was written retained.
func (r *Reconciler) Reconcile(ctx context.Context, rows []CanonicalRow, key SnapshotKey, action Action, class models.EntrySource) (*Result, error) {
	result := &Result{Errors: []string{}}
	st := newRunState()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := r.processRow(ctx, st, key, row, class, result)
		if err == nil {
			continue
		}

		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			result.Errors = append(result.Errors, resErr.Error())
			r.log.Warn("row resolution failed",
				zap.String("key", key.String()),
				zap.Int("position", resErr.Position),
				zap.Error(resErr.Err))
			continue
		}
		// Store failure: abort the snapshot, keep what was written.
		return result, fmt.Errorf("reconcile %s: %w", key, err)
	}

	if action == ActionReplace {
		deleted, err := repositories.DeleteStaleEntries(ctx, r.db, key.Date, key.ChartType, key.ChartPeriod, key.Region, key.Platform, st.keptTrackIDs)
		if err != nil {
			return result, fmt.Errorf("delete stale entries for %s: %w", key, err)
		}
		if deleted > 0 {
			r.log.Info("replaced snapshot dropped stale entries",
				zap.String("key", key.String()), zap.Int("deleted", deleted))
		}
	}

	return result, nil
}

func (r *Reconciler) processRow(ctx context.Context, st *runState, key SnapshotKey, row CanonicalRow, class models.EntrySource, result *Result) error {
	if err := row.Validate(); err != nil {
		return &ResolutionError{Position: row.Position, TrackName: row.TrackName, Err: err}
	}

	artist, err := r.resolveArtist(ctx, st, row, result)
	if err != nil {
		return err
	}

	track, err := r.resolveTrack(ctx, st, row, artist, result)
	if err != nil {
		return err
	}
	st.keptTrackIDs = append(st.keptTrackIDs, track.ID)

	return r.upsertEntry(ctx, key, row, track, class, result)
}

// resolveArtist matches by external id, then case-insensitive name, then
// creates. Multi-artist rows resolve to the primary (first listed) artist.
func (r *Reconciler) resolveArtist(ctx context.Context, st *runState, row CanonicalRow, result *Result) (*models.Artist, error) {
	name := row.PrimaryArtist()
	nameKey := strings.ToLower(name)

	if row.ArtistExternalID != nil {
		if cached, ok := st.artistsByExt[*row.ArtistExternalID]; ok {
			return cached, nil
		}
		artist, err := repositories.FindArtistByExternalID(ctx, r.db, *row.ArtistExternalID)
		if err != nil {
			return nil, err
		}
		if artist != nil {
			st.artistsByExt[*row.ArtistExternalID] = artist
			st.artistsByName[strings.ToLower(artist.Name)] = artist
			return artist, nil
		}
	}

	if cached, ok := st.artistsByName[nameKey]; ok {
		return cached, nil
	}

	artist, err := repositories.FindArtistByName(ctx, r.db, name)
	if err != nil {
		return nil, err
	}
	if artist != nil {
		// A row can teach us the catalog id of a name-matched artist.
		if row.ArtistExternalID != nil && !artist.HasExternalID() {
			artist.ExternalID = row.ArtistExternalID
			if err := repositories.UpdateArtist(ctx, r.db, artist); err != nil {
				return nil, err
			}
			result.ArtistsUpdated++
		}
	} else {
		artist = &models.Artist{Name: name, ExternalID: row.ArtistExternalID}
		if err := repositories.InsertArtist(ctx, r.db, artist); err != nil {
			return nil, &ResolutionError{Position: row.Position, TrackName: row.TrackName, Err: fmt.Errorf("create artist %q: %w", name, err)}
		}
		result.ArtistsCreated++
		if r.OnArtistCreated != nil {
			r.OnArtistCreated(artist)
		}
	}

	st.artistsByName[nameKey] = artist
	if artist.HasExternalID() {
		st.artistsByExt[*artist.ExternalID] = artist
	}
	return artist, nil
}

// resolveTrack matches by external id, then (name, artist), then creates
// under the resolved artist.
func (r *Reconciler) resolveTrack(ctx context.Context, st *runState, row CanonicalRow, artist *models.Artist, result *Result) (*models.Track, error) {
	trackName := strings.TrimSpace(row.TrackName)
	nameKey := fmt.Sprintf("%d|%s", artist.ID, strings.ToLower(trackName))

	if row.TrackExternalID != nil {
		if cached, ok := st.tracksByExt[*row.TrackExternalID]; ok {
			return cached, nil
		}
		track, err := repositories.FindTrackByExternalID(ctx, r.db, *row.TrackExternalID)
		if err != nil {
			return nil, err
		}
		if track != nil {
			st.tracksByExt[*row.TrackExternalID] = track
			return track, nil
		}
	}

	if cached, ok := st.tracksByName[nameKey]; ok {
		return cached, nil
	}

	track, err := repositories.FindTrackByNameAndArtist(ctx, r.db, trackName, artist.ID)
	if err != nil {
		return nil, err
	}
	if track != nil {
		if row.TrackExternalID != nil && !track.HasExternalID() {
			track.ExternalID = row.TrackExternalID
			track.ExternalURI = row.TrackExternalURI
			if err := repositories.UpdateTrack(ctx, r.db, track); err != nil {
				return nil, err
			}
			result.TracksUpdated++
		}
	} else {
		track = &models.Track{
			ArtistID:    artist.ID,
			Name:        trackName,
			ExternalID:  row.TrackExternalID,
			ExternalURI: row.TrackExternalURI,
		}
		if err := repositories.InsertTrack(ctx, r.db, track); err != nil {
			return nil, &ResolutionError{Position: row.Position, TrackName: row.TrackName, Err: fmt.Errorf("create track: %w", err)}
		}
		result.TracksCreated++
	}

	st.tracksByName[nameKey] = track
	if track.HasExternalID() {
		st.tracksByExt[*track.ExternalID] = track
	}
	return track, nil
}

// upsertEntry computes derived fields from the latest stored entry before
// the snapshot date and writes the entry in place under the natural key.
func (r *Reconciler) upsertEntry(ctx context.Context, key SnapshotKey, row CanonicalRow, track *models.Track, class models.EntrySource, result *Result) error {
	prior, err := repositories.LatestEntryBefore(ctx, r.db, key.Date, key.ChartType, key.ChartPeriod, key.Region, track.ID, key.Platform)
	if err != nil {
		return err
	}

	var previousRank *int
	peak := row.Position
	days := 1
	if prior != nil {
		p := prior.Position
		previousRank = &p
		if prior.PeakRank < peak {
			peak = prior.PeakRank
		}
		// Increments from the immediately preceding dated entry whether or
		// not the track had a gap; see the days-on-chart policy note.
		days = prior.DaysOnChart + 1
	} else if row.PeakRank != nil && *row.PeakRank < peak {
		// No stored history: a source-provided peak can reach further back
		// than our data does.
		peak = *row.PeakRank
	}

	existing, err := repositories.FindEntryByNaturalKey(ctx, r.db, key.Date, key.ChartType, key.ChartPeriod, key.Region, track.ID, key.Platform)
	if err != nil {
		return err
	}

	if existing == nil {
		entry := &models.ChartEntry{
			TrackID:      track.ID,
			ChartDate:    key.Date,
			ChartType:    key.ChartType,
			ChartPeriod:  key.ChartPeriod,
			Region:       key.Region,
			Platform:     key.Platform,
			Position:     row.Position,
			PreviousRank: previousRank,
			PeakRank:     peak,
			DaysOnChart:  days,
			Streams:      row.Streams,
			Source:       class,
		}
		if err := repositories.InsertEntry(ctx, r.db, entry); err != nil {
			return &ResolutionError{Position: row.Position, TrackName: row.TrackName, Err: err}
		}
		result.EntriesCreated++
		return nil
	}

	existing.Position = row.Position
	existing.PreviousRank = previousRank
	existing.PeakRank = peak
	existing.DaysOnChart = days
	existing.Streams = row.Streams
	existing.Source = class
	if err := repositories.UpdateEntry(ctx, r.db, existing); err != nil {
		return &ResolutionError{Position: row.Position, TrackName: row.TrackName, Err: err}
	}
	result.EntriesUpdated++
	return nil
}
