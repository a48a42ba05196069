package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/repositories"
)

// ArtistMetadata is the supplementary payload an enrichment source can
// provide for an artist.
type ArtistMetadata struct {
	ImageURL   *string
	Genres     models.StringArray
	Popularity *int
}

// MetadataSource fetches supplementary artist metadata.
type MetadataSource interface {
	ArtistMetadata(ctx context.Context, name string, externalID *string) (*ArtistMetadata, error)
}

type enrichJob struct {
	artistID   int64
	name       string
	externalID *string
}

// Enricher runs best-effort artist metadata fills on a detached worker.
// Enqueue never blocks the ingestion path: a full queue drops the job,
// and failures are logged, never surfaced to the caller.
type Enricher struct {
	db      *bun.DB
	source  MetadataSource
	log     *zap.Logger
	jobs    chan enrichJob
	once    sync.Once
	done    chan struct{}
	timeout time.Duration
}

// NewEnricher starts the worker goroutine.
func NewEnricher(db *bun.DB, source MetadataSource, log *zap.Logger) *Enricher {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Enricher{
		db:      db,
		source:  source,
		log:     log,
		jobs:    make(chan enrichJob, 64),
		done:    make(chan struct{}),
		timeout: 15 * time.Second,
	}
	go e.run()
	return e
}

// Enqueue hands an artist to the worker. Returns false if the queue was
// full and the job was dropped.
func (e *Enricher) Enqueue(artistID int64, name string, externalID *string) bool {
	select {
	case e.jobs <- enrichJob{artistID: artistID, name: name, externalID: externalID}:
		return true
	default:
		e.log.Debug("enrichment queue full, dropping job", zap.String("artist", name))
		return false
	}
}

// Close drains outstanding jobs and stops the worker.
func (e *Enricher) Close() {
	e.once.Do(func() {
		close(e.jobs)
		<-e.done
	})
}

func (e *Enricher) run() {
	defer close(e.done)
	for job := range e.jobs {
		e.process(job)
	}
}

func (e *Enricher) process(job enrichJob) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	meta, err := e.source.ArtistMetadata(ctx, job.name, job.externalID)
	if err != nil {
		e.log.Warn("artist enrichment failed",
			zap.String("artist", job.name), zap.Error(err))
		return
	}
	if meta == nil {
		return
	}

	if err := repositories.UpdateArtistMetadata(ctx, e.db, job.artistID, meta.ImageURL, meta.Genres, meta.Popularity); err != nil {
		e.log.Warn("artist enrichment write failed",
			zap.String("artist", job.name), zap.Error(err))
	}
}
