package scoring

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/repositories"
)

// TrackReport is the reporting view of one track on one chart variant.
type TrackReport struct {
	TrackID     int64     `json:"track_id"`
	Score       float64   `json:"score"`
	Breakdown   Breakdown `json:"breakdown"`
	UpwardTrend bool      `json:"upward_trend"`
	Consistency float64   `json:"consistency"`
}

// ArtistReport aggregates track scores to the artist level.
type ArtistReport struct {
	ArtistID int64         `json:"artist_id"`
	Score    float64       `json:"score"`
	Tracks   []TrackReport `json:"tracks"`
}

// Service loads entry history on demand and scores it. Reads happen at
// reporting time, never during ingestion.
type Service struct {
	db    *bun.DB
	cache *MultiplierCache
}

// NewService wires the scorer to its store and multiplier cache.
func NewService(db *bun.DB, cache *MultiplierCache) *Service {
	if cache == nil {
		cache = NewMultiplierCache(nil, 0)
	}
	return &Service{db: db, cache: cache}
}

// TrackReport scores one track's history on one chart variant.
func (s *Service) TrackReport(ctx context.Context, trackID int64, chartType models.ChartType, period models.ChartPeriod, region *string, platform models.Platform) (*TrackReport, error) {
	positions, err := repositories.PositionHistory(ctx, s.db, trackID, chartType, period, region, platform)
	if err != nil {
		return nil, fmt.Errorf("load position history for track %d: %w", trackID, err)
	}

	score, breakdown := LeadScore(positions, s.cache.Get(ctx))
	return &TrackReport{
		TrackID:     trackID,
		Score:       score,
		Breakdown:   breakdown,
		UpwardTrend: HasUpwardTrend(positions),
		Consistency: ConsistencyScore(positions),
	}, nil
}

// ArtistReport scores every track of an artist on one chart variant and
// rolls the scores up.
func (s *Service) ArtistReport(ctx context.Context, artistID int64, chartType models.ChartType, period models.ChartPeriod, region *string, platform models.Platform) (*ArtistReport, error) {
	tracks, err := repositories.TracksForArtist(ctx, s.db, artistID)
	if err != nil {
		return nil, fmt.Errorf("load tracks for artist %d: %w", artistID, err)
	}

	report := &ArtistReport{ArtistID: artistID}
	scores := make([]float64, 0, len(tracks))
	for _, track := range tracks {
		tr, err := s.TrackReport(ctx, track.ID, chartType, period, region, platform)
		if err != nil {
			return nil, err
		}
		if tr.Breakdown.TotalDays == 0 {
			continue
		}
		report.Tracks = append(report.Tracks, *tr)
		scores = append(scores, tr.Score)
	}
	report.Score = ArtistLeadScore(scores)
	return report, nil
}
