package feed

import (
	"fmt"
	"strings"

	"github.com/chartwatch/ingestor/internal/ingest"
	"github.com/chartwatch/ingestor/internal/models"
)

// ParseDocument converts a feed document into one parse result per chart
// view. The alias classifies the view: substring VIRAL means viral else
// regional, WEEKLY means weekly else daily. Views without entries are
// surfaced as warnings; a document yielding nothing at all is an empty
// result error.
func ParseDocument(doc *Document, platform models.Platform) ([]ingest.ParseResult, error) {
	if doc == nil || len(doc.Charts) == 0 {
		return nil, fmt.Errorf("%w: document has no chart views", ingest.ErrEmptyResult)
	}

	results := make([]ingest.ParseResult, 0, len(doc.Charts))
	for _, view := range doc.Charts {
		result, err := parseView(view, platform)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		results = append(results, *result)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no chart view carries entries", ingest.ErrEmptyResult)
	}
	return results, nil
}

func parseView(view ChartView, platform models.Platform) (*ingest.ParseResult, error) {
	if len(view.Entries) == 0 {
		return nil, nil
	}

	date, err := models.ParseChartDate(view.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: chart view date: %v", ingest.ErrMalformedInput, err)
	}

	alias := strings.ToUpper(view.Alias)
	chartType := models.ChartRegional
	if strings.Contains(alias, "VIRAL") {
		chartType = models.ChartViral
	}
	period := models.PeriodDaily
	if strings.Contains(alias, "WEEKLY") {
		period = models.PeriodWeekly
	}

	var region *string
	if r := strings.ToLower(strings.TrimSpace(view.Region)); r != "" && r != "global" {
		region = &r
	}

	result := &ingest.ParseResult{
		Key: ingest.SnapshotKey{
			Date:        date,
			ChartType:   chartType,
			ChartPeriod: period,
			Region:      region,
			Platform:    platform,
		},
	}

	for i, entry := range view.Entries {
		row, rowErr := parseEntry(entry)
		if rowErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %d: %v", i+1, rowErr))
			continue
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func parseEntry(entry ViewEntry) (ingest.CanonicalRow, error) {
	if entry.CurrentRank <= 0 {
		return ingest.CanonicalRow{}, fmt.Errorf("current rank %d is not positive", entry.CurrentRank)
	}
	if entry.Track.Name == "" {
		return ingest.CanonicalRow{}, fmt.Errorf("entry carries no track name")
	}

	artists := make([]string, 0, len(entry.Track.Artists))
	var artistExternalID *string
	for i, artist := range entry.Track.Artists {
		name := strings.TrimSpace(artist.Name)
		if name == "" {
			continue
		}
		artists = append(artists, name)
		if i == 0 {
			if id := idFromURI(artist.URI, "artist"); id != "" {
				artistExternalID = &id
			}
		}
	}
	if len(artists) == 0 {
		return ingest.CanonicalRow{}, fmt.Errorf("entry carries no artist names")
	}

	streams, err := models.ParseStreamCount(entry.Streams)
	if err != nil {
		return ingest.CanonicalRow{}, err
	}

	row := ingest.CanonicalRow{
		Position:         entry.CurrentRank,
		TrackName:        strings.TrimSpace(entry.Track.Name),
		ArtistNames:      artists,
		ArtistExternalID: artistExternalID,
		Streams:          streams,
	}
	if entry.PreviousRank > 0 {
		prev := entry.PreviousRank
		row.PreviousRank = &prev
	}
	if entry.PeakRank > 0 {
		peak := entry.PeakRank
		row.PeakRank = &peak
	}
	if entry.Track.URI != "" {
		uri := entry.Track.URI
		row.TrackExternalURI = &uri
		if id := idFromURI(uri, "track"); id != "" {
			row.TrackExternalID = &id
		}
	}
	return row, nil
}

// idFromURI extracts the catalog id from a spotify:<kind>:<id> URI.
func idFromURI(uri, kind string) string {
	parts := strings.Split(uri, ":")
	if len(parts) == 3 && parts[1] == kind {
		return parts[2]
	}
	return ""
}
