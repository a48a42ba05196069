package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chartwatch/ingestor/internal/ingest"
	"github.com/chartwatch/ingestor/internal/models"
)

// columns is the resolved header layout of one tabular file. Rank, track
// and artist columns are mandatory; the rest are optional.
type columns struct {
	rank     int
	track    int
	uri      int
	artists  int
	streams  int
	prevRank int
	peakRank int
}

// header aliases accepted per column.
var (
	rankHeaders    = []string{"rank", "position"}
	trackHeaders   = []string{"track_name", "track", "title"}
	uriHeaders     = []string{"uri", "track_uri", "track_id"}
	artistHeaders  = []string{"artist_names", "artists", "artist"}
	streamsHeaders = []string{"streams", "stream_count"}
	prevHeaders    = []string{"previous_rank", "prev_rank"}
	peakHeaders    = []string{"peak_rank", "peak"}
)

// ParseFile applies the filename contract and then parses the content.
// Its signature matches what the orchestrator expects from a file parser.
func ParseFile(filename string, raw []byte) (*ingest.ParseResult, error) {
	key, err := ParseFilename(filename)
	if err != nil {
		return nil, err
	}
	return Parse(raw, key)
}

// Parse converts header-delimited tabular text into canonical rows. A
// header that does not match the column contract aborts the parse; a bad
// data row is recorded as a warning and skipped, never fatal.
func Parse(raw []byte, key ingest.SnapshotKey) (*ingest.ParseResult, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true

	headerRow, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read header: %v", ingest.ErrMalformedInput, err)
	}

	cols, err := resolveColumns(headerRow)
	if err != nil {
		return nil, err
	}

	result := &ingest.ParseResult{Key: key}
	line := 1
	for {
		line++
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		row, rowErr := mapRecord(record, cols)
		if rowErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: %v", line, rowErr))
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	if len(result.Rows) == 0 && len(result.Warnings) == 0 {
		return nil, fmt.Errorf("%w: file has a header but no data rows", ingest.ErrEmptyResult)
	}
	return result, nil
}

func resolveColumns(headerRow []string) (columns, error) {
	index := make(map[string]int, len(headerRow))
	for i, h := range headerRow {
		index[normalizeHeader(h)] = i
	}

	find := func(aliases []string) int {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				return i
			}
		}
		return -1
	}

	cols := columns{
		rank:     find(rankHeaders),
		track:    find(trackHeaders),
		uri:      find(uriHeaders),
		artists:  find(artistHeaders),
		streams:  find(streamsHeaders),
		prevRank: find(prevHeaders),
		peakRank: find(peakHeaders),
	}
	if cols.rank < 0 || cols.track < 0 || cols.artists < 0 {
		return columns{}, fmt.Errorf("%w: header %v lacks rank/track/artist columns", ingest.ErrMalformedInput, headerRow)
	}
	return cols, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(h, " ", "_")
}

func mapRecord(record []string, cols columns) (ingest.CanonicalRow, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rank, err := strconv.Atoi(field(cols.rank))
	if err != nil || rank <= 0 {
		return ingest.CanonicalRow{}, fmt.Errorf("rank %q is not a positive integer", field(cols.rank))
	}

	trackName := field(cols.track)
	if trackName == "" {
		return ingest.CanonicalRow{}, errors.New("track name is empty")
	}

	artists := splitArtists(field(cols.artists))
	if len(artists) == 0 {
		return ingest.CanonicalRow{}, errors.New("artist names are empty")
	}

	streams, err := models.ParseStreamCount(field(cols.streams))
	if err != nil {
		return ingest.CanonicalRow{}, err
	}

	row := ingest.CanonicalRow{
		Position:    rank,
		TrackName:   trackName,
		ArtistNames: artists,
		Streams:     streams,
	}

	if uri := field(cols.uri); uri != "" {
		row.TrackExternalURI = &uri
		if id := trackIDFromURI(uri); id != "" {
			row.TrackExternalID = &id
		}
	}
	if v := field(cols.prevRank); v != "" {
		prev, err := strconv.Atoi(v)
		if err != nil || prev <= 0 {
			return ingest.CanonicalRow{}, fmt.Errorf("previous rank %q is not a positive integer", v)
		}
		row.PreviousRank = &prev
	}
	if v := field(cols.peakRank); v != "" {
		peak, err := strconv.Atoi(v)
		if err != nil || peak <= 0 {
			return ingest.CanonicalRow{}, fmt.Errorf("peak rank %q is not a positive integer", v)
		}
		row.PeakRank = &peak
	}
	return row, nil
}

func splitArtists(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// trackIDFromURI extracts the catalog id from a spotify:track:<id> URI.
func trackIDFromURI(uri string) string {
	parts := strings.Split(uri, ":")
	if len(parts) == 3 && parts[1] == "track" {
		return parts[2]
	}
	return ""
}
