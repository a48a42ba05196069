package csvfile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chartwatch/ingestor/internal/ingest"
	"github.com/chartwatch/ingestor/internal/models"
)

// ParseFilename enforces the upload naming contract
// {chartType}-{region}-{chartPeriod}-{YYYY-MM-DD}.{ext} and derives the
// snapshot key before any content is read. The region "global" maps to
// nil, the true absence the store expects.
func ParseFilename(name string) (ingest.SnapshotKey, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if ext == "" {
		return ingest.SnapshotKey{}, fmt.Errorf("%w: filename %q has no extension", ingest.ErrMalformedInput, name)
	}
	stem := strings.TrimSuffix(base, ext)

	// The date itself contains two dashes, so a conforming stem splits
	// into exactly six parts.
	parts := strings.Split(stem, "-")
	if len(parts) != 6 {
		return ingest.SnapshotKey{}, fmt.Errorf("%w: filename %q does not match type-region-period-date", ingest.ErrMalformedInput, name)
	}

	chartType := models.ChartType(parts[0])
	if chartType != models.ChartRegional && chartType != models.ChartViral {
		return ingest.SnapshotKey{}, fmt.Errorf("%w: unknown chart type %q in filename", ingest.ErrMalformedInput, parts[0])
	}

	period := models.ChartPeriod(parts[2])
	if period != models.PeriodDaily && period != models.PeriodWeekly {
		return ingest.SnapshotKey{}, fmt.Errorf("%w: unknown chart period %q in filename", ingest.ErrMalformedInput, parts[2])
	}

	date, err := models.ParseChartDate(strings.Join(parts[3:6], "-"))
	if err != nil {
		return ingest.SnapshotKey{}, fmt.Errorf("%w: %v", ingest.ErrMalformedInput, err)
	}

	var region *string
	if r := strings.ToLower(parts[1]); r != "global" && r != "" {
		region = &r
	}

	return ingest.SnapshotKey{
		Date:        date,
		ChartType:   chartType,
		ChartPeriod: period,
		Region:      region,
		Platform:    models.PlatformSpotify,
	}, nil
}
