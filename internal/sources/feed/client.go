package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/chartwatch/ingestor/internal/ingest"
	"github.com/chartwatch/ingestor/internal/ratelimit"
)

const defaultBaseURL = "https://charts-spotify-com-service.spotify.com/public/v0"

var baseURL = defaultBaseURL

// Client fetches chart documents from the remote feed. The limiter paces
// requests; callers own retry decisions.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	apiKey     string
	log        *zap.Logger
}

// NewClient creates a feed client.
func NewClient(limiter ratelimit.Limiter, apiKey string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		apiKey:     apiKey,
		log:        log,
	}
}

// FetchCharts pulls the document for a snapshot key and parses its chart
// views. Implements the orchestrator's Fetcher contract.
func (c *Client) FetchCharts(ctx context.Context, key ingest.SnapshotKey) ([]ingest.ParseResult, error) {
	doc, err := c.fetchDocument(ctx, key)
	if err != nil {
		return nil, err
	}
	return ParseDocument(doc, key.Platform)
}

func (c *Client) fetchDocument(ctx context.Context, key ingest.SnapshotKey) (*Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", string(key.ChartType))
	params.Set("period", string(key.ChartPeriod))
	params.Set("region", key.RegionLabel())
	params.Set("date", string(key.Date))

	u := fmt.Sprintf("%s/charts?%s", baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrRemoteFetch, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ingest.ErrRemoteFetch, resp.StatusCode, string(body))
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ingest.ErrMalformedInput, err)
	}

	c.log.Debug("fetched chart document",
		zap.String("key", key.String()),
		zap.Int("views", len(doc.Charts)),
		zap.Duration("took", time.Since(start)))
	return &doc, nil
}
