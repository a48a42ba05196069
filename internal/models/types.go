package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ChartType distinguishes the two ranked-list families.
type ChartType string

const (
	ChartRegional ChartType = "regional"
	ChartViral    ChartType = "viral"
)

// ChartPeriod is the snapshot cadence.
type ChartPeriod string

const (
	PeriodDaily  ChartPeriod = "daily"
	PeriodWeekly ChartPeriod = "weekly"
)

// Platform identifies the source platform a chart was published on.
type Platform string

const (
	PlatformSpotify Platform = "spotify"
	PlatformApple   Platform = "apple"
)

// EntrySource tags which ingestion path produced an entry.
type EntrySource string

const (
	SourceManualUpload   EntrySource = "manual_upload"
	SourceScheduledFetch EntrySource = "scheduled_fetch"
	SourcePlaylist       EntrySource = "playlist"
)

// IngestStatus is the lifecycle state of one ingestion run.
type IngestStatus string

const (
	IngestRunning IngestStatus = "running"
	IngestSuccess IngestStatus = "success"
	IngestPartial IngestStatus = "partial"
	IngestFailed  IngestStatus = "failed"
	IngestSkipped IngestStatus = "skipped"
)

// ChartDate is a calendar date in ISO YYYY-MM-DD form. Lexicographic
// comparison of valid values matches chronological order, which the
// history queries rely on.
type ChartDate string

const chartDateLayout = "2006-01-02"

// NewChartDate truncates a time to its calendar date.
func NewChartDate(t time.Time) ChartDate {
	return ChartDate(t.Format(chartDateLayout))
}

// ParseChartDate validates and normalizes an ISO date string.
func ParseChartDate(s string) (ChartDate, error) {
	t, err := time.Parse(chartDateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid chart date %q: %w", s, err)
	}
	return NewChartDate(t), nil
}

// Time converts the date back to a UTC midnight time.
func (d ChartDate) Time() (time.Time, error) {
	return time.Parse(chartDateLayout, string(d))
}

// Validate checks the date is well-formed.
func (d ChartDate) Validate() error {
	_, err := time.Parse(chartDateLayout, string(d))
	return err
}

// AddDays returns the date shifted by n calendar days.
func (d ChartDate) AddDays(n int) ChartDate {
	t, err := d.Time()
	if err != nil {
		return d
	}
	return NewChartDate(t.AddDate(0, 0, n))
}

// StreamCount is a nullable stream counter stored as TEXT so the full
// uint64 range survives the database round trip without float precision
// loss. Values beyond uint64 are rejected at parse time, not saturated.
type StreamCount struct {
	Count uint64
	Valid bool
}

// NewStreamCount wraps a known counter value.
func NewStreamCount(n uint64) StreamCount {
	return StreamCount{Count: n, Valid: true}
}

// ParseStreamCount parses a decimal counter; empty input means absent.
func ParseStreamCount(s string) (StreamCount, error) {
	if s == "" {
		return StreamCount{}, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return StreamCount{}, fmt.Errorf("invalid stream count %q: %w", s, err)
	}
	return NewStreamCount(n), nil
}

func (sc StreamCount) Value() (driver.Value, error) {
	if !sc.Valid {
		return nil, nil
	}
	return strconv.FormatUint(sc.Count, 10), nil
}

func (sc *StreamCount) Scan(value interface{}) error {
	if value == nil {
		*sc = StreamCount{}
		return nil
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("negative stream count %d", v)
		}
		*sc = NewStreamCount(uint64(v))
		return nil
	default:
		return errors.New("failed to scan StreamCount")
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*sc = NewStreamCount(n)
	return nil
}

func (sc StreamCount) MarshalJSON() ([]byte, error) {
	if !sc.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(strconv.FormatUint(sc.Count, 10))
}

func (sc *StreamCount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*sc = StreamCount{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// The feed emits counters unquoted; accept bare numbers too.
		var n uint64
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return err
		}
		*sc = NewStreamCount(n)
		return nil
	}
	parsed, err := ParseStreamCount(s)
	if err != nil {
		return err
	}
	*sc = parsed
	return nil
}

// StringArray stores a slice of strings in SQLite as JSON.
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		str, okStr := value.(string)
		if !okStr {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}

	return json.Unmarshal(bytes, s)
}
