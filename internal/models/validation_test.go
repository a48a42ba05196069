package models

import (
	"testing"
	"time"
)

func TestChartEntryValidate(t *testing.T) {
	entry := ChartEntry{
		TrackID:     1,
		ChartDate:   "2025-06-01",
		ChartType:   ChartRegional,
		ChartPeriod: PeriodDaily,
		Platform:    PlatformSpotify,
		Position:    3,
		PeakRank:    2,
		DaysOnChart: 4,
	}
	if err := entry.Validate(); err != nil {
		t.Fatalf("expected valid entry, got %v", err)
	}

	bad := entry
	bad.Position = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for non-positive position")
	}

	bad = entry
	bad.PeakRank = 5
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for peak worse than position")
	}

	bad = entry
	empty := ""
	bad.Region = &empty
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for empty region string")
	}

	bad = entry
	bad.ChartDate = "06/01/2025"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestChartDateOrdering(t *testing.T) {
	d, err := ParseChartDate("2025-06-09")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if d.AddDays(1) != "2025-06-10" {
		t.Fatalf("unexpected next day: %s", d.AddDays(1))
	}
	if !(d < d.AddDays(1)) {
		t.Fatalf("expected lexicographic order to match chronology")
	}
	if _, err := ParseChartDate("2025-13-01"); err == nil {
		t.Fatalf("expected error for impossible month")
	}
}

func TestStreamCountRoundTrip(t *testing.T) {
	sc, err := ParseStreamCount("18446744073709551615")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	v, err := sc.Value()
	if err != nil {
		t.Fatalf("value error: %v", err)
	}
	var out StreamCount
	if err := out.Scan(v); err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if !out.Valid || out.Count != sc.Count {
		t.Fatalf("round trip lost precision: %+v", out)
	}

	if _, err := ParseStreamCount("18446744073709551616"); err == nil {
		t.Fatalf("expected overflow error beyond uint64")
	}

	absent, err := ParseStreamCount("")
	if err != nil || absent.Valid {
		t.Fatalf("expected absent count, got %+v %v", absent, err)
	}
}

func TestChartConfigScheduling(t *testing.T) {
	cfg := ChartConfig{
		ChartType:   ChartViral,
		ChartPeriod: PeriodDaily,
		Enabled:     true,
		Interval:    24 * time.Hour,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	if !cfg.Due(now) {
		t.Fatalf("expected config with no next_run to be due")
	}

	cfg.MarkRun(now)
	if cfg.Due(now) {
		t.Fatalf("expected config to be off-duty right after a run")
	}
	if !cfg.Due(now.Add(25 * time.Hour)) {
		t.Fatalf("expected config due after interval elapsed")
	}

	cfg.Enabled = false
	if cfg.Due(now.Add(48 * time.Hour)) {
		t.Fatalf("disabled config must never be due")
	}
}
