package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/chartwatch/ingestor/internal/config"
	"github.com/chartwatch/ingestor/internal/database"
	"github.com/chartwatch/ingestor/internal/ingest"
	"github.com/chartwatch/ingestor/internal/migrations"
	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/ratelimit"
	"github.com/chartwatch/ingestor/internal/repositories"
	"github.com/chartwatch/ingestor/internal/scoring"
	"github.com/chartwatch/ingestor/internal/sources/csvfile"
	"github.com/chartwatch/ingestor/internal/sources/feed"
)

func main() {
	configPath := flag.String("config", "config.yaml", "settings file")
	budget := flag.Duration("budget", 30*time.Minute, "wall-clock budget for batch commands")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(flag.Args(), *configPath, *budget, log); err != nil {
		log.Fatal("command failed", zap.Error(err))
	}
}

func run(args []string, configPath string, budget time.Duration, log *zap.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ingestor [flags] migrate|seed-jobs|ingest|backfill|run|score")
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	rec := ingest.NewReconciler(db, log)
	limiter := ratelimit.NewLimiter(cfg.RateLimit("feed"))
	orch := ingest.NewOrchestrator(db, rec, ingest.OrchestratorConfig{
		Fetcher:        feed.NewClient(limiter, cfg.Feed.APIKey, log),
		ParseFile:      csvfile.ParseFile,
		Limiter:        limiter,
		DefaultActions: cfg.DedupDefaults(),
	}, log)

	switch args[0] {
	case "migrate":
		return migrations.RunMigrations(ctx, db)

	case "seed-jobs":
		jobs, err := cfg.ChartConfigs()
		if err != nil {
			return err
		}
		for _, job := range jobs {
			if err := repositories.SaveChartConfig(ctx, db, job); err != nil {
				return err
			}
		}
		log.Info("seeded recurring jobs", zap.Int("count", len(jobs)))
		return nil

	case "ingest":
		if len(args) < 2 {
			return fmt.Errorf("usage: ingestor ingest <file>...")
		}
		var files []ingest.UploadFile
		for _, path := range args[1:] {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			files = append(files, ingest.UploadFile{Name: path, Data: data})
		}
		batch := orch.IngestFiles(ctx, files, nil)
		report(log, batch)
		return nil

	case "backfill":
		if len(args) != 6 {
			return fmt.Errorf("usage: ingestor backfill <type> <region> <period> <from> <to>")
		}
		from, err := models.ParseChartDate(args[4])
		if err != nil {
			return err
		}
		to, err := models.ParseChartDate(args[5])
		if err != nil {
			return err
		}
		key := ingest.SnapshotKey{
			ChartType:   models.ChartType(args[1]),
			ChartPeriod: models.ChartPeriod(args[3]),
			Platform:    models.PlatformSpotify,
		}
		if region := args[2]; region != "global" {
			key.Region = &region
		}
		batch, err := orch.Backfill(ctx, key, from, to)
		if err != nil {
			return err
		}
		report(log, batch)
		return nil

	case "run":
		batch, err := orch.RunDue(ctx, time.Now())
		if err != nil {
			return err
		}
		report(log, batch)
		return nil

	case "score":
		if len(args) != 6 {
			return fmt.Errorf("usage: ingestor score track|artist <id> <type> <region> <period>")
		}
		var id int64
		if _, err := fmt.Sscan(args[2], &id); err != nil {
			return fmt.Errorf("invalid id %q", args[2])
		}
		chartType := models.ChartType(args[3])
		period := models.ChartPeriod(args[5])
		var region *string
		if r := args[4]; r != "global" {
			region = &r
		}

		cache := scoring.NewMultiplierCache(cfg.MultiplierSource(), cfg.Scoring.CacheTTL.Std())
		svc := scoring.NewService(db, cache)

		switch args[1] {
		case "track":
			tr, err := svc.TrackReport(ctx, id, chartType, period, region, models.PlatformSpotify)
			if err != nil {
				return err
			}
			log.Info("track score",
				zap.Int64("track", tr.TrackID),
				zap.Float64("score", tr.Score),
				zap.Int("days_on_chart", tr.Breakdown.TotalDays),
				zap.Int("best_position", tr.Breakdown.BestPosition),
				zap.Bool("upward_trend", tr.UpwardTrend),
				zap.Float64("consistency", tr.Consistency))
			return nil
		case "artist":
			ar, err := svc.ArtistReport(ctx, id, chartType, period, region, models.PlatformSpotify)
			if err != nil {
				return err
			}
			log.Info("artist score",
				zap.Int64("artist", ar.ArtistID),
				zap.Float64("score", ar.Score),
				zap.Int("charted_tracks", len(ar.Tracks)))
			return nil
		}
		return fmt.Errorf("unknown score subject %q", args[1])
	}

	return fmt.Errorf("unknown command %q", args[0])
}

func report(log *zap.Logger, batch *ingest.BatchResult) {
	for _, item := range batch.Items {
		log.Info("snapshot processed",
			zap.String("source", item.SourceID),
			zap.Bool("success", item.Success),
			zap.Bool("skipped", item.Skipped),
			zap.Int("records", item.RecordsProcessed),
			zap.Int("errors", len(item.Result.Errors)))
	}
	if len(batch.Unprocessed) > 0 {
		log.Warn("dates left unprocessed, re-run to resume",
			zap.Int("count", len(batch.Unprocessed)),
			zap.String("first", string(batch.Unprocessed[0])))
	}
}
