package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"property-feeds/api"
	"property-feeds/cache"
	"property-feeds/config"
	"property-feeds/models"
	"property-feeds/scraper/feed"
	"property-feeds/services"
	"property-feeds/storage"
	"property-feeds/utils"
)

func main() {
	cfg := config.Load()

	once := flag.Bool("once", false, "Run a single refresh, print insights and exit")
	export := flag.Bool("export", false, "Run a single refresh and write the unified collection to CSV")
	out := flag.String("out", cfg.CSVOutputPath, "CSV path for -export. Env: CSV_OUTPUT_PATH")
	report := flag.Bool("report", false, "Print insights from the Postgres archive and exit")
	flag.Parse()

	logger := utils.NewLoggerLevel(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Property feed engine starting ===")
	logger.Info("Config: providers %s | revalidate: %v | ttl: %v | rate: %dms",
		cfg.ProvidersFile, cfg.RevalidateInterval, cfg.CacheTTL, cfg.RateLimitMs)

	var err error
	switch {
	case *report:
		err = runReport(ctx, cfg, logger)
	case *export:
		err = runOnce(ctx, cfg, logger, *out)
	case *once:
		err = runOnce(ctx, cfg, logger, "")
	default:
		err = serve(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

// buildCache wires fetchers, the aggregation pipeline and the optional
// Postgres archive into a cache. The returned closer releases the archive.
func buildCache(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*cache.Cache, func(), error) {
	providers, err := config.LoadProviders(cfg.ProvidersFile)
	if err != nil {
		return nil, nil, err
	}

	opts := feed.Options{
		UserAgent:      cfg.UserAgent,
		MaxAttempts:    cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		ChromeBin:      cfg.ChromeBin,
	}
	fetchers := make([]feed.Fetcher, 0, len(providers))
	for _, p := range providers {
		f, err := feed.New(p, opts, logger)
		if err != nil {
			return nil, nil, err
		}
		fetchers = append(fetchers, f)
		logger.Info("[main] provider %s: %s via %s (%s)", p.Name, p.Format, p.Transport, p.Endpoint)
	}

	region, ok := models.ParseRegion(cfg.DefaultRegion)
	if !ok {
		logger.Warn("[main] unknown DEFAULT_REGION %q, using %s", cfg.DefaultRegion, models.RegionSouth)
		region = models.RegionSouth
	}

	aggregator := services.NewAggregator(fetchers, services.AggregatorOptions{
		RateLimitMs:    cfg.RateLimitMs,
		OverallTimeout: cfg.OverallTimeout,
	}, services.NewEnricher(region, logger), logger)

	cacheOpts := cache.Options{
		TTL:                cfg.CacheTTL,
		RevalidateInterval: cfg.RevalidateInterval,
	}
	closer := func() {}
	if cfg.ArchiveEnabled() {
		pg, err := storage.NewPostgresWriter(ctx, cfg.DSN())
		if err != nil {
			logger.Warn("[main] archive disabled, PostgreSQL unavailable: %v", err)
		} else {
			cacheOpts.Sink = pg
			closer = func() { _ = pg.Close() }
			logger.Info("[main] archiving snapshots to PostgreSQL (table: properties)")
		}
	}

	return cache.New(aggregator, cacheOpts, logger), closer, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	c, closeArchive, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeArchive()

	// A failed first refresh still starts the server; reads answer 503
	// until a later refresh succeeds.
	if err := c.Refresh(ctx); err != nil {
		logger.Error("[main] initial refresh: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHandler(c, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("[main] listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return c.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("[main] shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runOnce(ctx context.Context, cfg *config.Config, logger *utils.Logger, exportPath string) error {
	c, closeArchive, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeArchive()

	if err := c.Refresh(ctx); err != nil {
		return err
	}
	snap, err := c.Get(ctx)
	if err != nil {
		return err
	}

	for _, st := range snap.Providers {
		if st.OK {
			logger.Info("[main] %s: %d records", st.Name, st.Records)
		} else {
			logger.Warn("[main] %s failed: %s", st.Name, st.Error)
		}
	}

	if exportPath != "" {
		w, err := storage.NewCSVWriter(exportPath)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Write(ctx, snap.All()); err != nil {
			return err
		}
		logger.Info("[main] %d properties saved to %s", len(snap.All()), exportPath)
	}

	insights := services.NewInsightService(logger)
	insights.Print(insights.Generate(snap.All()))

	fmt.Printf("  Done. Snapshot %s | %d properties\n\n", snap.ID, len(snap.All()))
	return nil
}

func runReport(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	if !cfg.ArchiveEnabled() {
		return errors.New("-report needs POSTGRES_HOST to be set")
	}
	pg, err := storage.NewPostgresWriter(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer pg.Close()

	props, err := pg.FetchAll(ctx)
	if err != nil {
		return err
	}
	logger.Info("[main] %d archived properties loaded", len(props))

	insights := services.NewInsightService(logger)
	insights.Print(insights.Generate(props))
	return nil
}
