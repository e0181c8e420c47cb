package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"car-dashboard/cache"
	"car-dashboard/chart"
	"car-dashboard/config"
	"car-dashboard/http/rest"
	"car-dashboard/models"
	"car-dashboard/services"
	"car-dashboard/snapshot"
	"car-dashboard/storage"
	"car-dashboard/utils"
)

const usage = `usage: car-dashboard [command]

commands:
  serve      run the dashboard HTTP server (default)
  report     print the dashboard summary to the terminal
  export     render every chart and the filtered rows into EXPORT_DIR
  snapshot   screenshot the running dashboard page to SNAPSHOT_PATH
`

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithOptions(cfg.LogDebug, cfg.LogHuman)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	logger = logger.With("cmd", cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg, logger)
	defer app.loader.Close()

	var err error
	switch cmd {
	case "serve":
		err = app.serve(ctx)
	case "report":
		err = app.report(ctx)
	case "export":
		err = app.export(ctx)
	case "snapshot":
		err = snapshot.New(cfg.ChromeBin, cfg.MaxRetries, logger).Capture(ctx, cfg.SnapshotURL, cfg.SnapshotPath)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, storage.ErrDataUnavailable) {
			logger.Error("Data unavailable, nothing rendered: %v", err)
		} else {
			logger.Error("%s failed: %v", cmd, err)
		}
		stop()
		os.Exit(1)
	}
}

type app struct {
	cfg       *config.Config
	logger    *utils.Logger
	loader    *services.Loader
	dashboard *services.DashboardService
}

func newApp(cfg *config.Config, logger *utils.Logger) *app {
	loader := services.NewLoader(logger, storage.Options{
		PostgresTable: cfg.PostgresTable,
		Retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
	})
	dashboard := services.NewDashboardService(logger, services.DashboardConfig{
		HistogramBuckets: cfg.HistogramBuckets,
		ScatterSample:    cfg.ScatterSample,
		TopModels:        cfg.TopModels,
		Defaults: map[models.Field]services.Bound{
			models.FieldModelYear: bound(cfg.DefaultYearMin, cfg.DefaultYearMax),
			models.FieldPrice:     bound(cfg.DefaultPriceMin, cfg.DefaultPriceMax),
		},
	}, nil)
	return &app{cfg: cfg, logger: logger, loader: loader, dashboard: dashboard}
}

// bound turns configured limits into a Bound; zero means unset.
func bound(min, max float64) services.Bound {
	var b services.Bound
	if min != 0 {
		b.Min = &min
	}
	if max != 0 {
		b.Max = &max
	}
	return b
}

func allSections() services.Query {
	return services.Query{Sections: models.Sections{
		Histograms:     true,
		Scatter:        true,
		AvgPriceByType: true,
		TopModels:      true,
		FullView:       true,
	}}
}

func (a *app) serve(ctx context.Context) error {
	respCache, err := cache.New(cache.Options{
		Backend:      a.cfg.CacheBackend,
		RedisAddr:    a.cfg.RedisAddr,
		MemcacheAddr: a.cfg.MemcacheAddr,
	})
	if err != nil {
		return err
	}
	defer respCache.Close()

	// Warm the dataset; requests answer 503 until the source loads.
	if _, err := a.loader.Load(ctx, a.cfg.DataSource); err != nil {
		a.logger.Warn("Initial load failed: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	ctrl := rest.NewController(a.loader, a.dashboard, respCache, a.logger, rest.Options{
		Source:   a.cfg.DataSource,
		CacheTTL: a.cfg.CacheTTL,
	})
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           rest.NewRouter(ctrl, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("=== Car dashboard listening on %s (source: %s, cache: %s) ===",
			a.cfg.HTTPAddr, a.cfg.DataSource, a.cfg.CacheBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *app) report(ctx context.Context) error {
	ds, err := a.loader.Load(ctx, a.cfg.DataSource)
	if err != nil {
		return err
	}
	a.dashboard.Print(os.Stdout, a.dashboard.Generate(ds, allSections()))
	return nil
}

func (a *app) export(ctx context.Context) error {
	ds, err := a.loader.Load(ctx, a.cfg.DataSource)
	if err != nil {
		return err
	}
	report := a.dashboard.Generate(ds, allSections())

	if err := os.MkdirAll(a.cfg.ExportDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	pool := utils.NewWorkerPool(a.cfg.ExportWorkers)
	for _, name := range chart.Names {
		pool.Submit(name, func() error {
			png, err := chart.Render(name, report, chart.DefaultSize)
			if err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(a.cfg.ExportDir, name+".png"), png, 0o644)
		})
	}
	for _, name := range []string{"listings.parquet", "listings.csv"} {
		pool.Submit(name, func() error {
			return writeRows(filepath.Join(a.cfg.ExportDir, name), report.Rows)
		})
	}

	failed := 0
	for name, err := range pool.Wait() {
		if err != nil {
			a.logger.Error("[export] %s: %v", name, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(chart.Names)+2)
	}
	a.logger.Info("Exported %d charts and %d rows to %s", len(chart.Names), len(report.Rows), a.cfg.ExportDir)
	return nil
}

func writeRows(path string, rows []models.Listing) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := storage.NewWriterFor(path, f)
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Sync()
}
