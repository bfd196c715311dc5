package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sightline/internal/api"
	"sightline/pkg/config"
	"sightline/pkg/db"
	"sightline/pkg/db/maintenance"
	"sightline/pkg/geo"
	"sightline/pkg/logging"
	"sightline/pkg/probe"
	"sightline/pkg/store"
	"sightline/pkg/terrain"
	"sightline/pkg/version"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", "configs/sightline.yaml", "Path to config file")
	trace      = flag.Bool("trace", false, "Enable trace logging")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Optional .env for ELEVATION_LOOKUP_URL and friends.
	_ = godotenv.Load()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	if *trace {
		logging.EnableTrace = true
	}

	slog.Info("Sightline Started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	if err := maintenance.Run(ctx, dbConn); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	elevClient := terrain.NewHTTPClient(appCfg.Elevation.LookupURL, appCfg.Elevation.RequestsPerSecond)
	fetcher := terrain.NewFetcher(elevClient, st, appCfg.Elevation.BatchSize, appCfg.Elevation.H3Resolution)

	cfgProv := config.NewProvider(appCfg, st)
	app := api.NewApp(cfgProv, st, fetcher)

	if err := runStartupProbes(ctx, dbConn, elevClient); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, appCfg, cfgProv, st, app)
}

// runStartupProbes verifies the dependencies before serving. The database
// is critical; the elevation service is not, frames just fetch no terrain
// until it comes back.
func runStartupProbes(ctx context.Context, dbConn *db.DB, elevClient *terrain.HTTPClient) error {
	probes := []probe.Probe{
		{
			Name:     "Database",
			Check:    dbConn.PingContext,
			Critical: true,
		},
		{
			Name: "Elevation Service",
			Check: func(ctx context.Context) error {
				_, err := elevClient.Elevations(ctx, []geo.Point{{Lat: 0, Lon: 0}})
				return err
			},
			Critical: false,
		},
	}
	return probe.AnalyzeResults(probe.Run(ctx, probes))
}

func runServer(ctx context.Context, appCfg *config.Config, cfgProv config.Provider, st store.Store, app *api.App) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(appCfg.Server.Address,
		api.NewConfigHandler(st, cfgProv, app),
		api.NewFrameHandler(app),
		api.NewShapesHandler(app),
		api.NewHeatmapHandler(app),
		api.NewPlacementHandler(app),
		api.NewProjectsHandler(app),
		shutdownFunc,
	)

	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
