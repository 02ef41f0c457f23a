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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/mediashelf/api"
	"github.com/yourusername/mediashelf/api/handlers"
	"github.com/yourusername/mediashelf/internal/app"
	"github.com/yourusername/mediashelf/internal/domain"
	"github.com/yourusername/mediashelf/internal/infrastructure"
	"github.com/yourusername/mediashelf/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var configPath = flag.String("config", "", "Path to config file (default: search ./configs, ~/.mediashelf, /etc/mediashelf)")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mediashelf-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// queue, error and raw fetcher output files
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize event logger: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting mediashelf server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("base_dir", config.Download.BaseDir),
		zap.String("fetcher", config.Download.FetcherBinary))

	if err := os.MkdirAll(config.Download.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	store, err := infrastructure.NewSQLiteStore(config.Queue.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer store.Close()

	hub := handlers.NewProgressHub(log)
	defer hub.Close()

	manager := app.NewDownloadManager(config, app.Dependencies{
		Spawner:     infrastructure.NewFetcherSpawner(config.Download.FetcherBinary, multiLog, log),
		Pauses:      store,
		Settings:    store,
		Broadcaster: hub,
		Cleaner:     infrastructure.NewPartialFileCleaner(log),
		Thumbnails:  infrastructure.NewThumbnailDirIndex(config.Download.ThumbnailsDir),
		Notifier:    infrastructure.NewNotificationService(config.Notification, log),
		EventLogger: multiLog,
		Logger:      log,
	})
	if n := manager.Restore(); n > 0 {
		log.Info("Paused downloads are waiting to be resumed", zap.Int("count", n))
	}

	formats := app.NewFormatService(infrastructure.NewFetcherCatalog(config.Download.FetcherBinary, log), log)

	router := api.SetupRouter(api.RouterDeps{
		Engine:  manager,
		Formats: formats,
		Hub:     hub,
		Logger:  log,
		Events:  multiLog,
	})

	return serve(config, router, manager, log)
}

// serve runs the HTTP server until a signal arrives, then pauses active downloads and stops
func serve(config *domain.Config, router http.Handler, manager *app.DownloadManager, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		paused := manager.Shutdown(shutdownTimeout / 2)
		log.Info("Paused active downloads", zap.Int("count", paused))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout/2)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	log.Info("Server exited")
	return err
}
