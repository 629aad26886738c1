package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/api"
	"github.com/yourusername/media-fetch-go/internal/app"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"github.com/yourusername/media-fetch-go/internal/infrastructure"
	"github.com/yourusername/media-fetch-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting media-fetch server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("scratch_dir", config.Download.ScratchDir))

	// Create scratch directory
	if err := os.MkdirAll(config.Download.ScratchDir, 0755); err != nil {
		log.Fatal("Failed to create scratch directory", zap.Error(err))
	}

	// Initialize history repository when enabled
	var repo domain.FetchHistoryRepository
	if config.History.Enabled {
		sqliteRepo, err := infrastructure.NewSQLiteFetchRepository(config.History.DatabasePath)
		if err != nil {
			log.Fatal("Failed to initialize history repository", zap.Error(err))
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	}

	// Initialize the file fetcher shared by the providers
	fetcher, err := infrastructure.NewFileFetcher(&config.Download, log)
	if err != nil {
		log.Fatal("Failed to initialize file fetcher", zap.Error(err))
	}

	// Initialize providers
	instagramProvider, err := infrastructure.NewInstagramProvider(&config.Instagram, &config.Download, fetcher, log)
	if err != nil {
		log.Fatal("Failed to initialize Instagram provider", zap.Error(err))
	}

	tiktokProvider, err := infrastructure.NewTikTokProvider(&config.TikTok, &config.Download, fetcher, log)
	if err != nil {
		log.Fatal("Failed to initialize TikTok provider", zap.Error(err))
	}

	genericProvider := infrastructure.NewGenericProvider(&config.Download, log)

	providers := map[domain.Platform]domain.MediaProvider{
		domain.PlatformInstagram: instagramProvider,
		domain.PlatformTikTok:    tiktokProvider,
		domain.PlatformGeneric:   genericProvider,
	}

	// Initialize transcoder and orchestrator
	transcoder := infrastructure.NewTranscoder(&config.Transcode, log)
	fetchMgr := app.NewFetchManager(providers, transcoder, fetcher, &config.Download, log)

	// Set up HTTP server
	router := api.SetupRouter(fetchMgr, repo, config.Download.ScratchDir, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
