// Package main bootstraps the connector: loads configuration, connects to
// Mongo, wires the registry/mapping/asset stores and platform adapters,
// and serves the trigger HTTP surface. Grounded on xg2g's cmd/daemon
// bootstrap (signal-aware context, logger configured first, thin main).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JungesAngebot/platform-connectors/internal/asset"
	"github.com/JungesAngebot/platform-connectors/internal/config"
	"github.com/JungesAngebot/platform-connectors/internal/httpapi"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/platform"
	"github.com/JungesAngebot/platform-connectors/internal/platform/facebook"
	"github.com/JungesAngebot/platform-connectors/internal/platform/youtube"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
	"github.com/JungesAngebot/platform-connectors/internal/telemetry"
	"github.com/JungesAngebot/platform-connectors/internal/workflow"
)

func main() {
	log.Configure(log.Config{Level: "info"})
	logger := log.WithComponent("main")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	log.Configure(log.Config{Level: cfg.LogLevel})

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("work_dir", cfg.WorkDir).Msg("failed to create work directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TelemetryEnabled,
		ServiceName:    "platform-connector",
		ServiceVersion: "dev",
		ExporterType:   cfg.TelemetryExporterType,
		Endpoint:       cfg.TelemetryEndpoint,
		SamplingRate:   cfg.TelemetrySamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	connectorClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.ConnectorMongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to the connector's mongo cluster")
	}
	defer func() { _ = connectorClient.Disconnect(ctx) }()

	assetClient := connectorClient
	if cfg.AssetMongoURI != cfg.ConnectorMongoURI {
		assetClient, err = mongo.Connect(ctx, options.Client().ApplyURI(cfg.AssetMongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to the asset catalog's mongo cluster")
		}
		defer func() { _ = assetClient.Disconnect(ctx) }()
	}

	registryStore, err := registry.NewMongoStore(ctx, connectorClient, cfg.ConnectorDB, cfg.ConnectorRegistry)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize the registry store")
	}
	mappingStore := mapping.NewMongoStore(connectorClient, cfg.ConnectorDB, cfg.ConnectorMappings)
	catalog := asset.NewMongoCatalog(assetClient, cfg.AssetDB, cfg.AssetsCollection)

	bucket, err := gridfs.NewBucket(assetClient.Database(cfg.AssetDB))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open the thumbnail GridFS bucket")
	}
	thumbnails := asset.NewThumbnailStore(bucket)

	facebookAdapter := facebook.New(http.DefaultClient)

	var youtubeMCN platform.Adapter
	if cfg.YouTubeServiceAccountKeyPath != "" {
		mcn, err := youtube.NewMCNAdapter(ctx, cfg.YouTubeServiceAccountKeyPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize the youtube mcn adapter")
		}
		youtubeMCN = mcn
	}
	youtubeDirect := youtube.NewDirectAdapter(youtube.OAuthConfig{
		ClientID:     cfg.YouTubeClientID,
		ClientSecret: cfg.YouTubeClientSecret,
		TokenURL:     cfg.YouTubeTokenURI,
	})

	router := platform.NewRouter(facebookAdapter, youtubeMCN, youtubeDirect, cfg.TestMode)

	runner := &workflow.Runner{
		Registry:   registryStore,
		Mapping:    mappingStore,
		Catalog:    catalog,
		Thumbnails: thumbnails,
		Router:     router,
		HTTPClient: http.DefaultClient,
		WorkDir:    cfg.WorkDir,
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewRouter(runner, cfg.TriggerRateLimitRPM))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.ListenAddr).Bool("test_mode", cfg.TestMode).Msg("starting connector")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}
