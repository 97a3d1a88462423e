package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/snarg/captiond/internal/api"
	"github.com/snarg/captiond/internal/artifact"
	"github.com/snarg/captiond/internal/config"
	"github.com/snarg/captiond/internal/database"
	"github.com/snarg/captiond/internal/ingest"
	"github.com/snarg/captiond/internal/metrics"
	"github.com/snarg/captiond/internal/mqttclient"
)

var version = "dev"

func main() {
	startTime := time.Now()

	envFile := flag.String("env-file", "", "path to .env file (default .env)")
	httpAddr := flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	logLevel := flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
	flag.Parse()

	// Config
	cfg, err := config.Load(config.Overrides{
		EnvFile:  *envFile,
		HTTPAddr: *httpAddr,
		LogLevel: *logLevel,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("captiond starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database (optional; stateless without it)
	var db *database.DB
	if cfg.DatabaseURL != "" {
		dbLog := log.With().Str("component", "database").Logger()
		db, err = database.Connect(ctx, cfg.DatabaseURL, dbLog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize schema")
		}
	} else {
		log.Info().Msg("DATABASE_URL not set, running stateless")
	}

	// Pool gauges read live state at scrape time; nil pool reports zeros.
	var pool *pgxpool.Pool
	if db != nil {
		pool = db.Pool
	}
	prometheus.MustRegister(metrics.NewCollector(pool))

	// Artifact storage for rendered exports
	artLog := log.With().Str("component", "artifact").Logger()
	artifacts, err := artifact.New(cfg.S3, cfg.ArtifactDir, artLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize artifact store")
	}

	// Ingest pipeline feeds the transcript store from MQTT and the drop
	// folder. Both sources need the database.
	var pipeline *ingest.Pipeline
	if db != nil {
		pipeline = ingest.NewPipeline(db, log.With().Str("component", "ingest").Logger())
	}

	// MQTT (optional)
	var mqtt *mqttclient.Client
	if cfg.MQTTBrokerURL != "" && pipeline != nil {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		mqtt, err = mqttclient.Connect(mqttclient.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topics:    cfg.MQTTTopics,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       mqttLog,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()
		mqtt.SetMessageHandler(pipeline.HandleMQTT)
	}

	// Drop-folder watcher (optional)
	if cfg.DropDir != "" && pipeline != nil {
		watchLog := log.With().Str("component", "watcher").Logger()
		watcher, err := ingest.NewWatcher(cfg.DropDir, pipeline, watchLog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start drop-folder watcher")
		}
		defer watcher.Stop()
		watcher.Start(ctx)
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, db, mqtt, artifacts, version, startTime, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("captiond stopped")
}
