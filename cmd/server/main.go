package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dasmlab/vaani/pkg/auth"
	"github.com/dasmlab/vaani/pkg/config"
	"github.com/dasmlab/vaani/pkg/database"
	"github.com/dasmlab/vaani/pkg/segment"
	"github.com/dasmlab/vaani/pkg/server"
	"github.com/dasmlab/vaani/pkg/service"
	"github.com/dasmlab/vaani/pkg/translate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	cfg, err := config.Load(pflag.CommandLine)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithFields(logrus.Fields{
		"port":       cfg.Server.Port,
		"grpc_port":  cfg.Server.GRPCPort,
		"mt_engine":  cfg.Translate.Engine,
		"mt_url":     cfg.Translate.URL,
		"segmenter":  cfg.Translate.Segmenter,
		"source":     cfg.Translate.SourceLanguage,
		"log_level":  level.String(),
		"max_upload": cfg.Server.MaxUploadBytes,
		"max_jobs":   cfg.Server.MaxActiveJobs,
	}).Info("Starting Vaani translation server")

	splitter, err := segment.Parse(cfg.Translate.Segmenter)
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse segmentation strategy")
	}

	engineType, err := translate.ParseEngineType(cfg.Translate.Engine)
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse translation engine type")
	}

	if engineType == translate.EngineReverie && !cfg.Translate.Reverie.HasReverieCredentials() {
		logger.Warn("REV_API_KEY, REV_APP_ID or REV_APPNAME is not set; the provider will reject requests")
	}

	rev := cfg.Translate.Reverie
	translator, err := translate.NewTranslator(translate.Config{
		Engine:  engineType,
		BaseURL: cfg.Translate.URL,
		Timeout: cfg.Translate.Timeout,
		Reverie: translate.ReverieCredentials{
			APIKey:  rev.APIKey,
			AppID:   rev.AppID,
			AppName: rev.AppName,
		},
		ReverieOptions: translate.ReverieOptions{
			Mask:          rev.Mask,
			MaskTerms:     rev.MaskTerms,
			FilterProfane: rev.FilterProfane,
			Domain:        rev.Domain,
			Logging:       rev.Logging,
		},
		LibreTranslateAPIKey: cfg.Translate.LibreTranslate.APIKey,
		RateLimit:            cfg.Translate.RateLimit,
		Burst:                cfg.Translate.Burst,
		Breaker: translate.BreakerSettings{
			MaxFailures: cfg.Translate.BreakerFailures,
			Cooldown:    cfg.Translate.BreakerCooldown,
		},
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create translator")
	}

	// Verify translator is healthy
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	logger.Info("Checking translator health...")
	if err := translator.CheckHealth(ctx); err != nil {
		logger.WithError(err).Warn("Translator health check failed, but continuing anyway")
		logger.Warn("Server will start, but translation requests may fail until translator is ready")
	} else {
		logger.Info("Translator health check passed")
	}
	cancel()

	checks := map[string]server.CheckFunc{
		"translator": translator.CheckHealth,
	}

	// The upload pipeline does not depend on the database; a failed connect is logged only.
	var mongoClient *database.Client
	if cfg.Mongo.URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		mongoClient, err = database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
		cancel()
		if err != nil {
			logger.WithError(err).Error("MongoDB connection failed, continuing without database")
		}
		checks["mongo"] = mongoClient.Ping
	} else {
		logger.Info("MONGO_URI not set, running without database")
	}

	translationService := service.NewTranslationService(
		translator,
		translate.NewDefaultLanguageTable(),
		splitter,
		cfg.Translate.SourceLanguage,
		logger,
	)

	jobQueue := service.NewJobQueue(logger)
	jobQueue.SetLimits(cfg.Server.MaxActiveJobs, cfg.Server.MaxStoredJobs)
	jobQueue.SetProcessor(service.NewJobProcessor(translationService, cfg.Server.JobTimeout, logger))

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	// Endpoints serve the last refresh; checks never run on the request path.
	healthMonitor := server.NewHealthMonitor(checks, server.DefaultCheckTimeout, logger)
	go healthMonitor.Run(backgroundCtx, cfg.Server.HealthInterval)

	httpServer := server.NewHTTPServer(server.Config{
		Port:           cfg.Server.Port,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Service:        translationService,
		JobQueue:       jobQueue,
		Auth:           auth.Routes(auth.NewStaticProvider(cfg.Auth.Token), logger),
		Health:         healthMonitor,
		Logger:         logger,
	})

	// Start periodic cleanup of finished jobs
	go func() {
		ticker := time.NewTicker(cfg.Server.JobRetention / 4)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				jobQueue.CleanupOldJobs(cfg.Server.JobRetention)
			case <-backgroundCtx.Done():
				return
			}
		}
	}()
	logger.WithFields(logrus.Fields{
		"retention": cfg.Server.JobRetention.String(),
	}).Info("Started job cleanup goroutine")

	errChan := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- err
		}
	}()

	var grpcServer *server.GRPCHealthServer
	if cfg.Server.GRPCPort > 0 {
		grpcServer = server.NewGRPCHealthServer(cfg.Server.GRPCPort, healthMonitor, logger)
		go func() {
			if err := grpcServer.Serve(backgroundCtx); err != nil {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.WithError(err).Error("Server error")
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")
	}

	backgroundCancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if grpcServer != nil {
		grpcServer.Stop(shutdownCtx)
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown did not complete")
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.WithError(err).Warn("MongoDB disconnect failed")
	}
}
