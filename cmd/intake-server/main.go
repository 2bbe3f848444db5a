// cmd/intake-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"grievance-intake/internal/classify"
	"grievance-intake/internal/common/config"
	"grievance-intake/internal/common/database"
	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/common/observability"
	"grievance-intake/internal/complaints"
	"grievance-intake/internal/exifgps"
	"grievance-intake/internal/geocode"
	"grievance-intake/internal/intake"
	"grievance-intake/internal/relevance"
	"grievance-intake/internal/server"
	"grievance-intake/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake server...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Schema & seed data ---
	repo := complaints.NewRepository(pg.DB, rdb.Client, log)
	if err := repo.InitSchema(ctx); err != nil {
		zapLog.Fatal("schema initialization failed", zap.Error(err))
	}
	zapLog.Info("Database schema ready")

	// --- Build the intake pipeline ---
	var classifier classify.TextClassifier
	switch cfg.GenAI.Provider {
	case "keyword":
		classifier = classify.NewKeywordClassifier(log)
		zapLog.Info("Using keyword classifier")
	default:
		classifier = classify.NewGeminiClassifier(
			cfg.GenAI.BaseURL,
			cfg.GenAI.Model,
			cfg.GenAI.APIKey,
			config.GetDuration(cfg.GenAI.Timeout),
			log,
		)
		zapLog.Info("Using generative classifier", zap.String("model", cfg.GenAI.Model))
	}

	resolver := geocode.NewNominatimClient(
		cfg.Geocoding.BaseURL,
		cfg.Geocoding.UserAgent,
		config.GetDuration(cfg.Geocoding.Timeout),
		log,
	)

	embedder := relevance.NewEmbeddingClient(
		cfg.Embedding.BaseURL,
		cfg.Embedding.Model,
		config.GetDuration(cfg.Embedding.Timeout),
	)
	scorer := relevance.NewScorer(embedder, cfg.Intake.RelevanceThreshold, log)

	store := storage.NewDiskStore(cfg.Storage.UploadDir, log)

	pipeline := intake.NewPipeline(
		classifier,
		exifgps.NewExtractor(),
		resolver,
		scorer,
		store,
		log,
	)

	// --- Status notifications via SES ---
	var notifier server.Notifier
	if cfg.Notifications.Email.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Notifications.AWS.Region))
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		notifier = complaints.NewStatusNotifier(
			ses.NewFromConfig(awsCfg),
			cfg.Notifications.Email.FromEmail,
			true,
			log,
		)
		zapLog.Info("Email notifications enabled", zap.String("from", cfg.Notifications.Email.FromEmail))
	} else {
		notifier = complaints.NewStatusNotifier(nil, "", false, log)
		zapLog.Info("Email notifications disabled")
	}

	api := server.New(pipeline, repo, notifier, obs, log)

	mux := http.NewServeMux()
	mux.Handle("/", api.Routes())
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP shutdown error", zap.Error(err))
	}

	zapLog.Info("Intake server stopped gracefully")
}
