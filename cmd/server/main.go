// Package main is the entry point for the dcin API server: the delivery
// voucher ingestion service for the distribution centers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/toyohara-midori/dcin/internal/infrastructure/http/v1"
	"github.com/toyohara-midori/dcin/internal/infrastructure/storage/postgres"
	"github.com/toyohara-midori/dcin/internal/ingest"
	"github.com/toyohara-midori/dcin/internal/voucher"
	"github.com/toyohara-midori/dcin/pkg/logger"
	"github.com/toyohara-midori/dcin/pkg/sequence"
)

var version = "dev"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting dcin server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// The reception windows and date rules run on the database server's
	// clock so every terminal agrees on "now".
	dbClock := postgres.NewDBClock(pool)

	// --- Repositories ---
	refData := postgres.NewRefDataRepo(txManager)
	staging := postgres.NewStagingRepo(txManager, dbClock, stagingConfig())
	ledger := postgres.NewLedgerRepo(txManager)
	search := postgres.NewSearchRepo(txManager)
	seqStore := postgres.NewSequenceStore(txManager)

	// --- Numbering allocator ---
	allocOpts := []sequence.Option{}
	if wait := getEnvDuration("NUMBERING_MAX_WAIT", 0); wait > 0 {
		allocOpts = append(allocOpts, sequence.WithMaxWait(wait))
	}
	allocator := sequence.New(seqStore, allocOpts...)

	// --- Pipeline ---
	validator := ingest.NewValidator(refData, dbClock)
	gate := ingest.NewHoursGate(dbClock, receptionWindows())
	writer := voucher.NewWriter(ledger, allocator, txManager)
	ingestService := ingest.NewService(validator, staging, staging, gate, writer)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:          pool,
		Logger:        log,
		IngestService: ingestService,
		SearchRepo:    search,
		Version:       version,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete. Commits in flight
	// finish their current chunk; the batch stays staged for the rest.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// stagingConfig builds the bulk-check parameters from the environment.
func stagingConfig() postgres.StagingConfig {
	cfg := postgres.DefaultStagingConfig()
	if days := getEnvInt("DELIVERY_HORIZON_DAYS", 0); days > 0 {
		cfg.HorizonDays = days
	}
	if prefix, ok := os.LookupEnv("DISALLOWED_STORE_PREFIX"); ok {
		cfg.DisallowedStorePrefix = prefix
	}
	return cfg
}

// receptionWindows builds the daily windows from the environment, falling
// back to the production defaults.
func receptionWindows() map[ingest.Mode]ingest.Window {
	windows := ingest.DefaultWindows()
	if w := windowFromEnv("WINDOW_NORMAL"); w != nil {
		windows[ingest.ModeNormal] = *w
	}
	if w := windowFromEnv("WINDOW_SAMEDAY"); w != nil {
		windows[ingest.ModeSameDay] = *w
	}
	return windows
}

// windowFromEnv parses "HH:MM-HH:MM" from the named variable.
func windowFromEnv(key string) *ingest.Window {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var start, end string
	if _, err := fmt.Sscanf(value, "%5s-%5s", &start, &end); err != nil {
		return nil
	}
	return &ingest.Window{Start: start, End: end}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
