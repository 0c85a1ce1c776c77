// Package main is the processx-engine command: the HTTP API with its
// background analysis executor, and database maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/config"
	"github.com/processx-inc/processx-engine/pkg/database"
	"github.com/processx-inc/processx-engine/pkg/logging"
	"github.com/processx-inc/processx-engine/pkg/retry"
)

// Version is set at build time via ldflags
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "processx",
	Short:         "ProcessX analysis engine",
	Long:          "ProcessX analyzes business processes with an LLM provider and stores pain points, recommendations and target processes.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger every command shares.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(Version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// connectDatabase opens the pool, retrying while Postgres comes up, and
// applies pending migrations.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	dbCfg := &database.Config{
		URL:              cfg.Database.ConnectionString(),
		MaxConnections:   cfg.Database.MaxConnections,
		StatementTimeout: cfg.Database.StatementTimeout,
		ApplicationName:  "processx-engine",
	}

	connectRetry := retry.DefaultConfig()
	connectRetry.MaxRetries = 5
	connectRetry.InitialDelay = 500 * time.Millisecond
	connectRetry.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Database not reachable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}

	db, err := retry.DoWithResult(ctx, connectRetry, func() (*database.DB, error) {
		return database.NewConnection(ctx, dbCfg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Database))
	return db, nil
}
