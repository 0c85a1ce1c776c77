package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/audit"
	"github.com/processx-inc/processx-engine/pkg/auth"
	"github.com/processx-inc/processx-engine/pkg/config"
	"github.com/processx-inc/processx-engine/pkg/crypto"
	"github.com/processx-inc/processx-engine/pkg/database"
	"github.com/processx-inc/processx-engine/pkg/handlers"
	"github.com/processx-inc/processx-engine/pkg/llm"
	"github.com/processx-inc/processx-engine/pkg/middleware"
	"github.com/processx-inc/processx-engine/pkg/repositories"
	"github.com/processx-inc/processx-engine/pkg/services"
)

const (
	httpShutdownTimeout     = 10 * time.Second
	executorShutdownTimeout = 30 * time.Second
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the background analysis executor",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if servePort != "" {
		cfg.Port = servePort
	}

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.Int("analysis_max_concurrent", cfg.Analysis.MaxConcurrent))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
		Leeway:             cfg.Auth.ClockSkew,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize JWKS client: %w", err)
	}
	defer jwksClient.Close()
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwksClient, logger), logger)

	var sealer *crypto.KeySealer
	if cfg.CredentialsKey != "" {
		sealer, err = crypto.NewKeySealer(cfg.CredentialsKey)
		if err != nil {
			return fmt.Errorf("failed to initialize credentials key: %w", err)
		}
	} else {
		logger.Warn("CREDENTIALS_KEY not set; stored provider configurations cannot be read")
	}

	// Repositories
	processRepo := repositories.NewProcessRepository()
	painPointRepo := repositories.NewPainPointRepository()
	recommendationRepo := repositories.NewRecommendationRepository()
	targetProcessRepo := repositories.NewTargetProcessRepository()
	analysisRepo := repositories.NewAnalysisRepository()
	apiConfigRepo := repositories.NewAPIConfigurationRepository(sealer)

	// LLM access
	llmFactory := llm.NewClientFactory(
		services.NewProviderResolver(apiConfigRepo, &cfg.AI, logger),
		llm.FactoryConfig{
			MaxTokens:      cfg.AI.MaxTokens,
			RequestTimeout: cfg.AI.RequestTimeout,
			OpenAIBaseURL:  cfg.AI.OpenAIBaseURL,
			Breaker: llm.CircuitBreakerConfig{
				Threshold:  cfg.AI.BreakerThreshold,
				ResetAfter: cfg.AI.BreakerCooldown,
			},
		},
		logger,
	)

	// Analysis
	pipeline := services.NewAnalysisPipeline(
		services.NewContextGatherer(processRepo, painPointRepo),
		recommendationRepo,
		llmFactory,
		services.PipelineConfig{
			ProviderRetries: cfg.Analysis.ProviderRetries,
			RetryBackoff:    cfg.Analysis.ProviderRetryBackoff,
		},
		logger,
	)
	executor := services.NewAnalysisExecutor(
		analysisRepo,
		pipeline,
		services.NewTenantContextFunc(db),
		services.NewSystemContextFunc(db),
		cfg.Analysis,
		logger,
	)
	executor.Start(ctx)

	analysisService := services.NewAnalysisService(processRepo, analysisRepo, executor, logger)
	recommendationService := services.NewRecommendationService(processRepo, recommendationRepo, logger)
	processService := services.NewProcessService(processRepo, painPointRepo, targetProcessRepo)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           newRouter(cfg, db, executor, authMiddleware, analysisService, recommendationService, processService, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting processx-engine",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			shutdownExecutor(executor, logger)
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	httpCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	shutdownExecutor(executor, logger)
	pool := db.PoolStats()
	logger.Info("Shutdown complete",
		zap.Any("analyses", executor.Stats()),
		zap.Int32("db_conns_acquired", pool.Acquired),
		zap.Int32("db_conns_total", pool.Total))
	return nil
}

// shutdownExecutor stops the recovery sweep and waits for running analyses.
// Analyses still running at the deadline stay IN_PROGRESS for the next sweep.
func shutdownExecutor(executor services.AnalysisExecutor, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), executorShutdownTimeout)
	defer cancel()
	if err := executor.Shutdown(ctx); err != nil {
		logger.Warn("Analysis executor did not drain before deadline", zap.Error(err))
	}
}

func newRouter(
	cfg *config.Config,
	db *database.DB,
	stats handlers.AnalysisStats,
	authMiddleware *auth.Middleware,
	analysisService services.AnalysisService,
	recommendationService services.RecommendationService,
	processService services.ProcessService,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()
	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger))
	auditor := audit.NewAuditor(logger)

	handlers.NewHealthHandler(cfg, db, stats, logger).RegisterRoutes(mux)
	handlers.NewAnalysisHandler(analysisService, auditor, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewRecommendationHandler(recommendationService, auditor, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewProcessHandler(processService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	return middleware.Recoverer(logger)(middleware.RequestLogger(logger)(mux))
}
