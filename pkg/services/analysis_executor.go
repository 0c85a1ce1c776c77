package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/config"
	"github.com/processx-inc/processx-engine/pkg/llm"
	"github.com/processx-inc/processx-engine/pkg/logging"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/repositories"
	"github.com/processx-inc/processx-engine/pkg/services/workqueue"
)

const (
	recoverySweepTaskID = "analysis-recovery-sweep"
	recoverySweepLimit  = 100
)

var errLeaseLost = errors.New("analysis lease lost")

// AnalysisExecutor runs analyses in the background. The ai_analyses row is the
// job record, so a submitted id survives restarts: anything not finished is
// picked up again by the recovery sweep.
type AnalysisExecutor interface {
	// Submit queues an analysis. It returns false when the id is already
	// queued or running on this instance, or the executor is shutting down.
	Submit(organizationID, analysisID uuid.UUID) bool

	// Start runs a recovery sweep immediately and then every SweepInterval.
	Start(ctx context.Context)

	// Shutdown stops the sweep, cancels running analyses and waits for them.
	// Interrupted analyses stay IN_PROGRESS until their heartbeat goes stale.
	Shutdown(ctx context.Context) error

	// Stats returns this instance's queue counters since start.
	Stats() workqueue.Progress
}

type analysisExecutor struct {
	serverInstanceID uuid.UUID
	analysisRepo     repositories.AnalysisRepository
	pipeline         AnalysisPipeline
	getTenantCtx     TenantContextFunc
	getSystemCtx     SystemContextFunc
	config           config.AnalysisConfig
	queue            *workqueue.Queue
	logger           *zap.Logger

	mu        sync.Mutex
	stopSweep context.CancelFunc
	sweepDone chan struct{}
}

// NewAnalysisExecutor creates an AnalysisExecutor backed by a work queue that
// runs at most cfg.MaxConcurrent analyses at once.
func NewAnalysisExecutor(
	analysisRepo repositories.AnalysisRepository,
	pipeline AnalysisPipeline,
	getTenantCtx TenantContextFunc,
	getSystemCtx SystemContextFunc,
	cfg config.AnalysisConfig,
	logger *zap.Logger,
) AnalysisExecutor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &analysisExecutor{
		serverInstanceID: uuid.New(),
		analysisRepo:     analysisRepo,
		pipeline:         pipeline,
		getTenantCtx:     getTenantCtx,
		getSystemCtx:     getSystemCtx,
		config:           cfg,
		queue:            workqueue.New(logger, workqueue.WithStrategy(workqueue.NewSlotStrategy(cfg.MaxConcurrent))),
		logger:           logger.Named("analysis-executor"),
	}
}

var _ AnalysisExecutor = (*analysisExecutor)(nil)

func (e *analysisExecutor) Submit(organizationID, analysisID uuid.UUID) bool {
	return e.queue.EnqueueUnique(&analysisTask{
		BaseTask:       workqueue.NewBaseTask(analysisID.String(), "Run analysis", true),
		executor:       e,
		organizationID: organizationID,
		analysisID:     analysisID,
	})
}

func (e *analysisExecutor) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopSweep != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.stopSweep = cancel
	e.sweepDone = make(chan struct{})

	e.logger.Info("Starting analysis executor",
		zap.String("server_instance_id", e.serverInstanceID.String()),
		zap.Int("max_concurrent", e.config.MaxConcurrent),
		zap.Duration("sweep_interval", e.config.SweepInterval))

	go func() {
		defer close(e.sweepDone)
		e.scheduleSweep()
		if e.config.SweepInterval <= 0 {
			return
		}

		ticker := time.NewTicker(e.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.scheduleSweep()
			}
		}
	}()
}

func (e *analysisExecutor) Shutdown(ctx context.Context) error {
	e.logger.Info("Shutting down analysis executor",
		zap.String("server_instance_id", e.serverInstanceID.String()))

	e.mu.Lock()
	stop, done := e.stopSweep, e.sweepDone
	e.mu.Unlock()
	if stop != nil {
		stop()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return e.queue.Shutdown(ctx)
}

func (e *analysisExecutor) Stats() workqueue.Progress {
	return e.queue.Progress()
}

func (e *analysisExecutor) scheduleSweep() {
	e.queue.EnqueueUnique(&recoverySweepTask{
		BaseTask: workqueue.NewBaseTask(recoverySweepTaskID, "Recover analyses", false),
		executor: e,
	})
}

// ----------------------------------------------------------------------------
// Running one analysis
// ----------------------------------------------------------------------------

type analysisTask struct {
	workqueue.BaseTask
	executor       *analysisExecutor
	organizationID uuid.UUID
	analysisID     uuid.UUID
}

func (t *analysisTask) Execute(ctx context.Context, _ workqueue.TaskEnqueuer) error {
	return t.executor.run(ctx, t.organizationID, t.analysisID)
}

// run claims one analysis and drives it to a terminal state. A nil return
// means there is nothing left for this instance to do with the row.
func (e *analysisExecutor) run(ctx context.Context, organizationID, analysisID uuid.UUID) (err error) {
	logger := e.logger.With(
		zap.String("analysis_id", analysisID.String()),
		zap.String("organization_id", organizationID.String()))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Analysis panicked", zap.Any("panic", r), zap.Stack("stack"))
			e.markFailed(organizationID, analysisID, models.AnalysisErrorInternal, fmt.Sprintf("panic during analysis: %v", r))
			err = nil
		}
	}()

	tenantCtx, cleanup, err := e.getTenantCtx(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("acquire tenant scope: %w", err)
	}
	defer cleanup()

	analysis, err := e.analysisRepo.Claim(tenantCtx, analysisID, e.serverInstanceID, time.Now().Add(-e.config.StaleAfter))
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Debug("Analysis not claimable, skipping")
			return nil
		}
		return fmt.Errorf("claim analysis: %w", err)
	}
	logger = logger.With(
		zap.String("analysis_type", string(analysis.AnalysisType)),
		zap.Int("attempt", analysis.Attempts))

	if e.config.MaxAttempts > 0 && analysis.Attempts > e.config.MaxAttempts {
		logger.Warn("Analysis exceeded max attempts", zap.Int("max_attempts", e.config.MaxAttempts))
		e.fail(tenantCtx, logger, analysisID, models.AnalysisErrorExhausted,
			fmt.Sprintf("analysis did not finish after %d attempts", e.config.MaxAttempts))
		return nil
	}

	runCtx, cancel := context.WithCancelCause(tenantCtx)
	defer cancel(nil)
	stopHeartbeat := e.startHeartbeat(runCtx, cancel, logger, organizationID, analysisID)

	logger.Info("Running analysis")
	start := time.Now()
	results, runErr := e.pipeline.Run(runCtx, analysis)
	stopHeartbeat()

	if errors.Is(context.Cause(runCtx), errLeaseLost) {
		logger.Warn("Abandoning analysis after losing its lease")
		return nil
	}
	if runErr != nil {
		if ctx.Err() != nil {
			// Shutdown: leave the row IN_PROGRESS for the next sweep.
			logger.Info("Analysis interrupted", zap.Error(runErr))
			return ctx.Err()
		}
		kind := classifyAnalysisError(runErr)
		logger.Error("Analysis failed",
			zap.String("error_kind", string(kind)),
			zap.String("error", logging.SanitizeError(runErr)))
		e.fail(tenantCtx, logger, analysisID, kind, runErr.Error())
		return nil
	}

	if err := e.analysisRepo.CompleteAnalysis(tenantCtx, analysisID, e.serverInstanceID, results); err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			logger.Warn("Analysis was taken over before it could complete")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("Failed to store analysis results", zap.Error(err))
		e.fail(tenantCtx, logger, analysisID, models.AnalysisErrorInternal, fmt.Sprintf("store results: %v", err))
		return nil
	}

	logger.Info("Analysis completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("pain_points", len(results.PainPointRows)),
		zap.Int("recommendations", len(results.RecommendationRows)),
		zap.Bool("target_process", results.TargetProcessRow != nil))
	return nil
}

// startHeartbeat refreshes the lease every HeartbeatInterval on its own
// connection. Losing the lease cancels ctx with errLeaseLost. The returned
// function stops the heartbeat and waits for it to exit.
func (e *analysisExecutor) startHeartbeat(ctx context.Context, cancel context.CancelCauseFunc, logger *zap.Logger, organizationID, analysisID uuid.UUID) func() {
	if e.config.HeartbeatInterval <= 0 {
		return func() {}
	}

	hbCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(e.config.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				tenantCtx, cleanup, err := e.getTenantCtx(hbCtx, organizationID)
				if err != nil {
					logger.Warn("Failed to get tenant context for heartbeat", zap.Error(err))
					continue
				}
				err = e.analysisRepo.Heartbeat(tenantCtx, analysisID, e.serverInstanceID)
				cleanup()

				if errors.Is(err, apperrors.ErrConflict) {
					cancel(errLeaseLost)
					return
				}
				if err != nil && hbCtx.Err() == nil {
					logger.Warn("Failed to update heartbeat", zap.Error(err))
				}
			}
		}
	}()

	return func() {
		stop()
		<-done
	}
}

// fail records a terminal failure owned by this instance.
func (e *analysisExecutor) fail(ctx context.Context, logger *zap.Logger, analysisID uuid.UUID, kind models.AnalysisErrorKind, message string) {
	owner := e.serverInstanceID
	if err := e.analysisRepo.Fail(ctx, analysisID, &owner, kind, analysisErrorMessage(message)); err != nil {
		logger.Error("Failed to mark analysis failed", zap.Error(err))
	}
}

// markFailed is fail on a fresh connection, for use after a panic.
func (e *analysisExecutor) markFailed(organizationID, analysisID uuid.UUID, kind models.AnalysisErrorKind, message string) {
	logger := e.logger.With(zap.String("analysis_id", analysisID.String()))
	ctx, cleanup, err := e.getTenantCtx(context.Background(), organizationID)
	if err != nil {
		logger.Error("Failed to get tenant context for marking analysis failed", zap.Error(err))
		return
	}
	defer cleanup()
	e.fail(ctx, logger, analysisID, kind, message)
}

func analysisErrorMessage(message string) string {
	return logging.TruncateString(logging.SanitizeMessage(message), logging.MaxErrorMessageLength)
}

// classifyAnalysisError maps a pipeline error onto the kind stored on the row.
func classifyAnalysisError(err error) models.AnalysisErrorKind {
	var llmErr *llm.Error
	switch {
	case errors.Is(err, llm.ErrNoProviderConfigured):
		return models.AnalysisErrorNoProvider
	case errors.Is(err, llm.ErrUnsupportedProvider):
		return models.AnalysisErrorUnsupportedProvider
	case errors.Is(err, llm.ErrMalformedResponse):
		return models.AnalysisErrorMalformedResponse
	case errors.Is(err, apperrors.ErrNotFound):
		return models.AnalysisErrorNotFound
	case errors.As(err, &llmErr):
		return models.AnalysisErrorProvider
	default:
		return models.AnalysisErrorInternal
	}
}

// ----------------------------------------------------------------------------
// Recovery sweep
// ----------------------------------------------------------------------------

type recoverySweepTask struct {
	workqueue.BaseTask
	executor *analysisExecutor
}

func (t *recoverySweepTask) Execute(ctx context.Context, _ workqueue.TaskEnqueuer) error {
	return t.executor.sweep(ctx)
}

// sweep resubmits PENDING analyses and IN_PROGRESS analyses whose heartbeat
// has gone stale, across all organizations.
func (e *analysisExecutor) sweep(ctx context.Context) error {
	sysCtx, cleanup, err := e.getSystemCtx(ctx)
	if err != nil {
		return fmt.Errorf("acquire system scope: %w", err)
	}
	defer cleanup()

	recoverable, err := e.analysisRepo.ListRecoverable(sysCtx, time.Now().Add(-e.config.StaleAfter), recoverySweepLimit)
	if err != nil {
		return fmt.Errorf("list recoverable analyses: %w", err)
	}

	submitted := 0
	for _, r := range recoverable {
		if e.Submit(r.OrganizationID, r.ID) {
			submitted++
		}
	}
	if submitted > 0 {
		e.logger.Info("Resubmitted recoverable analyses",
			zap.Int("found", len(recoverable)),
			zap.Int("submitted", submitted))
	}
	return nil
}
