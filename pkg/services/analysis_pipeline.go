package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/processx-inc/processx-engine/pkg/jsonutil"
	"github.com/processx-inc/processx-engine/pkg/llm"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/prompts"
	"github.com/processx-inc/processx-engine/pkg/repositories"
	"github.com/processx-inc/processx-engine/pkg/retry"
)

// Phase names used in logs, LLM call context and error messages.
const (
	PhaseUnderstanding   = "understanding"
	PhasePainPoints      = "pain_points"
	PhaseRecommendations = "recommendations"
	PhaseTargetProcess   = "target_process"
)

var phaseTemperature = map[string]float64{
	PhaseUnderstanding:   0.2,
	PhasePainPoints:      0.3,
	PhaseRecommendations: 0.5,
	PhaseTargetProcess:   0.4,
}

// AnalysisPipeline runs the LLM phases for one analysis and returns what
// should be committed. It writes nothing itself.
type AnalysisPipeline interface {
	Run(ctx context.Context, analysis *models.AIAnalysis) (*models.AnalysisResults, error)
}

// PipelineConfig controls retries of retryable provider errors within a run.
type PipelineConfig struct {
	ProviderRetries int
	RetryBackoff    time.Duration
}

type analysisPipeline struct {
	gatherer           ContextGatherer
	recommendationRepo repositories.RecommendationRepository
	llmFactory         llm.LLMClientFactory
	config             PipelineConfig
	logger             *zap.Logger
}

// NewAnalysisPipeline creates an AnalysisPipeline. ctx passed to Run must carry
// the analysis organization's tenant scope.
func NewAnalysisPipeline(
	gatherer ContextGatherer,
	recommendationRepo repositories.RecommendationRepository,
	llmFactory llm.LLMClientFactory,
	config PipelineConfig,
	logger *zap.Logger,
) AnalysisPipeline {
	return &analysisPipeline{
		gatherer:           gatherer,
		recommendationRepo: recommendationRepo,
		llmFactory:         llmFactory,
		config:             config,
		logger:             logger.Named("analysis-pipeline"),
	}
}

var _ AnalysisPipeline = (*analysisPipeline)(nil)

func (p *analysisPipeline) Run(ctx context.Context, analysis *models.AIAnalysis) (*models.AnalysisResults, error) {
	pc, err := p.gatherer.Gather(ctx, analysis.ProcessID)
	if err != nil {
		return nil, err
	}

	client, err := p.llmFactory.CreateForOrganization(ctx, analysis.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}

	logger := p.logger.With(
		zap.String("analysis_id", analysis.ID.String()),
		zap.String("process_id", analysis.ProcessID.String()),
		zap.String("analysis_type", string(analysis.AnalysisType)),
		zap.String("provider", string(client.GetProvider())),
		zap.String("model", client.GetModel()))
	logger.Info("Starting analysis pipeline",
		zap.Int("steps", pc.Metrics.StepCount),
		zap.Int("known_pain_points", len(pc.UserPainPoints)+len(pc.AIPainPoints)))

	results := &models.AnalysisResults{
		Provider: string(client.GetProvider()),
		Model:    client.GetModel(),
	}
	phases := analysis.AnalysisType.Phases()

	// Understanding and detection only depend on the process context.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := callPhase(gctx, p, client, analysis.ID, PhaseUnderstanding,
			prompts.BuildUnderstandingPrompt(pc),
			func(raw string) (*models.ProcessUnderstanding, error) {
				u, err := llm.ParseObjectWithSchema[models.ProcessUnderstanding](raw, llm.UnderstandingSchema)
				if err != nil {
					return nil, err
				}
				u.Complexity = models.ComplexityTier(strings.ToUpper(strings.TrimSpace(string(u.Complexity))))
				return &u, nil
			})
		if err != nil {
			return err
		}
		results.Understanding = u
		return nil
	})
	if phases.PainPoints {
		g.Go(func() error {
			detected, err := callPhase(gctx, p, client, analysis.ID, PhasePainPoints,
				prompts.BuildPainPointPrompt(pc),
				func(raw string) ([]models.DetectedPainPoint, error) {
					return llm.ParseArrayWithSchema[models.DetectedPainPoint](raw, llm.PainPointsSchema)
				})
			if err != nil {
				return err
			}
			results.DetectedPainPoints = p.acceptPainPoints(logger, pc, detected)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if phases.Recommendations {
		recs, err := callPhase(ctx, p, client, analysis.ID, PhaseRecommendations,
			prompts.BuildRecommendationPrompt(pc, results.Understanding, results.DetectedPainPoints),
			func(raw string) ([]models.GeneratedRecommendation, error) {
				return llm.ParseArrayWithSchema[models.GeneratedRecommendation](raw, llm.RecommendationsSchema)
			})
		if err != nil {
			return nil, err
		}
		results.Recommendations = normalizeRecommendations(logger, recs)
	}

	if phases.TargetProcess {
		basis := results.Recommendations
		if phases.UseStoredRecommendations {
			basis, err = p.approvedRecommendations(ctx, analysis.ProcessID)
			if err != nil {
				return nil, err
			}
		}

		if prompts.ShouldGenerateTargetProcess(pc.Graph.Process, basis) {
			generated, err := callPhase(ctx, p, client, analysis.ID, PhaseTargetProcess,
				prompts.BuildTargetProcessPrompt(pc, basis),
				func(raw string) (*models.GeneratedProcess, error) {
					gp, err := llm.ParseObjectWithSchema[models.GeneratedProcess](raw, llm.TargetProcessSchema)
					if err != nil {
						return nil, err
					}
					return &gp, nil
				})
			if err != nil {
				return nil, err
			}
			results.GeneratedProcess = normalizeGeneratedProcess(generated, pc.Graph.Process)
		} else {
			logger.Info("Skipping target process generation",
				zap.String("process_type", string(pc.Graph.Process.Type)),
				zap.Int("recommendations", len(basis)))
		}
	}

	buildResultRows(analysis, pc.Graph, results)

	logger.Info("Analysis pipeline finished",
		zap.Int("pain_points", len(results.PainPointRows)),
		zap.Int("recommendations", len(results.RecommendationRows)),
		zap.Bool("target_process", results.TargetProcessRow != nil))
	return results, nil
}

// callPhase makes one LLM call with provider retries. A response that does not
// parse is not retried and surfaces as llm.ErrMalformedResponse.
func callPhase[T any](
	ctx context.Context,
	p *analysisPipeline,
	client llm.LLMClient,
	analysisID uuid.UUID,
	phase string,
	prompt string,
	parse func(raw string) (T, error),
) (T, error) {
	phaseCtx := llm.WithAnalysisContext(ctx, analysisID, phase)

	cfg := retry.ProviderConfig(p.config.ProviderRetries, p.config.RetryBackoff)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		p.logger.Warn("Retrying LLM call",
			zap.String("analysis_id", analysisID.String()),
			zap.String("phase", phase),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
	}

	return retry.DoIfRetryableWithResult(phaseCtx, cfg, func() (T, error) {
		var zero T
		result, err := client.GenerateResponse(phaseCtx, prompt, prompts.SystemMessage, phaseTemperature[phase])
		if err != nil {
			return zero, fmt.Errorf("%s: %w", phase, err)
		}
		if result == nil {
			return zero, retry.Permanent(fmt.Errorf("%s: LLM returned nil result", phase))
		}

		p.logger.Debug("LLM call completed",
			zap.String("analysis_id", analysisID.String()),
			zap.String("phase", phase),
			zap.Int("prompt_tokens", result.PromptTokens),
			zap.Int("completion_tokens", result.CompletionTokens))

		v, err := parse(result.Content)
		if err != nil {
			return zero, retry.Permanent(fmt.Errorf("%s: %w", phase, err))
		}
		return v, nil
	})
}

// acceptPainPoints normalizes the detected items, drops the ones the database
// would reject, and filters out items similar to known pain points.
func (p *analysisPipeline) acceptPainPoints(logger *zap.Logger, pc *models.ProcessContext, detected []models.DetectedPainPoint) []models.DetectedPainPoint {
	valid := make([]models.DetectedPainPoint, 0, len(detected))
	for _, d := range detected {
		d.Title = strings.TrimSpace(d.Title)
		d.Category = models.PainPointCategory(normalizeEnum(string(d.Category)))
		d.Severity = models.Severity(normalizeEnum(string(d.Severity)))
		if d.Title == "" || !models.IsValidPainPointCategory(d.Category) || !models.IsValidSeverity(d.Severity) {
			logger.Warn("Skipping invalid detected pain point",
				zap.String("title", d.Title),
				zap.String("category", string(d.Category)),
				zap.String("severity", string(d.Severity)))
			continue
		}
		valid = append(valid, d)
	}

	known := pc.AllPainPoints()
	existing := make([]string, 0, len(known))
	for _, pp := range known {
		existing = append(existing, pp.Title)
	}

	accepted := FilterDuplicates(valid, existing, func(d models.DetectedPainPoint) string { return d.Title })
	if dropped := len(valid) - len(accepted); dropped > 0 {
		logger.Info("Dropped duplicate pain points", zap.Int("dropped", dropped))
	}
	return accepted
}

func normalizeRecommendations(logger *zap.Logger, recs []models.GeneratedRecommendation) []models.GeneratedRecommendation {
	out := make([]models.GeneratedRecommendation, 0, len(recs))
	for _, r := range recs {
		r.Title = strings.TrimSpace(r.Title)
		r.Category = models.RecommendationCategory(normalizeEnum(string(r.Category)))
		r.Priority = models.Severity(normalizeEnum(string(r.Priority)))
		r.Effort = models.Severity(normalizeEnum(string(r.Effort)))
		if r.Title == "" || !models.IsValidRecommendationCategory(r.Category) || !models.IsValidSeverity(r.Priority) {
			logger.Warn("Skipping invalid recommendation",
				zap.String("title", r.Title),
				zap.String("category", string(r.Category)),
				zap.String("priority", string(r.Priority)))
			continue
		}
		if r.Effort != "" && !models.IsValidSeverity(r.Effort) {
			r.Effort = ""
		}
		out = append(out, r)
	}
	return out
}

func normalizeGeneratedProcess(gp *models.GeneratedProcess, source *models.Process) *models.GeneratedProcess {
	if strings.TrimSpace(gp.Name) == "" {
		gp.Name = source.Name + " (TO-BE)"
	}
	for i := range gp.Steps {
		gp.Steps[i].Type = models.StepType(normalizeEnum(string(gp.Steps[i].Type)))
		if gp.Steps[i].Type == "" {
			gp.Steps[i].Type = models.StepTypeTask
		}
	}
	for i := range gp.Connections {
		gp.Connections[i].Type = models.ConnectionType(normalizeEnum(string(gp.Connections[i].Type)))
		if gp.Connections[i].Type == "" {
			gp.Connections[i].Type = models.ConnectionTypeDefault
		}
	}
	if gp.Steps == nil {
		gp.Steps = []models.GeneratedStep{}
	}
	if gp.Connections == nil {
		gp.Connections = []models.GeneratedConnection{}
	}
	return gp
}

// normalizeEnum maps "quick win" and "Quick-Win" to "QUICK_WIN".
func normalizeEnum(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// approvedRecommendations returns the process's stored approved
// recommendations in the shape the TO-BE prompt takes.
func (p *analysisPipeline) approvedRecommendations(ctx context.Context, processID uuid.UUID) ([]models.GeneratedRecommendation, error) {
	stored, err := p.recommendationRepo.ListByProcess(ctx, processID, models.RecommendationStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("load approved recommendations: %w", err)
	}

	recs := make([]models.GeneratedRecommendation, 0, len(stored))
	for _, r := range stored {
		recs = append(recs, models.GeneratedRecommendation{
			Title:               r.Title,
			Description:         r.Description,
			Category:            r.Category,
			Priority:            r.Priority,
			Effort:              r.Implementation.Effort,
			Timeline:            jsonutil.FlexibleString(r.Implementation.Timeline),
			ImplementationSteps: r.Implementation.Steps,
			ExpectedBenefits:    r.Metrics.ExpectedBenefits,
			Metrics:             r.Metrics.Metrics,
		})
	}
	return recs, nil
}

// buildResultRows derives the rows CompleteAnalysis inserts.
func buildResultRows(analysis *models.AIAnalysis, graph *models.ProcessGraph, results *models.AnalysisResults) {
	now := time.Now()
	analysisID := analysis.ID

	for _, d := range results.DetectedPainPoints {
		pp := &models.PainPoint{
			ID:             uuid.New(),
			OrganizationID: analysis.OrganizationID,
			ProcessID:      analysis.ProcessID,
			AnalysisID:     &analysisID,
			Category:       d.Category,
			Severity:       d.Severity,
			Title:          d.Title,
			Description:    d.Description,
			EstimatedCost:  d.EstimatedCost.String(),
			EstimatedTime:  d.EstimatedTime.String(),
			Frequency:      d.Frequency.String(),
			IsAIDetected:   true,
			CreatedAt:      now,
		}
		if step := findStep(graph, d.StepName); step != nil {
			stepID := step.ID
			pp.ProcessStepID = &stepID
		}
		results.PainPointRows = append(results.PainPointRows, pp)
	}

	for _, r := range results.Recommendations {
		results.RecommendationRows = append(results.RecommendationRows, &models.ProcessRecommendation{
			ID:             uuid.New(),
			OrganizationID: analysis.OrganizationID,
			ProcessID:      analysis.ProcessID,
			AnalysisID:     &analysisID,
			Category:       r.Category,
			Priority:       r.Priority,
			Title:          r.Title,
			Description:    r.Description,
			Implementation: models.RecommendationImplementation{
				Effort:   r.Effort,
				Timeline: r.Timeline.String(),
				Steps:    []string(r.ImplementationSteps),
			},
			Metrics: models.RecommendationMetrics{
				ExpectedBenefits: []string(r.ExpectedBenefits),
				Metrics:          r.Metrics,
			},
			Status:    models.RecommendationStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if gp := results.GeneratedProcess; gp != nil {
		results.TargetProcessRow = &models.TargetProcess{
			ID:                   uuid.New(),
			OrganizationID:       analysis.OrganizationID,
			ProcessID:            analysis.ProcessID,
			AnalysisID:           &analysisID,
			Name:                 gp.Name,
			GeneratedSteps:       gp.Steps,
			GeneratedConnections: gp.Connections,
			ImprovementSummary:   gp.ImprovementSummary,
			Status:               models.TargetProcessStatusDraft,
			CreatedAt:            now,
		}
	}
}

// findStep matches a model-supplied step name, exactly first, then ignoring case.
func findStep(graph *models.ProcessGraph, name string) *models.ProcessStep {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if s := graph.StepByName(name); s != nil {
		return s
	}
	for _, s := range graph.Steps {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}
