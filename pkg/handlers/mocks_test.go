package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/audit"
	"github.com/processx-inc/processx-engine/pkg/auth"
	"github.com/processx-inc/processx-engine/pkg/models"
)

// ============================================================================
// Service mocks
// ============================================================================

type mockAnalysisService struct {
	analysis *models.AIAnalysis
	created  bool
	list     []*models.AIAnalysis
	err      error

	gotOrgID uuid.UUID
	gotType  models.AnalysisType
	calls    int
}

func (m *mockAnalysisService) RequestAnalysis(ctx context.Context, organizationID, processID uuid.UUID, analysisType models.AnalysisType) (*models.AIAnalysis, bool, error) {
	m.calls++
	m.gotOrgID = organizationID
	m.gotType = analysisType
	if m.err != nil {
		return nil, false, m.err
	}
	return m.analysis, m.created, nil
}

func (m *mockAnalysisService) GetAnalysis(ctx context.Context, analysisID uuid.UUID) (*models.AIAnalysis, error) {
	m.calls++
	return m.analysis, m.err
}

func (m *mockAnalysisService) ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.AIAnalysis, error) {
	m.calls++
	return m.list, m.err
}

type mockRecommendationService struct {
	recs      []*models.ProcessRecommendation
	rec       *models.ProcessRecommendation
	err       error
	gotStatus models.RecommendationStatus
	applied   string
}

func (m *mockRecommendationService) List(ctx context.Context, processID uuid.UUID, status models.RecommendationStatus) ([]*models.ProcessRecommendation, error) {
	m.gotStatus = status
	return m.recs, m.err
}

func (m *mockRecommendationService) Approve(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error) {
	return m.apply("approve")
}

func (m *mockRecommendationService) Reject(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error) {
	return m.apply("reject")
}

func (m *mockRecommendationService) MarkImplemented(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error) {
	return m.apply("implement")
}

func (m *mockRecommendationService) apply(action string) (*models.ProcessRecommendation, error) {
	m.applied = action
	if m.err != nil {
		return nil, m.err
	}
	return m.rec, nil
}

type mockProcessService struct {
	health          *models.ProcessHealth
	painPoints      []*models.PainPoint
	targetProcesses []*models.TargetProcess
	err             error
}

func (m *mockProcessService) GetHealth(ctx context.Context, processID uuid.UUID) (*models.ProcessHealth, error) {
	return m.health, m.err
}

func (m *mockProcessService) ListPainPoints(ctx context.Context, processID uuid.UUID) ([]*models.PainPoint, error) {
	return m.painPoints, m.err
}

func (m *mockProcessService) ListTargetProcesses(ctx context.Context, processID uuid.UUID) ([]*models.TargetProcess, error) {
	return m.targetProcesses, m.err
}

// ============================================================================
// Auth helpers
// ============================================================================

// stubAuthService accepts any request carrying a bearer header and assigns it orgID.
type stubAuthService struct {
	orgID uuid.UUID
}

func (s *stubAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	if r.Header.Get("Authorization") == "" {
		return nil, "", auth.ErrMissingAuthorization
	}
	return &auth.Claims{OrganizationID: s.orgID.String()}, "token", nil
}

func (s *stubAuthService) RequireOrganization(claims *auth.Claims) error {
	if claims.OrganizationID == uuid.Nil.String() {
		return auth.ErrMissingOrganization
	}
	return nil
}

func passthroughTenant(next http.HandlerFunc) http.HandlerFunc { return next }

// withOrg attaches claims for orgID the way RequireAuth does.
func withOrg(r *http.Request, orgID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), auth.ClaimsKey, &auth.Claims{OrganizationID: orgID.String()})
	return r.WithContext(ctx)
}

func testAuditor() *audit.Auditor { return audit.NewAuditor(zap.NewNop()) }
