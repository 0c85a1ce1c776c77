package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/repositories"
)

// noopTenant returns a TenantContextFunc that hands back ctx unchanged.
func noopTenant() TenantContextFunc {
	return func(ctx context.Context, _ uuid.UUID) (context.Context, func(), error) {
		return ctx, func() {}, nil
	}
}

func noopSystem() SystemContextFunc {
	return func(ctx context.Context) (context.Context, func(), error) {
		return ctx, func() {}, nil
	}
}

// ----------------------------------------------------------------------------
// Process and pain points
// ----------------------------------------------------------------------------

type mockProcessRepo struct {
	graphs map[uuid.UUID]*models.ProcessGraph
	err    error
}

func newMockProcessRepo(graphs ...*models.ProcessGraph) *mockProcessRepo {
	m := &mockProcessRepo{graphs: make(map[uuid.UUID]*models.ProcessGraph)}
	for _, g := range graphs {
		m.graphs[g.Process.ID] = g
	}
	return m
}

func (m *mockProcessRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Process, error) {
	g, err := m.GetGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.Process, nil
}

func (m *mockProcessRepo) GetGraph(_ context.Context, id uuid.UUID) (*models.ProcessGraph, error) {
	if m.err != nil {
		return nil, m.err
	}
	g, ok := m.graphs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return g, nil
}

func (m *mockProcessRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.graphs[id]
	return ok, nil
}

type mockPainPointRepo struct {
	byProcess map[uuid.UUID][]*models.PainPoint
	err       error
}

func (m *mockPainPointRepo) ListByProcess(_ context.Context, processID uuid.UUID) ([]*models.PainPoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.byProcess == nil {
		return []*models.PainPoint{}, nil
	}
	return m.byProcess[processID], nil
}

// ----------------------------------------------------------------------------
// Analyses
// ----------------------------------------------------------------------------

// mockAnalysisRepo keeps analyses in memory and enforces the same guarded
// transitions as the database.
type mockAnalysisRepo struct {
	mu        sync.Mutex
	analyses  map[uuid.UUID]*models.AIAnalysis
	completed map[uuid.UUID]*models.AnalysisResults
	createErr error
	claimErr  error
}

func newMockAnalysisRepo() *mockAnalysisRepo {
	return &mockAnalysisRepo{
		analyses:  make(map[uuid.UUID]*models.AIAnalysis),
		completed: make(map[uuid.UUID]*models.AnalysisResults),
	}
}

func (m *mockAnalysisRepo) put(a *models.AIAnalysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.analyses[a.ID] = &cp
}

func (m *mockAnalysisRepo) get(id uuid.UUID) *models.AIAnalysis {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (m *mockAnalysisRepo) Create(_ context.Context, a *models.AIAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.analyses {
		if existing.ProcessID == a.ProcessID && existing.AnalysisType == a.AnalysisType && existing.Status.IsActive() {
			return apperrors.ErrConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = models.AnalysisStatusPending
	a.CreatedAt = time.Now()
	cp := *a
	m.analyses[a.ID] = &cp
	return nil
}

func (m *mockAnalysisRepo) GetByID(_ context.Context, id uuid.UUID) (*models.AIAnalysis, error) {
	if a := m.get(id); a != nil {
		return a, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAnalysisRepo) FindActive(_ context.Context, processID uuid.UUID, t models.AnalysisType) (*models.AIAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.analyses {
		if a.ProcessID == processID && a.AnalysisType == t && a.Status.IsActive() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAnalysisRepo) ListByProcess(_ context.Context, processID uuid.UUID) ([]*models.AIAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AIAnalysis, 0)
	for _, a := range m.analyses {
		if a.ProcessID == processID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockAnalysisRepo) Claim(_ context.Context, id, ownerID uuid.UUID, staleBefore time.Time) (*models.AIAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	a, ok := m.analyses[id]
	if !ok {
		return nil, apperrors.ErrConflict
	}
	stale := a.Status == models.AnalysisStatusInProgress &&
		(a.LastHeartbeat == nil || a.LastHeartbeat.Before(staleBefore))
	if a.Status != models.AnalysisStatusPending && !stale {
		return nil, apperrors.ErrConflict
	}
	now := time.Now()
	a.Status = models.AnalysisStatusInProgress
	a.OwnerID = &ownerID
	a.LastHeartbeat = &now
	if a.StartedAt == nil {
		a.StartedAt = &now
	}
	a.Attempts++
	cp := *a
	return &cp, nil
}

func (m *mockAnalysisRepo) Heartbeat(_ context.Context, id, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok || a.Status != models.AnalysisStatusInProgress || a.OwnerID == nil || *a.OwnerID != ownerID {
		return apperrors.ErrConflict
	}
	now := time.Now()
	a.LastHeartbeat = &now
	return nil
}

func (m *mockAnalysisRepo) CompleteAnalysis(_ context.Context, id, ownerID uuid.UUID, results *models.AnalysisResults) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok || a.Status != models.AnalysisStatusInProgress || a.OwnerID == nil || *a.OwnerID != ownerID {
		return apperrors.ErrInvalidTransition
	}
	now := time.Now()
	a.Status = models.AnalysisStatusCompleted
	a.Understanding = results.Understanding
	a.DetectedPainPoints = results.DetectedPainPoints
	a.Recommendations = results.Recommendations
	a.GeneratedProcess = results.GeneratedProcess
	a.Provider = results.Provider
	a.Model = results.Model
	a.CompletedAt = &now
	m.completed[id] = results
	return nil
}

func (m *mockAnalysisRepo) Fail(_ context.Context, id uuid.UUID, ownerID *uuid.UUID, kind models.AnalysisErrorKind, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok || a.Status.IsTerminal() {
		return apperrors.ErrInvalidTransition
	}
	if ownerID != nil && (a.OwnerID == nil || *a.OwnerID != *ownerID) {
		return apperrors.ErrInvalidTransition
	}
	now := time.Now()
	a.Status = models.AnalysisStatusFailed
	a.ErrorKind = &kind
	a.ErrorMessage = &message
	a.CompletedAt = &now
	return nil
}

func (m *mockAnalysisRepo) ListRecoverable(_ context.Context, staleBefore time.Time, limit int) ([]models.RecoverableAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RecoverableAnalysis
	for _, a := range m.analyses {
		stale := a.Status == models.AnalysisStatusInProgress &&
			(a.LastHeartbeat == nil || a.LastHeartbeat.Before(staleBefore))
		if a.Status == models.AnalysisStatusPending || stale {
			out = append(out, models.RecoverableAnalysis{
				ID:             a.ID,
				OrganizationID: a.OrganizationID,
				Status:         a.Status,
				Attempts:       a.Attempts,
			})
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Recommendations, target processes, api configurations
// ----------------------------------------------------------------------------

type mockRecommendationRepo struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*models.ProcessRecommendation
}

func newMockRecommendationRepo(recs ...*models.ProcessRecommendation) *mockRecommendationRepo {
	m := &mockRecommendationRepo{recs: make(map[uuid.UUID]*models.ProcessRecommendation)}
	for _, r := range recs {
		m.recs[r.ID] = r
	}
	return m
}

func (m *mockRecommendationRepo) ListByProcess(_ context.Context, processID uuid.UUID, status models.RecommendationStatus) ([]*models.ProcessRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ProcessRecommendation, 0)
	for _, r := range m.recs {
		if r.ProcessID == processID && (status == "" || r.Status == status) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRecommendationRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ProcessRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecommendationRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.RecommendationStatus) (*models.ProcessRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok || r.Status != from {
		return nil, apperrors.ErrInvalidTransition
	}
	r.Status = to
	cp := *r
	return &cp, nil
}

type mockTargetProcessRepo struct {
	targets []*models.TargetProcess
}

func (m *mockTargetProcessRepo) ListByProcess(_ context.Context, processID uuid.UUID) ([]*models.TargetProcess, error) {
	out := make([]*models.TargetProcess, 0)
	for _, tp := range m.targets {
		if tp.ProcessID == processID {
			out = append(out, tp)
		}
	}
	return out, nil
}

type mockAPIConfigRepo struct {
	configs []*models.APIConfiguration
	err     error
}

func (m *mockAPIConfigRepo) Create(_ context.Context, cfg *models.APIConfiguration) error {
	m.configs = append(m.configs, cfg)
	return nil
}

func (m *mockAPIConfigRepo) ListActive(_ context.Context, organizationID uuid.UUID) ([]*models.APIConfiguration, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.APIConfiguration, 0)
	for _, c := range m.configs {
		if c.OrganizationID == organizationID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

var (
	_ repositories.ProcessRepository          = (*mockProcessRepo)(nil)
	_ repositories.PainPointRepository        = (*mockPainPointRepo)(nil)
	_ repositories.AnalysisRepository         = (*mockAnalysisRepo)(nil)
	_ repositories.RecommendationRepository   = (*mockRecommendationRepo)(nil)
	_ repositories.TargetProcessRepository    = (*mockTargetProcessRepo)(nil)
	_ repositories.APIConfigurationRepository = (*mockAPIConfigRepo)(nil)
)

// ----------------------------------------------------------------------------
// Fixtures
// ----------------------------------------------------------------------------

// testGraph builds a CURRENT_STATE process: start -> review (120m, manual) -> post (15m, SAP) -> end.
func testGraph(orgID uuid.UUID) *models.ProcessGraph {
	processID := uuid.New()
	dur := func(v int) *int { return &v }
	steps := []*models.ProcessStep{
		{ID: uuid.New(), ProcessID: processID, Name: "Receive invoice", Type: models.StepTypeStart, Systems: []string{}},
		{ID: uuid.New(), ProcessID: processID, Name: "Manual review", Type: models.StepTypeTask, Duration: dur(120), Systems: []string{}},
		{ID: uuid.New(), ProcessID: processID, Name: "Post to ERP", Type: models.StepTypeTask, Duration: dur(15), Systems: []string{"SAP"}},
		{ID: uuid.New(), ProcessID: processID, Name: "Done", Type: models.StepTypeEnd, Systems: []string{}},
	}
	conns := make([]*models.ProcessConnection, 0, len(steps)-1)
	for i := 0; i < len(steps)-1; i++ {
		conns = append(conns, &models.ProcessConnection{
			ID:           uuid.New(),
			ProcessID:    processID,
			SourceStepID: steps[i].ID,
			TargetStepID: steps[i+1].ID,
			Type:         models.ConnectionTypeDefault,
		})
	}
	return &models.ProcessGraph{
		Process: &models.Process{
			ID:             processID,
			OrganizationID: orgID,
			Name:           "Invoice approval",
			Type:           models.ProcessTypeCurrentState,
		},
		Steps:       steps,
		Connections: conns,
	}
}
