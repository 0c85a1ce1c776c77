//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/processx-inc/processx-engine/pkg/database"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/testhelpers"
)

// repoTestContext holds one organization with one seeded process.
type repoTestContext struct {
	t         *testing.T
	engineDB  *testhelpers.EngineDB
	orgID     uuid.UUID
	processID uuid.UUID
	stepIDs   []uuid.UUID
}

// setupRepoTest creates an organization and a three-step process.
// The organization and everything under it is deleted on test cleanup.
func setupRepoTest(t *testing.T) *repoTestContext {
	t.Helper()
	tc := &repoTestContext{
		t:         t,
		engineDB:  testhelpers.GetEngineDB(t),
		orgID:     uuid.New(),
		processID: uuid.New(),
	}
	t.Cleanup(tc.cleanup)
	tc.seed()
	return tc
}

func (tc *repoTestContext) seed() {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithoutTenant(ctx)
	if err != nil {
		tc.t.Fatalf("failed to create scope for seeding: %v", err)
	}
	defer scope.Close()

	exec := func(query string, args ...any) {
		tc.t.Helper()
		if _, err := scope.Conn.Exec(ctx, query, args...); err != nil {
			tc.t.Fatalf("seed failed: %v", err)
		}
	}

	exec(`INSERT INTO organizations (id, name) VALUES ($1, $2)`, tc.orgID, "Acme "+tc.orgID.String()[:8])
	exec(`INSERT INTO processes (id, organization_id, name, type) VALUES ($1, $2, $3, 'CURRENT_STATE')`,
		tc.processID, tc.orgID, "Invoice approval")

	steps := []struct {
		name     string
		stepType string
		duration *int
		systems  []string
	}{
		{"Receive invoice", "START", nil, []string{}},
		{"Manual review", "TASK", intPtr(120), []string{}},
		{"Post to ERP", "TASK", intPtr(15), []string{"SAP"}},
	}
	for i, s := range steps {
		id := uuid.New()
		tc.stepIDs = append(tc.stepIDs, id)
		exec(`INSERT INTO process_steps (id, process_id, name, type, duration, systems, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, tc.processID, s.name, s.stepType, s.duration, s.systems, len(steps)-i)
	}
	exec(`INSERT INTO process_connections (id, process_id, source_step_id, target_step_id)
		VALUES ($1, $2, $3, $4)`, uuid.New(), tc.processID, tc.stepIDs[0], tc.stepIDs[1])
	exec(`INSERT INTO process_connections (id, process_id, source_step_id, target_step_id, label)
		VALUES ($1, $2, $3, $4, 'approved')`, uuid.New(), tc.processID, tc.stepIDs[1], tc.stepIDs[2])
}

func (tc *repoTestContext) cleanup() {
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithoutTenant(ctx)
	if err != nil {
		tc.t.Errorf("failed to create scope for cleanup: %v", err)
		return
	}
	defer scope.Close()
	_, _ = scope.Conn.Exec(ctx, "DELETE FROM organizations WHERE id = $1", tc.orgID)
}

// tenantContext returns a context bound to the test organization.
func (tc *repoTestContext) tenantContext() (context.Context, func()) {
	tc.t.Helper()
	return tc.contextFor(tc.orgID)
}

func (tc *repoTestContext) contextFor(orgID uuid.UUID) (context.Context, func()) {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithTenant(ctx, orgID)
	if err != nil {
		tc.t.Fatalf("failed to create tenant scope: %v", err)
	}
	return database.SetTenantScope(ctx, scope), scope.Close
}

// systemContext returns a context whose scope sees every tenant.
func (tc *repoTestContext) systemContext() (context.Context, func()) {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithoutTenant(ctx)
	if err != nil {
		tc.t.Fatalf("failed to create scope: %v", err)
	}
	return database.SetTenantScope(ctx, scope), scope.Close
}

// createAnalysis inserts a PENDING analysis of type t.
func (tc *repoTestContext) createAnalysis(ctx context.Context, t models.AnalysisType) *models.AIAnalysis {
	tc.t.Helper()
	a := &models.AIAnalysis{
		OrganizationID: tc.orgID,
		ProcessID:      tc.processID,
		AnalysisType:   t,
	}
	if err := NewAnalysisRepository().Create(ctx, a); err != nil {
		tc.t.Fatalf("failed to create analysis: %v", err)
	}
	return a
}

func intPtr(v int) *int { return &v }

// bypassContextFor binds orgID to a superuser connection, which row-level
// security does not restrict. Only the repositories' own organization
// predicates separate tenants on it.
func (tc *repoTestContext) bypassContextFor(orgID uuid.UUID) (context.Context, func()) {
	tc.t.Helper()
	ctx := context.Background()
	conn, err := tc.engineDB.Admin.Acquire(ctx)
	if err != nil {
		tc.t.Fatalf("failed to acquire admin connection: %v", err)
	}
	scope := &database.TenantScope{Conn: conn, OrganizationID: orgID}
	return database.SetTenantScope(ctx, scope), conn.Release
}
