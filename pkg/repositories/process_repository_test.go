//go:build integration

package repositories

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
)

func TestProcessRepository_GetGraph(t *testing.T) {
	tc := setupRepoTest(t)
	ctx, cleanup := tc.tenantContext()
	defer cleanup()

	graph, err := NewProcessRepository().GetGraph(ctx, tc.processID)
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}

	if graph.Process.ID != tc.processID {
		t.Errorf("expected process %s, got %s", tc.processID, graph.Process.ID)
	}
	if len(graph.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(graph.Steps))
	}
	// Seeded in reverse sort order.
	wantOrder := []string{"Post to ERP", "Manual review", "Receive invoice"}
	for i, name := range wantOrder {
		if graph.Steps[i].Name != name {
			t.Errorf("step %d: expected %q, got %q", i, name, graph.Steps[i].Name)
		}
	}
	if graph.Steps[2].Duration != nil {
		t.Errorf("expected nil duration for start step, got %v", *graph.Steps[2].Duration)
	}
	if graph.Steps[2].Systems == nil {
		t.Error("expected empty systems slice, got nil")
	}
	if len(graph.Connections) != 2 {
		t.Errorf("expected 2 connections, got %d", len(graph.Connections))
	}
}

func TestProcessRepository_GetGraph_NotFound(t *testing.T) {
	tc := setupRepoTest(t)
	ctx, cleanup := tc.tenantContext()
	defer cleanup()

	_, err := NewProcessRepository().GetGraph(ctx, uuid.New())
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProcessRepository_OtherTenantCannotSeeProcess(t *testing.T) {
	tc := setupRepoTest(t)
	other := setupRepoTest(t)

	ctx, cleanup := tc.contextFor(other.orgID)
	defer cleanup()

	repo := NewProcessRepository()
	exists, err := repo.Exists(ctx, tc.processID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("process of another organization should not be visible")
	}

	if _, err := repo.GetByID(ctx, tc.processID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound across tenants, got %v", err)
	}
}

func TestProcessRepository_NoTenantScope(t *testing.T) {
	_, err := NewProcessRepository().GetGraph(t.Context(), uuid.New())
	if err == nil {
		t.Fatal("expected error without tenant scope")
	}
}
