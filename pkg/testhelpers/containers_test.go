//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestEngineDB_MigrationsApplied(t *testing.T) {
	engineDB := GetEngineDB(t)

	ctx := context.Background()

	tables := []string{
		"organizations",
		"processes",
		"process_steps",
		"process_connections",
		"ai_analyses",
		"pain_points",
		"process_recommendations",
		"target_processes",
		"api_configurations",
	}
	for _, table := range tables {
		var exists bool
		err := engineDB.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to query %s: %v", table, err)
		}
		if !exists {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestEngineDB_ConnectsAsNonSuperuser(t *testing.T) {
	engineDB := GetEngineDB(t)

	var superuser bool
	err := engineDB.DB.QueryRow(context.Background(),
		"SELECT rolsuper FROM pg_roles WHERE rolname = current_user").Scan(&superuser)
	if err != nil {
		t.Fatalf("failed to read role: %v", err)
	}
	if superuser {
		t.Error("engine pool must not bypass row-level security")
	}
}

func TestEngineDB_AdminPoolIsSuperuser(t *testing.T) {
	engineDB := GetEngineDB(t)

	var superuser bool
	err := engineDB.Admin.QueryRow(context.Background(),
		"SELECT rolsuper FROM pg_roles WHERE rolname = current_user").Scan(&superuser)
	if err != nil {
		t.Fatalf("failed to read role: %v", err)
	}
	if !superuser {
		t.Error("admin pool should connect as the container superuser")
	}
}
