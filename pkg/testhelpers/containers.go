package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/database"
)

// PostgresImage is the stock image the integration tests run against.
const PostgresImage = "postgres:16-alpine"

const (
	testDatabase      = "processx_test"
	testAdminUser     = "processx"
	testAdminPassword = "test_password"

	// The engine connects as a non-superuser so row-level security applies.
	testAppUser     = "processx_app"
	testAppPassword = "app_password"
)

// EngineDB is a migrated database reached through the application role.
// Admin bypasses RLS and is meant for fixtures and cleanup only.
type EngineDB struct {
	DB      *database.DB
	Admin   *pgxpool.Pool
	ConnStr string
}

var (
	sharedEngineDB   *EngineDB
	sharedEngineOnce sync.Once
	sharedEngineErr  error
)

// GetEngineDB returns the engine database shared by every integration test
// in the package. The container starts on first use and lives for the run.
func GetEngineDB(t *testing.T) *EngineDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedEngineOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		sharedEngineDB, sharedEngineErr = startEngineDB(ctx)
	})
	if sharedEngineErr != nil {
		t.Fatalf("Failed to set up engine database: %v", sharedEngineErr)
	}
	return sharedEngineDB
}

func startEngineDB(ctx context.Context) (*EngineDB, error) {
	container, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testAdminUser),
		postgres.WithPassword(testAdminPassword),
		// The entrypoint restarts the server once after init.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	adminURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("admin connection string: %w", err)
	}
	admin, err := pgxpool.New(ctx, adminURL)
	if err != nil {
		return nil, fmt.Errorf("admin pool: %w", err)
	}

	if err := migrate(ctx, admin); err != nil {
		admin.Close()
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		admin.Close()
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		admin.Close()
		return nil, fmt.Errorf("container port: %w", err)
	}

	appURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testAppUser, testAppPassword, host, port.Port(), testDatabase)
	db, err := database.NewConnection(ctx, &database.Config{
		URL:              appURL,
		MaxConnections:   5,
		StatementTimeout: 10 * time.Second,
		ApplicationName:  "processx-engine-test",
	})
	if err != nil {
		admin.Close()
		return nil, fmt.Errorf("connect as application role: %w", err)
	}

	return &EngineDB{DB: db, Admin: admin, ConnStr: appURL}, nil
}

// migrate applies the embedded migrations and creates the non-superuser
// role the engine pool logs in as.
func migrate(ctx context.Context, admin *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(admin)
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	stmts := []string{
		fmt.Sprintf(`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = '%s') THEN
				CREATE ROLE %s LOGIN PASSWORD '%s';
			END IF;
		END $$`, testAppUser, testAppUser, testAppPassword),
		fmt.Sprintf(`GRANT USAGE ON SCHEMA public TO %s`, testAppUser),
		fmt.Sprintf(`GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public TO %s`, testAppUser),
	}
	for _, stmt := range stmts {
		if _, err := admin.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("prepare application role: %w", err)
		}
	}
	return nil
}
