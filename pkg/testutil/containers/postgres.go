//go:build integration

package containers

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// reliefhub schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts a PostgreSQL container and applies the schema
// from migrations/.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("reliefhub_test"),
		tcpostgres.WithUsername("reliefhub"),
		tcpostgres.WithPassword("reliefhub"),
		tcpostgres.WithInitScripts(migrationFiles(t)...),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to create pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		URL:       url,
		Pool:      pool,
	}
}

// TruncateTables empties all application tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
TRUNCATE TABLE audit_events, event_comments, event_volunteers, events,
	request_donors, donations, funding_requests, users CASCADE;
`)
	return err
}

// migrationFiles resolves the repository's migrations directory relative to
// this source file so tests work from any package.
func migrationFiles(t *testing.T) []string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to locate caller for migrations path")
	}
	root := filepath.Join(filepath.Dir(thisFile), "..", "..", "..")

	pattern := filepath.Join(root, "migrations", "*.sql")
	files, err := filepath.Glob(pattern)
	if err != nil || len(files) == 0 {
		t.Fatalf("no migration files found at %s", pattern)
	}
	return files
}
