//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"orbit/internal/platform/migrate"
	id "orbit/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

func startPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("orbit_test"),
		postgres.WithUsername("orbit"),
		postgres.WithPassword("orbit_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	fail := func(step string, err error) (*PostgresContainer, error) {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail("connection string", err)
	}
	if err := migrate.Up(dsn); err != nil {
		return fail("migrate", err)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fail("open", err)
	}

	// Ryuk removes the container when the test process exits.
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}, nil
}

// TruncateTables clears all data from the specified tables.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateModuleTables empties every application table.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"processed_events",
		"checkout_drafts",
		"activities",
		"clients",
		"users",
		"tenants",
	)
}

// Exec runs a SQL statement and returns the result.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// QueryRow runs a SQL query expected to return a single row.
func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTestTenant inserts a Free tenant and returns its ID.
func (p *PostgresContainer) CreateTestTenant(ctx context.Context, t testing.TB) id.TenantID {
	t.Helper()
	tenantID := id.NewTenantID()
	_, err := p.Exec(ctx, `
		INSERT INTO tenants (id, name, plan, client_limit, user_limit, storage_limit, storage_used, created_at, updated_at)
		VALUES ($1, $2, 'Free', 10, 2, 104857600, 0, NOW(), NOW())
	`, tenantID.String(), "Test Tenant "+uuid.NewString())
	if err != nil {
		t.Fatalf("CreateTestTenant: %v", err)
	}
	return tenantID
}

// CreateTestUser inserts an active Staff user for the given tenant and returns its ID.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, tenantID id.TenantID) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	email := "test-" + uuid.NewString() + "@example.com"
	_, err := p.Exec(ctx, `
		INSERT INTO users (id, tenant_id, name, email, email_normalized, password_hash, role, active, created_at, updated_at)
		VALUES ($1, $2, 'Test User', $3, $3, 'hash', 'Staff', TRUE, NOW(), NOW())
	`, userID.String(), tenantID.String(), email)
	if err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	return userID
}
