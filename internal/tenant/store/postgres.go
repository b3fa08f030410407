package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"orbit/internal/plan"
	"orbit/internal/platform/database"
	"orbit/internal/quota"
	"orbit/internal/tenant/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

const tenantColumns = `id, name, address, logo, plan, client_limit, user_limit, storage_limit, storage_used,
	checkout_ref, subscription_ref, customer_ref, created_at, updated_at`

// PostgresStore persists tenants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, t *models.Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant is required")
	}
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(t.ID),
		t.Name,
		t.Address,
		t.Logo,
		string(t.Plan),
		t.Limits.Clients,
		t.Limits.Users,
		t.Limits.StorageBytes,
		t.StorageUsed,
		database.NullString(t.CheckoutRef),
		database.NullString(t.SubscriptionRef),
		database.NullString(t.CustomerRef),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok {
			if strings.Contains(constraint, "checkout_ref") {
				return sentinel.Duplicate("checkout_ref")
			}
			return sentinel.Duplicate("id")
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.findOne(ctx, "id = $1", uuid.UUID(tenantID))
}

func (s *PostgresStore) FindByCheckoutRef(ctx context.Context, ref string) (*models.Tenant, error) {
	return s.findOne(ctx, "checkout_ref = $1", ref)
}

func (s *PostgresStore) FindBySubscriptionRef(ctx context.Context, ref string) (*models.Tenant, error) {
	if ref == "" {
		return nil, sentinel.ErrNotFound
	}
	return s.findOne(ctx, "subscription_ref = $1", ref)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE ` + where
	t, err := scanTenant(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return t, nil
}

// List returns a page of tenants, newest first, filtered by a case-insensitive name search.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Tenant, int, error) {
	exec := tx.Exec(ctx, s.db)
	pattern := "%" + strings.TrimSpace(filter.Search) + "%"

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants WHERE name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = total
	}
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE name ILIKE $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := exec.QueryContext(ctx, query, pattern, limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*models.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tenants: %w", err)
	}
	return tenants, total, nil
}

// Update persists profile, plan, ceilings and billing refs. storage_used is
// only touched by ChargeStorage and ReleaseStorage.
func (s *PostgresStore) Update(ctx context.Context, t *models.Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant is required")
	}
	query := `
		UPDATE tenants
		SET name = $2, address = $3, logo = $4, plan = $5, client_limit = $6, user_limit = $7,
			storage_limit = $8, subscription_ref = $9, customer_ref = $10, updated_at = $11
		WHERE id = $1
	`
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(t.ID),
		t.Name,
		t.Address,
		t.Logo,
		string(t.Plan),
		t.Limits.Clients,
		t.Limits.Users,
		t.Limits.StorageBytes,
		database.NullString(t.SubscriptionRef),
		database.NullString(t.CustomerRef),
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	return requireRow(res, "update tenant")
}

func (s *PostgresStore) Delete(ctx context.Context, tenantID id.TenantID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, uuid.UUID(tenantID))
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return requireRow(res, "delete tenant")
}

// LockUsage reads the limits row with FOR UPDATE. It must run inside a
// transaction for the lock to outlive the statement.
func (s *PostgresStore) LockUsage(ctx context.Context, tenantID id.TenantID) (*quota.Usage, error) {
	return s.usage(ctx, tenantID, " FOR UPDATE")
}

func (s *PostgresStore) GetUsage(ctx context.Context, tenantID id.TenantID) (*quota.Usage, error) {
	return s.usage(ctx, tenantID, "")
}

func (s *PostgresStore) usage(ctx context.Context, tenantID id.TenantID, suffix string) (*quota.Usage, error) {
	query := `SELECT client_limit, user_limit, storage_limit, storage_used FROM tenants WHERE id = $1` + suffix
	var u quota.Usage
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(tenantID)).Scan(
		&u.Limits.Clients, &u.Limits.Users, &u.Limits.StorageBytes, &u.StorageUsed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read tenant usage: %w", err)
	}
	return &u, nil
}

// ChargeStorage is a single conditional increment: the ceiling check and the
// write happen in one statement, so concurrent charges cannot overrun.
func (s *PostgresStore) ChargeStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error {
	query := `
		UPDATE tenants
		SET storage_used = storage_used + $2
		WHERE id = $1 AND (storage_limit = $3 OR storage_used + $2 <= storage_limit)
	`
	exec := tx.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx, query, uuid.UUID(tenantID), bytes, plan.Unlimited)
	if err != nil {
		return fmt.Errorf("charge storage: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("charge storage rows: %w", err)
	}
	if rows == 1 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE id = $1)`, uuid.UUID(tenantID)).Scan(&exists); err != nil {
		return fmt.Errorf("charge storage lookup: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrLimitReached
}

func (s *PostgresStore) ReleaseStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error {
	query := `UPDATE tenants SET storage_used = GREATEST(storage_used - $2, 0) WHERE id = $1`
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, query, uuid.UUID(tenantID), bytes)
	if err != nil {
		return fmt.Errorf("release storage: %w", err)
	}
	return requireRow(res, "release storage")
}

type tenantRow interface {
	Scan(dest ...any) error
}

func scanTenant(row tenantRow) (*models.Tenant, error) {
	var t models.Tenant
	var tenantID uuid.UUID
	var planName string
	var checkoutRef, subscriptionRef, customerRef sql.NullString
	if err := row.Scan(
		&tenantID, &t.Name, &t.Address, &t.Logo, &planName,
		&t.Limits.Clients, &t.Limits.Users, &t.Limits.StorageBytes, &t.StorageUsed,
		&checkoutRef, &subscriptionRef, &customerRef, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.ID = id.TenantID(tenantID)
	t.Plan = plan.Plan(planName)
	t.CheckoutRef = checkoutRef.String
	t.SubscriptionRef = subscriptionRef.String
	t.CustomerRef = customerRef.String
	return &t, nil
}

func requireRow(res sql.Result, action string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", action, err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
