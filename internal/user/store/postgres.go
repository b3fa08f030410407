package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"orbit/internal/access"
	"orbit/internal/platform/database"
	"orbit/internal/user/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

const userColumns = `id, tenant_id, name, email, email_normalized, password_hash, role, active, created_at, updated_at`

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID),
		nullTenant(u.TenantID),
		u.Name,
		u.Email,
		u.EmailNormalized,
		u.PasswordHash,
		string(u.Role),
		u.Active,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return dup
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `id = $1`, uuid.UUID(userID))
}

// FindByEmail looks up a normalized address within a tenant. A nil tenant
// matches only the SuperAdmin.
func (s *PostgresStore) FindByEmail(ctx context.Context, tenantID id.TenantID, normalized string) (*models.User, error) {
	return s.findOne(ctx, `tenant_id IS NOT DISTINCT FROM $1 AND email_normalized = $2`, nullTenant(tenantID), normalized)
}

// FirstActive returns the earliest created active user of role in the tenant.
func (s *PostgresStore) FirstActive(ctx context.Context, tenantID id.TenantID, role access.Role) (*models.User, error) {
	return s.findOne(ctx, `tenant_id = $1 AND role = $2 AND active ORDER BY created_at ASC, id LIMIT 1`,
		uuid.UUID(tenantID), string(role))
}

func (s *PostgresStore) findOne(ctx context.Context, where string, args ...any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u, err := scanUser(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// List returns a page of the tenant's users, newest first. The SuperAdmin is never listed.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.User, int, error) {
	exec := tx.Exec(ctx, s.db)
	where := `tenant_id = $1 AND role <> 'SuperAdmin' AND ($2 = '' OR role = $2)
		AND (name ILIKE $3 OR email ILIKE $3)`
	args := []any{uuid.UUID(filter.TenantID), string(filter.Role), "%" + strings.TrimSpace(filter.Search) + "%"}

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = total
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY created_at DESC, id LIMIT $4 OFFSET $5`
	users, err := s.query(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 ORDER BY created_at ASC, id`
	return s.query(ctx, query, uuid.UUID(tenantID))
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	query := `
		UPDATE users
		SET name = $2, email = $3, email_normalized = $4, password_hash = $5, role = $6, active = $7, updated_at = $8
		WHERE id = $1
	`
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID),
		u.Name,
		u.Email,
		u.EmailNormalized,
		u.PasswordHash,
		string(u.Role),
		u.Active,
		u.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res, "update user")
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res, "delete user")
}

// CountByTenant counts the tenant's users for quota admission.
func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var n int
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE tenant_id = $1`, uuid.UUID(tenantID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users by tenant: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountByRole(ctx context.Context, role access.Role) (int, error) {
	var n int
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	if _, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM users WHERE tenant_id = $1`, uuid.UUID(tenantID)); err != nil {
		return fmt.Errorf("delete users by tenant: %w", err)
	}
	return nil
}

// duplicateField maps the users table's unique indexes to field names.
func duplicateField(err error) error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(constraint, "owner"):
		return sentinel.Duplicate(FieldOwner)
	case strings.Contains(constraint, "superadmin"):
		return sentinel.Duplicate(FieldSuperAdmin)
	case strings.Contains(constraint, "email"):
		return sentinel.Duplicate(FieldEmail)
	default:
		return sentinel.Duplicate("id")
	}
}

func nullTenant(tenantID id.TenantID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(tenantID), Valid: !tenantID.IsNil()}
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*models.User, error) {
	var u models.User
	var userID uuid.UUID
	var tenantID uuid.NullUUID
	var role string
	if err := row.Scan(
		&userID, &tenantID, &u.Name, &u.Email, &u.EmailNormalized, &u.PasswordHash,
		&role, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	if tenantID.Valid {
		u.TenantID = id.TenantID(tenantID.UUID)
	}
	u.Role = access.Role(role)
	return &u, nil
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
