package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"orbit/internal/client/models"
	"orbit/internal/platform/database"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	pkgstrings "orbit/pkg/platform/strings"
	"orbit/pkg/platform/tx"
)

const clientColumns = `id, tenant_id, name, email, email_normalized, phone, company, tags, assigned_to, created_by, created_at, updated_at`

// listWhere filters by tenant, optional assignee, search over name, company
// and tags, and any-of tag match. $5 is a JSON array of lowercase tags.
const listWhere = `tenant_id = $1
	AND ($2::uuid IS NULL OR assigned_to = $2)
	AND (name ILIKE $3 OR company ILIKE $3 OR tags::text ILIKE $3)
	AND ($4 = 0 OR EXISTS (
		SELECT 1 FROM jsonb_array_elements_text(tags) t
		WHERE lower(t) IN (SELECT jsonb_array_elements_text($5::jsonb))
	))`

// PostgresStore persists clients in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Client) error {
	if c == nil {
		return fmt.Errorf("client is required")
	}
	tags, err := encodeTags(c.Tags)
	if err != nil {
		return err
	}
	query := `INSERT INTO clients (` + clientColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		uuid.UUID(c.TenantID),
		c.Name,
		c.Email,
		c.EmailNormalized,
		c.Phone,
		c.Company,
		tags,
		nullUser(c.AssignedTo),
		nullUser(c.CreatedBy),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return dup
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(clientID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return c, nil
}

// List returns a page of the tenant's clients, newest first.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Client, int, error) {
	exec := tx.Exec(ctx, s.db)
	lowered := pkgstrings.DedupeAndTrimLower(filter.Tags)
	if lowered == nil {
		lowered = []string{}
	}
	tagFilter, err := json.Marshal(lowered)
	if err != nil {
		return nil, 0, fmt.Errorf("encode tag filter: %w", err)
	}
	args := []any{
		uuid.UUID(filter.TenantID),
		nullUser(filter.AssignedTo),
		"%" + strings.TrimSpace(filter.Search) + "%",
		len(lowered),
		string(tagFilter),
	}

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients WHERE `+listWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = total
	}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + listWhere + ` ORDER BY created_at DESC, id LIMIT $6 OFFSET $7`
	rows, err := exec.QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*models.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, total, nil
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Client) error {
	if c == nil {
		return fmt.Errorf("client is required")
	}
	tags, err := encodeTags(c.Tags)
	if err != nil {
		return err
	}
	query := `
		UPDATE clients
		SET name = $2, email = $3, email_normalized = $4, phone = $5, company = $6, tags = $7,
			assigned_to = $8, updated_at = $9
		WHERE id = $1
	`
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		c.Name,
		c.Email,
		c.EmailNormalized,
		c.Phone,
		c.Company,
		tags,
		nullUser(c.AssignedTo),
		c.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update client: %w", err)
	}
	return requireRow(res, "update client")
}

func (s *PostgresStore) Delete(ctx context.Context, clientID id.ClientID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, uuid.UUID(clientID))
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return requireRow(res, "delete client")
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var n int
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM clients WHERE tenant_id = $1`, uuid.UUID(tenantID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count clients by tenant: %w", err)
	}
	return n, nil
}

// CountByMonth groups the tenant's clients by UTC creation month, oldest first.
func (s *PostgresStore) CountByMonth(ctx context.Context, tenantID id.TenantID) ([]models.MonthlyCount, error) {
	query := `
		SELECT EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int AS year,
			EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month,
			COUNT(*)
		FROM clients
		WHERE tenant_id = $1
		GROUP BY year, month
		ORDER BY year, month
	`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("count clients by month: %w", err)
	}
	defer rows.Close()

	out := make([]models.MonthlyCount, 0)
	for rows.Next() {
		var mc models.MonthlyCount
		if err := rows.Scan(&mc.Year, &mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("scan monthly count: %w", err)
		}
		out = append(out, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly counts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	if _, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM clients WHERE tenant_id = $1`, uuid.UUID(tenantID)); err != nil {
		return fmt.Errorf("delete clients by tenant: %w", err)
	}
	return nil
}

func duplicateField(err error) error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return nil
	}
	if strings.Contains(constraint, "email") {
		return sentinel.Duplicate(FieldEmail)
	}
	return sentinel.Duplicate("id")
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func nullUser(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}

type clientRow interface {
	Scan(dest ...any) error
}

func scanClient(row clientRow) (*models.Client, error) {
	var c models.Client
	var clientID, tenantID uuid.UUID
	var assignedTo, createdBy uuid.NullUUID
	var tags []byte
	if err := row.Scan(
		&clientID, &tenantID, &c.Name, &c.Email, &c.EmailNormalized, &c.Phone, &c.Company,
		&tags, &assignedTo, &createdBy, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.ID = id.ClientID(clientID)
	c.TenantID = id.TenantID(tenantID)
	if assignedTo.Valid {
		c.AssignedTo = id.UserID(assignedTo.UUID)
	}
	if createdBy.Valid {
		c.CreatedBy = id.UserID(createdBy.UUID)
	}
	c.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &c, nil
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
