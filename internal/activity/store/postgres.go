package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"orbit/internal/activity/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

const activityColumns = `id, tenant_id, client_id, assigned_to, created_by, type, description, date, attachments, storage_bytes, created_at, updated_at`

const listWhere = `tenant_id = $1
	AND ($2::uuid IS NULL OR client_id = $2)
	AND ($3 = '' OR type = $3)
	AND ($4::uuid IS NULL OR assigned_to = $4)
	AND description ILIKE $5`

// PostgresStore persists activities in PostgreSQL. Attachments are kept as
// a jsonb array on the row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Activity) error {
	if a == nil {
		return fmt.Errorf("activity is required")
	}
	files, err := encodeAttachments(a.Attachments)
	if err != nil {
		return err
	}
	query := `INSERT INTO activities (` + activityColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.ID),
		uuid.UUID(a.TenantID),
		uuid.UUID(a.ClientID),
		nullUser(a.AssignedTo),
		nullUser(a.CreatedBy),
		string(a.Type),
		a.Description,
		a.Date,
		files,
		a.StorageBytes,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	return s.find(ctx, activityID, "")
}

// LockByID reads the row with FOR UPDATE. It must run inside a transaction
// for the lock to outlive the statement.
func (s *PostgresStore) LockByID(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	return s.find(ctx, activityID, " FOR UPDATE")
}

func (s *PostgresStore) find(ctx context.Context, activityID id.ActivityID, suffix string) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1` + suffix
	a, err := scanActivity(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(activityID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find activity: %w", err)
	}
	return a, nil
}

// List returns a page of the tenant's activities, latest date first.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Activity, int, error) {
	exec := tx.Exec(ctx, s.db)
	args := []any{
		uuid.UUID(filter.TenantID),
		uuid.NullUUID{UUID: uuid.UUID(filter.ClientID), Valid: !filter.ClientID.IsNil()},
		string(filter.Type),
		nullUser(filter.AssignedTo),
		"%" + strings.TrimSpace(filter.Search) + "%",
	}
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities WHERE `+listWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = total
	}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE ` + listWhere + ` ORDER BY date DESC, id LIMIT $6 OFFSET $7`
	activities, err := s.query(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

// ListBetween returns activities of every tenant dated in [from, to).
func (s *PostgresStore) ListBetween(ctx context.Context, from, to time.Time) ([]*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE date >= $1 AND date < $2 ORDER BY date ASC, id`
	return s.query(ctx, query, from, to)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Activity, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]*models.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return activities, nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Activity) error {
	if a == nil {
		return fmt.Errorf("activity is required")
	}
	files, err := encodeAttachments(a.Attachments)
	if err != nil {
		return err
	}
	query := `
		UPDATE activities
		SET client_id = $2, assigned_to = $3, type = $4, description = $5, date = $6,
			attachments = $7, storage_bytes = $8, updated_at = $9
		WHERE id = $1
	`
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.ID),
		uuid.UUID(a.ClientID),
		nullUser(a.AssignedTo),
		string(a.Type),
		a.Description,
		a.Date,
		files,
		a.StorageBytes,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return requireRow(res, "update activity")
}

func (s *PostgresStore) Delete(ctx context.Context, activityID id.ActivityID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, uuid.UUID(activityID))
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return requireRow(res, "delete activity")
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var n int
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM activities WHERE tenant_id = $1`, uuid.UUID(tenantID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count activities by tenant: %w", err)
	}
	return n, nil
}

// CountByAssignee counts assigned activities per user, busiest first.
func (s *PostgresStore) CountByAssignee(ctx context.Context, tenantID id.TenantID) ([]models.AssigneeCount, error) {
	query := `
		SELECT assigned_to, COUNT(*) AS n
		FROM activities
		WHERE tenant_id = $1 AND assigned_to IS NOT NULL
		GROUP BY assigned_to
		ORDER BY n DESC, assigned_to
	`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("count activities by assignee: %w", err)
	}
	defer rows.Close()

	out := make([]models.AssigneeCount, 0)
	for rows.Next() {
		var userID uuid.UUID
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("scan assignee count: %w", err)
		}
		out = append(out, models.AssigneeCount{UserID: id.UserID(userID), Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignee counts: %w", err)
	}
	return out, nil
}

// AttachmentURLsByTenant lists every attachment URL of the tenant.
func (s *PostgresStore) AttachmentURLsByTenant(ctx context.Context, tenantID id.TenantID) ([]string, error) {
	query := `
		SELECT f->>'url'
		FROM activities, jsonb_array_elements(attachments) f
		WHERE tenant_id = $1
		ORDER BY 1
	`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list attachment urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan attachment url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachment urls: %w", err)
	}
	return urls, nil
}

func (s *PostgresStore) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	if _, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM activities WHERE tenant_id = $1`, uuid.UUID(tenantID)); err != nil {
		return fmt.Errorf("delete activities by tenant: %w", err)
	}
	return nil
}

func encodeAttachments(files []models.Attachment) (string, error) {
	if files == nil {
		files = []models.Attachment{}
	}
	b, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("encode attachments: %w", err)
	}
	return string(b), nil
}

func nullUser(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}

type activityRow interface {
	Scan(dest ...any) error
}

func scanActivity(row activityRow) (*models.Activity, error) {
	var a models.Activity
	var activityID, tenantID, clientID uuid.UUID
	var assignedTo, createdBy uuid.NullUUID
	var kind string
	var files []byte
	if err := row.Scan(
		&activityID, &tenantID, &clientID, &assignedTo, &createdBy, &kind, &a.Description, &a.Date,
		&files, &a.StorageBytes, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.ID = id.ActivityID(activityID)
	a.TenantID = id.TenantID(tenantID)
	a.ClientID = id.ClientID(clientID)
	if assignedTo.Valid {
		a.AssignedTo = id.UserID(assignedTo.UUID)
	}
	if createdBy.Valid {
		a.CreatedBy = id.UserID(createdBy.UUID)
	}
	a.Type = models.Type(kind)
	a.Attachments = []models.Attachment{}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &a.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	return &a, nil
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
