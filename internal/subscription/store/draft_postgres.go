package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orbit/internal/plan"
	"orbit/internal/platform/database"
	"orbit/internal/subscription/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

const draftColumns = `id, tenant_id, name, address, logo, plan, email, expires_at, consumed_at, created_at`

// PostgresDrafts persists checkout drafts in PostgreSQL.
type PostgresDrafts struct {
	db *sql.DB
}

func NewPostgresDrafts(db *sql.DB) *PostgresDrafts {
	return &PostgresDrafts{db: db}
}

func (s *PostgresDrafts) Create(ctx context.Context, d *models.CheckoutDraft) error {
	query := `INSERT INTO checkout_drafts (` + draftColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		uuid.UUID(d.TenantID),
		d.Name,
		d.Address,
		d.Logo,
		string(d.Plan),
		d.Email,
		d.ExpiresAt,
		d.ConsumedAt,
		d.CreatedAt,
	)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return sentinel.Duplicate("id")
		}
		return fmt.Errorf("create checkout draft: %w", err)
	}
	return nil
}

func (s *PostgresDrafts) FindByID(ctx context.Context, draftID id.DraftID) (*models.CheckoutDraft, error) {
	query := `SELECT ` + draftColumns + ` FROM checkout_drafts WHERE id = $1`
	d, err := scanDraft(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(draftID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find checkout draft: %w", err)
	}
	return d, nil
}

// MarkConsumed stamps the draft once. A second call returns sentinel.ErrAlreadyUsed.
func (s *PostgresDrafts) MarkConsumed(ctx context.Context, draftID id.DraftID, at time.Time) error {
	exec := tx.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx,
		`UPDATE checkout_drafts SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`,
		uuid.UUID(draftID), at,
	)
	if err != nil {
		return fmt.Errorf("consume checkout draft: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume checkout draft rows: %w", err)
	}
	if rows == 1 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM checkout_drafts WHERE id = $1)`, uuid.UUID(draftID)).Scan(&exists); err != nil {
		return fmt.Errorf("consume checkout draft lookup: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrAlreadyUsed
}

func (s *PostgresDrafts) Delete(ctx context.Context, draftID id.DraftID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM checkout_drafts WHERE id = $1`, uuid.UUID(draftID))
	if err != nil {
		return fmt.Errorf("delete checkout draft: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete checkout draft rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// DeleteExpired removes drafts that expired at or before now and returns them.
func (s *PostgresDrafts) DeleteExpired(ctx context.Context, now time.Time) ([]*models.CheckoutDraft, error) {
	query := `DELETE FROM checkout_drafts WHERE expires_at <= $1 RETURNING ` + draftColumns
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("delete expired drafts: %w", err)
	}
	defer rows.Close()

	var removed []*models.CheckoutDraft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkout draft: %w", err)
		}
		removed = append(removed, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkout drafts: %w", err)
	}
	return removed, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanDraft(r row) (*models.CheckoutDraft, error) {
	var d models.CheckoutDraft
	var draftID, tenantID uuid.UUID
	var planName string
	var consumedAt sql.NullTime
	if err := r.Scan(&draftID, &tenantID, &d.Name, &d.Address, &d.Logo, &planName, &d.Email,
		&d.ExpiresAt, &consumedAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.ID = id.DraftID(draftID)
	d.TenantID = id.TenantID(tenantID)
	d.Plan = plan.Plan(planName)
	if consumedAt.Valid {
		at := consumedAt.Time
		d.ConsumedAt = &at
	}
	return &d, nil
}
