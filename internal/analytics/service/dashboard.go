package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"orbit/internal/access"
	"orbit/internal/analytics/models"
	tenantModels "orbit/internal/tenant/models"
	dErrors "orbit/pkg/domain-errors"
)

// Dashboard summarizes every organization. Tenants are loaded concurrently,
// at most s.concurrency at a time; the first failure cancels the rest.
func (s *Service) Dashboard(ctx context.Context) ([]*models.TenantSummary, error) {
	if _, err := s.gate.Check(ctx, access.OpDashboard); err != nil {
		return nil, err
	}
	tenants, _, err := s.tenants.List(ctx, tenantModels.ListFilter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}

	// Each goroutine writes only its own index.
	rows := make([]*models.TenantSummary, len(tenants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range tenants {
		g.Go(func() error {
			row, err := s.summarize(gctx, t)
			if err != nil {
				return fmt.Errorf("summarize tenant %s: %w", t.ID, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build dashboard")
	}
	return rows, nil
}

func (s *Service) summarize(ctx context.Context, t *tenantModels.Tenant) (*models.TenantSummary, error) {
	users, err := s.users.CountByTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	clients, err := s.clients.CountByTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.CountByTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	assignees, err := s.activities.CountByAssignee(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &models.TenantSummary{
		TenantID:      t.ID,
		Name:          t.Name,
		Plan:          t.Plan,
		Limits:        t.Limits,
		StorageUsed:   t.StorageUsed,
		UserCount:     users,
		ActiveUsers:   len(assignees),
		ClientCount:   clients,
		ActivityCount: activities,
	}, nil
}
