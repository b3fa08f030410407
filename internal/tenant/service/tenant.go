package service

import (
	"context"

	"orbit/internal/access"
	"orbit/internal/objectstore"
	"orbit/internal/plan"
	subModels "orbit/internal/subscription/models"
	"orbit/internal/tenant/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

const logoFolder = "org/logo"

// Create uploads the logo and then either creates a Free tenant right away
// or opens a checkout for a paid plan; the paid tenant is created when the
// completed checkout arrives. The logo is deleted if a later step fails.
func (s *Service) Create(ctx context.Context, req *models.CreateTenantRequest) (*models.CreateResult, error) {
	p, err := s.gate.Check(ctx, access.OpTenantCreate)
	if err != nil {
		return nil, err
	}
	chosen := plan.Free
	if req.Plan != "" {
		if chosen, err = plan.Parse(req.Plan); err != nil {
			return nil, err
		}
	}
	if chosen.IsPaid() && req.Email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required for paid plans")
	}
	if req.Logo == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "logo is required")
	}
	logo, err := s.uploadLogo(ctx, req.Logo)
	if err != nil {
		return nil, err
	}

	if chosen.IsPaid() {
		url, err := s.checkout.StartTenantCheckout(ctx, subModels.TenantCheckout{
			Name:    req.Name,
			Address: req.Address,
			Logo:    logo,
			Plan:    chosen,
			Email:   req.Email,
		})
		if err != nil {
			s.discard(ctx, logo)
			return nil, err
		}
		return &models.CreateResult{CheckoutURL: url}, nil
	}

	tenant, err := models.NewTenant(id.NewTenantID(), req.Name, req.Address, logo, chosen, s.now())
	if err != nil {
		s.discard(ctx, logo)
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, tenant); err != nil {
			return wrapTenantErr(err, "failed to create organization")
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, logo)
		return nil, err
	}

	s.metrics.IncrementTenantCreated(tenant.Plan)
	s.auditor.emit(ctx, "tenant_created",
		"tenant_id", tenant.ID.String(),
		"plan", string(tenant.Plan),
		"actor_id", p.ID.String(),
	)
	return &models.CreateResult{Tenant: tenant}, nil
}

// List returns a page of tenants, newest first, with live user and client counts.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Details, int, error) {
	if _, err := s.gate.Check(ctx, access.OpTenantList); err != nil {
		return nil, 0, err
	}
	tenants, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}
	out := make([]*models.Details, 0, len(tenants))
	for _, t := range tenants {
		d, err := s.details(ctx, t)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, nil
}

func (s *Service) Get(ctx context.Context, tenantID id.TenantID) (*models.Details, error) {
	if _, err := s.gate.Check(ctx, access.OpTenantGet); err != nil {
		return nil, err
	}
	tenant, err := s.store.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load organization")
	}
	return s.details(ctx, tenant)
}

// Update applies a partial change. A plan override replaces every ceiling
// with the plan's and leaves usage alone. A replaced logo is deleted after
// the change is committed.
func (s *Service) Update(ctx context.Context, tenantID id.TenantID, req *models.UpdateTenantRequest) (*models.Tenant, error) {
	p, err := s.gate.Check(ctx, access.OpTenantUpdate)
	if err != nil {
		return nil, err
	}
	tenant, err := s.store.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load organization")
	}
	now := s.now()
	if req.Name != nil {
		tenant.Name = *req.Name
	}
	if req.Address != nil {
		tenant.Address = *req.Address
	}
	if req.Plan != nil {
		next, err := plan.Parse(*req.Plan)
		if err != nil {
			return nil, err
		}
		tenant.ApplyPlan(next, now)
	}
	var previousLogo string
	if req.Logo != nil {
		logo, err := s.uploadLogo(ctx, req.Logo)
		if err != nil {
			return nil, err
		}
		previousLogo = tenant.Logo
		tenant.Logo = logo
	}
	tenant.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, tenant); err != nil {
			return wrapTenantErr(err, "failed to update organization")
		}
		return nil
	})
	if err != nil {
		if req.Logo != nil {
			s.discard(ctx, tenant.Logo)
		}
		return nil, err
	}
	if previousLogo != "" {
		s.discard(ctx, previousLogo)
	}

	s.auditor.emit(ctx, "tenant_updated",
		"tenant_id", tenant.ID.String(),
		"plan", string(tenant.Plan),
		"actor_id", p.ID.String(),
	)
	return tenant, nil
}

// Delete removes the tenant with its users, clients and activities in one
// transaction. The logo and every attachment are deleted once it commits.
func (s *Service) Delete(ctx context.Context, tenantID id.TenantID) error {
	p, err := s.gate.Check(ctx, access.OpTenantDelete)
	if err != nil {
		return err
	}
	tenant, err := s.store.FindByID(ctx, tenantID)
	if err != nil {
		return wrapTenantErr(err, "failed to load organization")
	}
	urls, err := s.activities.AttachmentURLsByTenant(ctx, tenant.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attachments")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.activities.DeleteByTenant(ctx, tenant.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete activities")
		}
		if err := s.clients.DeleteByTenant(ctx, tenant.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete clients")
		}
		if err := s.members.DeleteByTenant(ctx, tenant.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete users")
		}
		if err := s.store.Delete(ctx, tenant.ID); err != nil {
			return wrapTenantErr(err, "failed to delete organization")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if tenant.Logo != "" {
		s.discard(ctx, tenant.Logo)
	}
	s.discard(ctx, urls...)

	s.metrics.IncrementTenantDeleted()
	s.auditor.emit(ctx, "tenant_deleted",
		"tenant_id", tenant.ID.String(),
		"objects", len(urls),
		"actor_id", p.ID.String(),
	)
	return nil
}

func (s *Service) details(ctx context.Context, t *models.Tenant) (*models.Details, error) {
	users, err := s.members.CountByTenant(ctx, t.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}
	clients, err := s.clients.CountByTenant(ctx, t.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count clients")
	}
	return &models.Details{Tenant: t, UserCount: users, ClientCount: clients}, nil
}

func (s *Service) uploadLogo(ctx context.Context, u *models.Upload) (string, error) {
	url, err := s.objects.Upload(ctx, objectstore.Object{
		Folder:      logoFolder,
		Name:        u.Name,
		ContentType: u.ContentType,
		Body:        u.Body,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "failed to upload logo")
	}
	return url, nil
}

// discard deletes objects best-effort; failures are only logged.
func (s *Service) discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if err := s.objects.Delete(ctx, url); err != nil {
			s.logger.WarnContext(ctx, "failed to delete object", "url", url, "error", err)
		}
	}
}
