package service

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	"orbit/internal/objectstore"
	"orbit/internal/plan"
	subModels "orbit/internal/subscription/models"
	"orbit/internal/tenant/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

func strPtr(v string) *string { return &v }

func (s *ServiceSuite) TestCreate() {
	s.Run("free plan creates the tenant immediately", func() {
		ctx := s.as(access.RoleSuperAdmin)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, obj objectstore.Object) (string, error) {
			s.Equal("org/logo", obj.Folder)
			return "memory://org/logo/new.png", nil
		})
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, t *models.Tenant) error {
			s.Equal(plan.Free, t.Plan)
			s.Equal(plan.Free.Limits(), t.Limits)
			s.Equal("memory://org/logo/new.png", t.Logo)
			return nil
		})

		res, err := s.service.Create(ctx, &models.CreateTenantRequest{Name: "Acme", Logo: logo()})
		s.Require().NoError(err)
		s.Require().NotNil(res.Tenant)
		s.Empty(res.CheckoutURL)
	})

	s.Run("paid plan opens a checkout instead", func() {
		ctx := s.as(access.RoleSuperAdmin)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://org/logo/new.png", nil)
		s.checkout.EXPECT().StartTenantCheckout(gomock.Any(), subModels.TenantCheckout{
			Name: "Acme", Logo: "memory://org/logo/new.png", Plan: plan.Pro, Email: "o@acme.test",
		}).Return("https://checkout.test/s/1", nil)

		res, err := s.service.Create(ctx, &models.CreateTenantRequest{Name: "Acme", Plan: "pro", Email: "o@acme.test", Logo: logo()})
		s.Require().NoError(err)
		s.Nil(res.Tenant)
		s.Equal("https://checkout.test/s/1", res.CheckoutURL)
	})

	s.Run("failed checkout deletes the logo", func() {
		ctx := s.as(access.RoleSuperAdmin)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://org/logo/new.png", nil)
		upstream := dErrors.New(dErrors.CodeUpstream, "failed to create checkout session")
		s.checkout.EXPECT().StartTenantCheckout(gomock.Any(), gomock.Any()).Return("", upstream)
		s.objects.EXPECT().Delete(gomock.Any(), "memory://org/logo/new.png").Return(nil)

		_, err := s.service.Create(ctx, &models.CreateTenantRequest{Name: "Acme", Plan: "Enterprise", Email: "o@acme.test", Logo: logo()})
		s.ErrorIs(err, upstream)
	})

	s.Run("failed insert deletes the logo", func() {
		ctx := s.as(access.RoleSuperAdmin)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://org/logo/new.png", nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
		s.objects.EXPECT().Delete(gomock.Any(), "memory://org/logo/new.png").Return(nil)

		_, err := s.service.Create(ctx, &models.CreateTenantRequest{Name: "Acme", Logo: logo()})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("paid plan needs an email", func() {
		ctx := s.as(access.RoleSuperAdmin)
		_, err := s.service.Create(ctx, &models.CreateTenantRequest{Name: "Acme", Plan: "Pro", Logo: logo()})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown plan", func() {
		ctx := s.as(access.RoleSuperAdmin)
		_, err := s.service.Create(ctx, &models.CreateTenantRequest{Name: "Acme", Plan: "Gold", Logo: logo()})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("upload failure", func() {
		ctx := s.as(access.RoleSuperAdmin)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("", errors.New("bucket down"))
		_, err := s.service.Create(ctx, &models.CreateTenantRequest{Name: "Acme", Logo: logo()})
		s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	})

	s.Run("owners are forbidden", func() {
		_, err := s.service.Create(s.as(access.RoleOwner), &models.CreateTenantRequest{Name: "Acme", Logo: logo()})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestListAndGet() {
	ctx := s.as(access.RoleSuperAdmin)
	t := s.tenant(plan.Pro)
	s.store.EXPECT().List(gomock.Any(), models.ListFilter{Search: "ac", Limit: 10}).Return([]*models.Tenant{t}, 1, nil)
	s.store.EXPECT().FindByID(gomock.Any(), t.ID).Return(t, nil)
	s.members.EXPECT().CountByTenant(gomock.Any(), t.ID).Return(3, nil).Times(2)
	s.clients.EXPECT().CountByTenant(gomock.Any(), t.ID).Return(7, nil).Times(2)

	items, total, err := s.service.List(ctx, models.ListFilter{Search: "ac", Limit: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(items, 1)
	s.Equal(3, items[0].UserCount)
	s.Equal(7, items[0].ClientCount)

	d, err := s.service.Get(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t.ID, d.Tenant.ID)

	s.Run("missing", func() {
		missing := id.NewTenantID()
		s.store.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Get(ctx, missing)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.Run("plan override replaces ceilings and keeps usage", func() {
		ctx := s.as(access.RoleSuperAdmin)
		t := s.tenant(plan.Pro)
		t.StorageUsed = 500 * plan.MiB
		s.store.EXPECT().FindByID(gomock.Any(), t.ID).Return(t, nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		updated, err := s.service.Update(ctx, t.ID, &models.UpdateTenantRequest{Plan: strPtr("free"), Name: strPtr("Acme Ltd")})
		s.Require().NoError(err)
		s.Equal(plan.Free, updated.Plan)
		s.Equal(plan.Free.Limits(), updated.Limits)
		s.Equal(500*plan.MiB, updated.StorageUsed)
		s.Equal("Acme Ltd", updated.Name)
	})

	s.Run("new logo drops the old one after commit", func() {
		ctx := s.as(access.RoleSuperAdmin)
		t := s.tenant(plan.Free)
		s.store.EXPECT().FindByID(gomock.Any(), t.ID).Return(t, nil)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://org/logo/new.png", nil)
		gomock.InOrder(
			s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
			s.objects.EXPECT().Delete(gomock.Any(), "memory://org/logo/old.png").Return(errors.New("already gone")),
		)

		updated, err := s.service.Update(ctx, t.ID, &models.UpdateTenantRequest{Logo: logo()})
		s.Require().NoError(err)
		s.Equal("memory://org/logo/new.png", updated.Logo)
	})

	s.Run("failed write keeps the old logo", func() {
		ctx := s.as(access.RoleSuperAdmin)
		t := s.tenant(plan.Free)
		s.store.EXPECT().FindByID(gomock.Any(), t.ID).Return(t, nil)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://org/logo/new.png", nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
		s.objects.EXPECT().Delete(gomock.Any(), "memory://org/logo/new.png").Return(nil)

		_, err := s.service.Update(ctx, t.ID, &models.UpdateTenantRequest{Logo: logo()})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestDelete() {
	s.Run("cascades and then deletes objects", func() {
		ctx := s.as(access.RoleSuperAdmin)
		t := s.tenant(plan.Free)
		s.store.EXPECT().FindByID(gomock.Any(), t.ID).Return(t, nil)
		s.activities.EXPECT().AttachmentURLsByTenant(gomock.Any(), t.ID).Return([]string{"memory://a.png"}, nil)
		gomock.InOrder(
			s.activities.EXPECT().DeleteByTenant(gomock.Any(), t.ID).Return(nil),
			s.clients.EXPECT().DeleteByTenant(gomock.Any(), t.ID).Return(nil),
			s.members.EXPECT().DeleteByTenant(gomock.Any(), t.ID).Return(nil),
			s.store.EXPECT().Delete(gomock.Any(), t.ID).Return(nil),
			s.objects.EXPECT().Delete(gomock.Any(), "memory://org/logo/old.png").Return(nil),
			s.objects.EXPECT().Delete(gomock.Any(), "memory://a.png").Return(nil),
		)
		s.Require().NoError(s.service.Delete(ctx, t.ID))
	})

	s.Run("failed cascade deletes no objects", func() {
		ctx := s.as(access.RoleSuperAdmin)
		t := s.tenant(plan.Free)
		s.store.EXPECT().FindByID(gomock.Any(), t.ID).Return(t, nil)
		s.activities.EXPECT().AttachmentURLsByTenant(gomock.Any(), t.ID).Return([]string{"memory://a.png"}, nil)
		s.activities.EXPECT().DeleteByTenant(gomock.Any(), t.ID).Return(nil)
		s.clients.EXPECT().DeleteByTenant(gomock.Any(), t.ID).Return(errors.New("db down"))

		err := s.service.Delete(ctx, t.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("admins are forbidden", func() {
		s.True(dErrors.HasCode(s.service.Delete(s.as(access.RoleAdmin), id.NewTenantID()), dErrors.CodeForbidden))
	})
}
