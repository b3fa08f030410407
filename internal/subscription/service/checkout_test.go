package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"orbit/internal/plan"
	"orbit/internal/subscription/models"
	dErrors "orbit/pkg/domain-errors"
)

func (s *ServiceSuite) TestStartTenantCheckout() {
	req := models.TenantCheckout{Name: "Acme", Logo: "memory://org/logo/a.png", Plan: plan.Pro, Email: "o@acme.test"}

	s.Run("opens a session correlated by the draft", func() {
		var saved *models.CheckoutDraft
		s.drafts.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d *models.CheckoutDraft) error {
			saved = d
			return nil
		})
		s.billing.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, r models.CheckoutRequest) (*models.CheckoutSession, error) {
				s.Equal("price_pro", r.PriceID)
				s.Equal(saved.ID.String(), r.Metadata[models.MetaDraftID])
				s.Equal(saved.ID.String(), r.ClientReferenceID)
				s.Equal(saved.TenantID.String(), r.SubscriptionMetadata[models.MetaTenantID])
				return &models.CheckoutSession{ID: "cs_1", URL: "https://checkout.test/cs_1"}, nil
			})

		url, err := s.service.StartTenantCheckout(s.ctx, req)
		s.Require().NoError(err)
		s.Equal("https://checkout.test/cs_1", url)
		s.Equal(s.now.Add(defaultDraftTTL), saved.ExpiresAt)
	})

	s.Run("provider failure discards the draft", func() {
		s.drafts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.billing.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).Return(nil, errors.New("stripe down"))
		s.drafts.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.StartTenantCheckout(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	})

	s.Run("free plan is rejected", func() {
		_, err := s.service.StartTenantCheckout(s.ctx, models.TenantCheckout{Name: "Acme", Plan: plan.Free})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestStartUpgradeCheckout() {
	s.Run("free tenant", func() {
		tenant := s.tenantOn(plan.Free)
		s.tenants.EXPECT().FindByID(gomock.Any(), tenant.ID).Return(tenant, nil)
		s.billing.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, r models.CheckoutRequest) (*models.CheckoutSession, error) {
				s.Equal("price_ent", r.PriceID)
				s.Equal(tenant.ID.String(), r.Metadata[models.MetaTenantID])
				s.Empty(r.Metadata[models.MetaDraftID])
				return &models.CheckoutSession{URL: "https://checkout.test/up"}, nil
			})

		url, err := s.service.StartUpgradeCheckout(s.ctx, tenant.ID, plan.Enterprise, "o@acme.test")
		s.Require().NoError(err)
		s.Equal("https://checkout.test/up", url)
	})

	s.Run("paid tenant is a conflict", func() {
		tenant := s.tenantOn(plan.Pro)
		s.tenants.EXPECT().FindByID(gomock.Any(), tenant.ID).Return(tenant, nil)

		_, err := s.service.StartUpgradeCheckout(s.ctx, tenant.ID, plan.Enterprise, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestPurgeExpiredDrafts() {
	pending, err := models.NewCheckoutDraft("Pending", "", "memory://org/logo/p.png", plan.Pro, "", s.now.Add(-48*time.Hour), time.Hour)
	s.Require().NoError(err)
	consumed, err := models.NewCheckoutDraft("Done", "", "memory://org/logo/d.png", plan.Pro, "", s.now.Add(-48*time.Hour), time.Hour)
	s.Require().NoError(err)
	at := s.now.Add(-47 * time.Hour)
	consumed.ConsumedAt = &at

	s.drafts.EXPECT().DeleteExpired(gomock.Any(), s.now).Return([]*models.CheckoutDraft{pending, consumed}, nil)
	s.objects.EXPECT().Delete(gomock.Any(), "memory://org/logo/p.png").Return(errors.New("gone"))

	n, err := s.service.PurgeExpiredDrafts(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}
