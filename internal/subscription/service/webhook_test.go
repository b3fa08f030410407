package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"orbit/internal/plan"
	"orbit/internal/subscription/models"
	tenantModels "orbit/internal/tenant/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

func (s *ServiceSuite) tenantOn(p plan.Plan) *tenantModels.Tenant {
	t, err := tenantModels.NewTenant(id.NewTenantID(), "Acme", "", "", p, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	return t
}

func (s *ServiceSuite) TestHandleEventIgnoresUnknownKinds() {
	outcome, err := s.service.HandleEvent(s.ctx, models.Event{ID: "evt_1", Type: "invoice.paid"})
	s.Require().NoError(err)
	s.Equal(models.OutcomeIgnored, outcome.Status)
}

func (s *ServiceSuite) TestHandleEventDuplicateIsNoop() {
	s.events.EXPECT().Record(gomock.Any(), "evt_1", "checkout.session.completed", s.now).Return(sentinel.ErrAlreadyUsed)

	outcome, err := s.service.HandleEvent(s.ctx, models.Event{
		ID: "evt_1", Type: "checkout.session.completed", Kind: models.KindCheckoutCompleted, Target: plan.Pro,
		DraftID: id.NewDraftID(),
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeDuplicate, outcome.Status)
}

func (s *ServiceSuite) TestHandleEventRecordFailure() {
	s.events.EXPECT().Record(gomock.Any(), "evt_1", gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	_, err := s.service.HandleEvent(s.ctx, models.Event{ID: "evt_1", Kind: models.KindSubscriptionCancelled})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestCheckoutCompletedMaterializesDraft() {
	draft, err := models.NewCheckoutDraft("Acme", "1 Main St", "memory://org/logo/a.png", plan.Pro, "o@acme.test", s.now, time.Hour)
	s.Require().NoError(err)
	ev := models.Event{
		ID: "evt_1", Type: "checkout.session.completed", Kind: models.KindCheckoutCompleted, Target: plan.Pro,
		DraftID: draft.ID, SessionRef: "cs_1", SubscriptionRef: "sub_1", CustomerRef: "cus_1",
	}

	s.events.EXPECT().Record(gomock.Any(), "evt_1", gomock.Any(), gomock.Any()).Return(nil)
	s.tenants.EXPECT().FindByCheckoutRef(gomock.Any(), draft.ID.String()).Return(nil, sentinel.ErrNotFound)
	s.drafts.EXPECT().FindByID(gomock.Any(), draft.ID).Return(draft, nil)
	s.drafts.EXPECT().MarkConsumed(gomock.Any(), draft.ID, s.now).Return(nil)
	s.tenants.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, t *tenantModels.Tenant) error {
		s.Equal(draft.TenantID, t.ID)
		s.Equal("Acme", t.Name)
		s.Equal(plan.Pro, t.Plan)
		s.Equal(plan.Pro.Limits(), t.Limits)
		s.Equal(draft.ID.String(), t.CheckoutRef)
		s.Equal("sub_1", t.SubscriptionRef)
		s.Equal(draft.Logo, t.Logo)
		return nil
	})

	outcome, err := s.service.HandleEvent(s.ctx, ev)
	s.Require().NoError(err)
	s.Equal(models.OutcomeCreated, outcome.Status)
	s.Equal(draft.TenantID, outcome.TenantID)
}

func (s *ServiceSuite) TestCheckoutCompletedReplayReturnsExisting() {
	existing := s.tenantOn(plan.Pro)
	draftID := id.NewDraftID()

	s.events.EXPECT().Record(gomock.Any(), "evt_2", gomock.Any(), gomock.Any()).Return(nil)
	s.tenants.EXPECT().FindByCheckoutRef(gomock.Any(), draftID.String()).Return(existing, nil)

	outcome, err := s.service.HandleEvent(s.ctx, models.Event{
		ID: "evt_2", Kind: models.KindCheckoutCompleted, Target: plan.Pro, DraftID: draftID,
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeUnchanged, outcome.Status)
	s.Equal(existing.ID, outcome.TenantID)
}

func (s *ServiceSuite) TestCheckoutCompletedFromMetadata() {
	s.events.EXPECT().Record(gomock.Any(), "evt_3", gomock.Any(), gomock.Any()).Return(nil)
	s.tenants.EXPECT().FindByCheckoutRef(gomock.Any(), "cs_9").Return(nil, sentinel.ErrNotFound)
	s.tenants.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, t *tenantModels.Tenant) error {
		s.Equal("Legacy Co", t.Name)
		s.Equal(plan.Enterprise, t.Plan)
		s.Equal("cs_9", t.CheckoutRef)
		return nil
	})

	outcome, err := s.service.HandleEvent(s.ctx, models.Event{
		ID: "evt_3", Kind: models.KindCheckoutCompleted, Target: plan.Enterprise, SessionRef: "cs_9",
		Metadata: map[string]string{models.MetaName: "Legacy Co"},
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeCreated, outcome.Status)
}

func (s *ServiceSuite) TestCheckoutCompletedUpgradesExistingTenant() {
	tenant := s.tenantOn(plan.Free)
	tenant.StorageUsed = 80 * plan.MiB

	s.events.EXPECT().Record(gomock.Any(), "evt_4", gomock.Any(), gomock.Any()).Return(nil)
	s.tenants.EXPECT().FindByID(gomock.Any(), tenant.ID).Return(tenant, nil)
	s.tenants.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, t *tenantModels.Tenant) error {
		s.Equal(plan.Pro, t.Plan)
		s.Equal(plan.Pro.Limits(), t.Limits)
		s.Equal(80*plan.MiB, t.StorageUsed)
		s.Equal("sub_7", t.SubscriptionRef)
		return nil
	})

	outcome, err := s.service.HandleEvent(s.ctx, models.Event{
		ID: "evt_4", Kind: models.KindCheckoutCompleted, Target: plan.Pro, TenantID: tenant.ID, SubscriptionRef: "sub_7",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeApplied, outcome.Status)
	s.Equal(plan.Free, outcome.From)
	s.Equal(plan.Pro, outcome.To)
}

func (s *ServiceSuite) TestSubscriptionCancelledDowngrades() {
	tenant := s.tenantOn(plan.Enterprise)
	tenant.SubscriptionRef = "sub_1"
	tenant.StorageUsed = 500 * plan.MiB

	s.events.EXPECT().Record(gomock.Any(), "evt_5", gomock.Any(), gomock.Any()).Return(nil)
	s.tenants.EXPECT().FindBySubscriptionRef(gomock.Any(), "sub_1").Return(tenant, nil)
	s.tenants.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, t *tenantModels.Tenant) error {
		s.Equal(plan.Free, t.Plan)
		s.Equal(plan.Limits{Clients: 10, Users: 2, StorageBytes: 100 * plan.MiB}, t.Limits)
		s.Equal(500*plan.MiB, t.StorageUsed)
		return nil
	})

	outcome, err := s.service.HandleEvent(s.ctx, models.Event{
		ID: "evt_5", Kind: models.KindSubscriptionCancelled, SubscriptionRef: "sub_1",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeApplied, outcome.Status)
}

func (s *ServiceSuite) TestSubscriptionUpdatedWithoutChange() {
	tenant := s.tenantOn(plan.Pro)
	tenant.SubscriptionRef = "sub_1"

	s.events.EXPECT().Record(gomock.Any(), "evt_6", gomock.Any(), gomock.Any()).Return(nil)
	s.tenants.EXPECT().FindByID(gomock.Any(), tenant.ID).Return(tenant, nil)

	outcome, err := s.service.HandleEvent(s.ctx, models.Event{
		ID: "evt_6", Kind: models.KindSubscriptionUpdated, Target: plan.Pro, TenantID: tenant.ID, SubscriptionRef: "sub_1",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeUnchanged, outcome.Status)
}

func (s *ServiceSuite) TestSubscriptionEventForUnknownTenant() {
	s.events.EXPECT().Record(gomock.Any(), "evt_7", gomock.Any(), gomock.Any()).Return(nil)
	s.tenants.EXPECT().FindBySubscriptionRef(gomock.Any(), "sub_x").Return(nil, sentinel.ErrNotFound)

	outcome, err := s.service.HandleEvent(s.ctx, models.Event{
		ID: "evt_7", Kind: models.KindSubscriptionUpdated, Target: plan.Pro, SubscriptionRef: "sub_x",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeIgnored, outcome.Status)
}

func (s *ServiceSuite) TestDuplicateCheckoutRefIsConflict() {
	s.events.EXPECT().Record(gomock.Any(), "evt_8", gomock.Any(), gomock.Any()).Return(nil)
	s.tenants.EXPECT().FindByCheckoutRef(gomock.Any(), "cs_1").Return(nil, sentinel.ErrNotFound)
	s.tenants.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.Duplicate("checkout_ref"))

	_, err := s.service.HandleEvent(s.ctx, models.Event{
		ID: "evt_8", Kind: models.KindCheckoutCompleted, Target: plan.Pro, SessionRef: "cs_1",
		Metadata: map[string]string{models.MetaName: "Acme"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}
