package service

import (
	"context"
	"errors"
	"strings"

	"orbit/internal/plan"
	"orbit/internal/subscription/models"
	tenantModels "orbit/internal/tenant/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

// HandleEvent applies one verified billing event. The event id is recorded in
// the same transaction as its effect, so a redelivered event is a no-op and a
// failed one can be retried. Unknown kinds are acknowledged and ignored.
func (s *Service) HandleEvent(ctx context.Context, ev models.Event) (*models.Outcome, error) {
	if ev.Kind == models.KindUnknown {
		s.observe(ev, models.OutcomeIgnored)
		return &models.Outcome{Status: models.OutcomeIgnored}, nil
	}
	if strings.TrimSpace(ev.ID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "billing event id is required")
	}

	var outcome *models.Outcome
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.events.Record(ctx, ev.ID, ev.Type, s.now()); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				outcome = &models.Outcome{Status: models.OutcomeDuplicate}
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record billing event")
		}
		var err error
		if ev.Kind == models.KindCheckoutCompleted {
			outcome, err = s.completeCheckout(ctx, ev)
		} else {
			outcome, err = s.changeSubscription(ctx, ev)
		}
		return err
	})
	if err != nil {
		s.observe(ev, "failed")
		return nil, err
	}

	s.observe(ev, outcome.Status)
	switch outcome.Status {
	case models.OutcomeCreated:
		s.auditor.emit(ctx, "tenant_created_from_checkout",
			"tenant_id", outcome.TenantID.String(),
			"plan", string(outcome.To),
			"billing_event_id", ev.ID,
		)
	case models.OutcomeApplied:
		s.auditor.emit(ctx, "subscription_plan_changed",
			"tenant_id", outcome.TenantID.String(),
			"from", string(outcome.From),
			"to", string(outcome.To),
			"billing_event_id", ev.ID,
		)
		if s.metrics != nil {
			s.metrics.IncTransition(string(outcome.From), string(outcome.To))
		}
	}
	return outcome, nil
}

func (s *Service) completeCheckout(ctx context.Context, ev models.Event) (*models.Outcome, error) {
	if ev.DraftID.IsNil() && !ev.TenantID.IsNil() {
		return s.applyToTenant(ctx, ev.TenantID, ev)
	}

	ref := ev.CorrelationID()
	if ref == "" {
		s.warn(ctx, "completed checkout without correlation id", ev)
		return &models.Outcome{Status: models.OutcomeIgnored}, nil
	}
	existing, err := s.tenants.FindByCheckoutRef(ctx, ref)
	if err == nil {
		return &models.Outcome{Status: models.OutcomeUnchanged, TenantID: existing.ID, From: existing.Plan, To: existing.Plan}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up checkout")
	}
	return s.materialize(ctx, ev, ref)
}

// materialize creates the tenant a completed checkout paid for. Details come
// from the pending draft, or from the session metadata when no draft exists.
func (s *Service) materialize(ctx context.Context, ev models.Event, ref string) (*models.Outcome, error) {
	now := s.now()
	tenantID := id.NewTenantID()
	name, address, logo := ev.Meta(models.MetaName), ev.Meta(models.MetaAddress), ev.Meta(models.MetaLogo)

	if !ev.DraftID.IsNil() {
		draft, err := s.drafts.FindByID(ctx, ev.DraftID)
		switch {
		case err == nil && draft.Consumed():
			s.warn(ctx, "completed checkout for consumed draft", ev)
			return &models.Outcome{Status: models.OutcomeIgnored}, nil
		case err == nil:
			tenantID = draft.TenantID
			name, address, logo = draft.Name, draft.Address, draft.Logo
			if err := s.drafts.MarkConsumed(ctx, draft.ID, now); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume checkout draft")
			}
		case errors.Is(err, sentinel.ErrNotFound):
			s.warn(ctx, "completed checkout references unknown draft", ev)
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load checkout draft")
		}
	}
	if strings.TrimSpace(name) == "" {
		s.warn(ctx, "completed checkout without organization details", ev)
		return &models.Outcome{Status: models.OutcomeIgnored}, nil
	}

	tr, ok := models.Next(plan.Free, ev)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "no transition for completed checkout")
	}
	tenant, err := tenantModels.NewTenant(tenantID, name, address, logo, tr.To, now)
	if err != nil {
		return nil, err
	}
	tenant.CheckoutRef = ref
	tenant.SubscriptionRef = ev.SubscriptionRef
	tenant.CustomerRef = ev.CustomerRef

	if err := s.tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "organization already created for this checkout")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}
	return &models.Outcome{Status: models.OutcomeCreated, TenantID: tenant.ID, To: tenant.Plan}, nil
}

func (s *Service) changeSubscription(ctx context.Context, ev models.Event) (*models.Outcome, error) {
	tenantID := ev.TenantID
	if tenantID.IsNil() {
		tenant, err := s.tenants.FindBySubscriptionRef(ctx, ev.SubscriptionRef)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.warn(ctx, "billing event for unknown subscription", ev)
				return &models.Outcome{Status: models.OutcomeIgnored}, nil
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up subscription")
		}
		return s.apply(ctx, tenant, ev)
	}
	return s.applyToTenant(ctx, tenantID, ev)
}

func (s *Service) applyToTenant(ctx context.Context, tenantID id.TenantID, ev models.Event) (*models.Outcome, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.warn(ctx, "billing event for unknown organization", ev)
			return &models.Outcome{Status: models.OutcomeIgnored}, nil
		}
		return nil, wrapTenantErr(err, "failed to load organization")
	}
	return s.apply(ctx, tenant, ev)
}

// apply runs the state machine and persists the new plan and ceilings.
// Storage usage is left as it is, so a downgrade can leave a tenant over its
// new ceiling.
func (s *Service) apply(ctx context.Context, tenant *tenantModels.Tenant, ev models.Event) (*models.Outcome, error) {
	tr, ok := models.Next(tenant.Plan, ev)
	if !ok {
		s.warn(ctx, "no transition for billing event", ev)
		return &models.Outcome{Status: models.OutcomeIgnored, TenantID: tenant.ID}, nil
	}

	refsChanged := false
	if ev.SubscriptionRef != "" && ev.SubscriptionRef != tenant.SubscriptionRef {
		tenant.SubscriptionRef = ev.SubscriptionRef
		refsChanged = true
	}
	if ev.CustomerRef != "" && ev.CustomerRef != tenant.CustomerRef {
		tenant.CustomerRef = ev.CustomerRef
		refsChanged = true
	}
	outcome := &models.Outcome{Status: models.OutcomeUnchanged, TenantID: tenant.ID, From: tr.From, To: tr.To}
	if !tr.Changed && !refsChanged {
		return outcome, nil
	}

	now := s.now()
	if tr.Changed {
		tenant.ApplyPlan(tr.To, now)
		outcome.Status = models.OutcomeApplied
	}
	tenant.UpdatedAt = now
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, wrapTenantErr(err, "failed to update organization plan")
	}
	return outcome, nil
}

func (s *Service) observe(ev models.Event, outcome models.OutcomeStatus) {
	if s.metrics != nil {
		s.metrics.IncWebhookEvent(ev.Type, string(outcome))
	}
}

func (s *Service) warn(ctx context.Context, msg string, ev models.Event) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg,
		"billing_event_id", ev.ID,
		"billing_event_type", ev.Type,
		"subscription_ref", ev.SubscriptionRef,
	)
}
