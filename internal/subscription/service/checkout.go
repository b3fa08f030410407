package service

import (
	"context"

	"orbit/internal/plan"
	"orbit/internal/subscription/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// StartTenantCheckout persists a draft for a paid tenant and opens a checkout
// session correlated by the draft id. The tenant is created when the
// completed checkout arrives.
func (s *Service) StartTenantCheckout(ctx context.Context, req models.TenantCheckout) (string, error) {
	priceID, err := s.priceFor(req.Plan)
	if err != nil {
		return "", err
	}
	draft, err := models.NewCheckoutDraft(req.Name, req.Address, req.Logo, req.Plan, req.Email, s.now(), s.draftTTL)
	if err != nil {
		return "", err
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save checkout draft")
	}

	session, err := s.billing.CreateCheckoutSession(ctx, models.CheckoutRequest{
		PriceID:           priceID,
		Email:             draft.Email,
		ClientReferenceID: draft.ID.String(),
		Metadata: map[string]string{
			models.MetaDraftID: draft.ID.String(),
			models.MetaPlan:    string(draft.Plan),
			models.MetaPriceID: priceID,
			models.MetaName:    draft.Name,
			models.MetaAddress: draft.Address,
			models.MetaLogo:    draft.Logo,
			models.MetaEmail:   draft.Email,
		},
		SubscriptionMetadata: map[string]string{
			models.MetaTenantID: draft.TenantID.String(),
		},
	})
	if err != nil {
		if derr := s.drafts.Delete(ctx, draft.ID); derr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to discard checkout draft",
				"draft_id", draft.ID.String(),
				"error", derr,
			)
		}
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "failed to create checkout session")
	}

	s.incCheckout(draft.Plan)
	s.auditor.emit(ctx, "checkout_started",
		"draft_id", draft.ID.String(),
		"plan", string(draft.Plan),
	)
	return session.URL, nil
}

// StartUpgradeCheckout opens a checkout that upgrades an existing Free tenant.
func (s *Service) StartUpgradeCheckout(ctx context.Context, tenantID id.TenantID, target plan.Plan, email string) (string, error) {
	if tenantID.IsNil() {
		return "", dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	priceID, err := s.priceFor(target)
	if err != nil {
		return "", err
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return "", wrapTenantErr(err, "failed to load organization")
	}
	if tenant.Plan.IsPaid() {
		return "", dErrors.New(dErrors.CodeConflict, "organization already has a paid subscription")
	}

	session, err := s.billing.CreateCheckoutSession(ctx, models.CheckoutRequest{
		PriceID:           priceID,
		Email:             email,
		ClientReferenceID: tenant.ID.String(),
		Metadata: map[string]string{
			models.MetaTenantID: tenant.ID.String(),
			models.MetaPlan:     string(target),
			models.MetaPriceID:  priceID,
		},
		SubscriptionMetadata: map[string]string{
			models.MetaTenantID: tenant.ID.String(),
		},
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "failed to create checkout session")
	}

	s.incCheckout(target)
	s.auditor.emit(ctx, "upgrade_checkout_started",
		"tenant_id", tenant.ID.String(),
		"plan", string(target),
	)
	return session.URL, nil
}

// PurgeExpiredDrafts deletes drafts past their expiry and, for the ones that
// never completed, their uploaded logos. Logo deletion is best-effort.
func (s *Service) PurgeExpiredDrafts(ctx context.Context) (int, error) {
	removed, err := s.drafts.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge checkout drafts")
	}
	for _, draft := range removed {
		if draft.Consumed() || draft.Logo == "" || s.objects == nil {
			continue
		}
		if err := s.objects.Delete(ctx, draft.Logo); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to delete draft logo",
				"draft_id", draft.ID.String(),
				"error", err,
			)
		}
	}
	if s.logger != nil && len(removed) > 0 {
		s.logger.InfoContext(ctx, "expired checkout drafts purged", "count", len(removed))
	}
	return len(removed), nil
}

func (s *Service) priceFor(p plan.Plan) (string, error) {
	if !p.IsPaid() {
		return "", dErrors.New(dErrors.CodeValidation, "checkout requires a paid plan")
	}
	priceID, ok := s.prices.PriceFor(p)
	if !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "plan %s is not available for purchase", p)
	}
	return priceID, nil
}

func (s *Service) incCheckout(p plan.Plan) {
	if s.metrics != nil {
		s.metrics.IncCheckout(string(p))
	}
}
