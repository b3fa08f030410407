package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"orbit/internal/access"
	"orbit/internal/plan"
	"orbit/internal/subscription/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/httputil"
	"orbit/pkg/platform/validation"
	"orbit/pkg/requestcontext"
	pkgvalidation "orbit/pkg/validation"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

type Service interface {
	HandleEvent(ctx context.Context, ev models.Event) (*models.Outcome, error)
	StartUpgradeCheckout(ctx context.Context, tenantID id.TenantID, target plan.Plan, email string) (string, error)
}

// WebhookParser verifies and decodes a raw webhook body.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*models.Event, error)
}

type Authorizer interface {
	Check(ctx context.Context, op access.Operation) (access.Principal, error)
}

type Handler struct {
	service Service
	parser  WebhookParser
	gate    Authorizer
	logger  *slog.Logger
}

func New(service Service, parser WebhookParser, gate Authorizer, logger *slog.Logger) *Handler {
	return &Handler{service: service, parser: parser, gate: gate, logger: logger}
}

// Register mounts the authenticated subscription routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/subscription/checkout", h.HandleCheckout)
}

// RegisterWebhooks mounts the provider callback. It must sit outside the
// authentication middleware and must receive the unmodified body.
func (h *Handler) RegisterWebhooks(r chi.Router) {
	r.Post("/webhooks/billing", h.HandleWebhook)
}

// HandleWebhook verifies the signature over the raw body before anything is
// parsed. Failures to apply an event return 500 so the provider retries.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validation.MaxWebhookBodySize))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read webhook body", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unable to read request body"))
		return
	}

	ev, err := h.parser.ParseWebhook(payload, r.Header.Get(SignatureHeader))
	if err != nil {
		h.logger.WarnContext(ctx, "webhook rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.HandleEvent(ctx, *ev)
	if err != nil {
		h.logger.ErrorContext(ctx, "handle billing event failed",
			"error", err,
			"request_id", requestID,
			"billing_event_id", ev.ID,
			"billing_event_type", ev.Type,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "billing event handled",
		"billing_event_id", ev.ID,
		"billing_event_type", ev.Type,
		"outcome", string(outcome.Status),
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type CheckoutRequest struct {
	Plan  string `json:"plan" validate:"required"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
}

func (r *CheckoutRequest) Normalize() {
	r.Plan = strings.TrimSpace(r.Plan)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *CheckoutRequest) Validate() error {
	return pkgvalidation.Validate(r)
}

type CheckoutResponse struct {
	SessionURL string `json:"sessionUrl"`
}

// HandleCheckout opens an upgrade checkout for the caller's own tenant.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := h.gate.Check(ctx, access.OpSubscriptionCheckout)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CheckoutRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	target, err := plan.Parse(req.Plan)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	url, err := h.service.StartUpgradeCheckout(ctx, principal.TenantID, target, req.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "start upgrade checkout failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CheckoutResponse{SessionURL: url})
}
