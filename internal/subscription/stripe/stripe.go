// Package stripe adapts the Stripe API to the subscription service: it opens
// checkout sessions and turns signed webhooks into domain events.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"orbit/internal/plan"
	"orbit/internal/subscription/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// Config holds the Stripe credentials and checkout redirect targets.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type sessionCreator interface {
	New(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

// Client is the Stripe billing adapter.
type Client struct {
	sessions      sessionCreator
	webhookSecret string
	successURL    string
	cancelURL     string
	prices        *plan.PriceTable
}

func New(cfg Config, prices *plan.PriceTable) *Client {
	api := client.New(cfg.SecretKey, nil)
	return newClient(api.CheckoutSessions, cfg, prices)
}

func newClient(sessions sessionCreator, cfg Config, prices *plan.PriceTable) *Client {
	return &Client{
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		prices:        prices,
	}
}

// CreateCheckoutSession opens a subscription-mode checkout for one price.
func (c *Client) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode: stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{Price: stripeapi.String(req.PriceID), Quantity: stripeapi.Int64(1)},
		},
		SuccessURL:        stripeapi.String(c.successURL),
		CancelURL:         stripeapi.String(c.cancelURL),
		ClientReferenceID: stripeapi.String(req.ClientReferenceID),
		SubscriptionData: &stripeapi.CheckoutSessionSubscriptionDataParams{
			Metadata: req.SubscriptionMetadata,
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripeapi.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	session, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &models.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseWebhook verifies the signature over the raw payload and only then
// decodes it. Event types the state machine does not handle come back with
// KindUnknown.
func (c *Client) ParseWebhook(payload []byte, signature string) (*models.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid webhook signature")
	}

	ev := &models.Event{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return ev, nil
	}
	switch string(event.Type) {
	case "checkout.session.completed":
		err = c.fromCheckoutSession(event.Data.Raw, ev)
	case "customer.subscription.updated", "customer.subscription.deleted":
		err = c.fromSubscription(event.Data.Raw, string(event.Type), ev)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed webhook payload")
	}
	return ev, nil
}

func (c *Client) fromCheckoutSession(raw json.RawMessage, ev *models.Event) error {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	ev.Kind = models.KindCheckoutCompleted
	ev.SessionRef = session.ID
	ev.Metadata = session.Metadata
	ev.Target = c.targetFrom(session.Metadata)
	if session.Subscription != nil {
		ev.SubscriptionRef = session.Subscription.ID
	}
	if session.Customer != nil {
		ev.CustomerRef = session.Customer.ID
	}
	ev.Email = session.CustomerEmail
	if ev.Email == "" && session.CustomerDetails != nil {
		ev.Email = session.CustomerDetails.Email
	}

	if draftID, err := id.ParseDraftID(ev.Meta(models.MetaDraftID)); err == nil {
		ev.DraftID = draftID
		return nil
	}
	tenantRef := ev.Meta(models.MetaTenantID)
	if tenantRef == "" {
		tenantRef = strings.TrimSpace(session.ClientReferenceID)
	}
	if tenantID, err := id.ParseTenantID(tenantRef); err == nil {
		ev.TenantID = tenantID
	}
	return nil
}

func (c *Client) fromSubscription(raw json.RawMessage, eventType string, ev *models.Event) error {
	var sub stripeapi.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	ev.SubscriptionRef = sub.ID
	ev.Metadata = sub.Metadata
	if sub.Customer != nil {
		ev.CustomerRef = sub.Customer.ID
	}
	if tenantID, err := id.ParseTenantID(ev.Meta(models.MetaTenantID)); err == nil {
		ev.TenantID = tenantID
	}

	active := sub.Status == stripeapi.SubscriptionStatusActive || sub.Status == stripeapi.SubscriptionStatusTrialing
	if eventType == "customer.subscription.deleted" || !active {
		ev.Kind = models.KindSubscriptionCancelled
		ev.Target = plan.Free
		return nil
	}
	ev.Kind = models.KindSubscriptionUpdated
	ev.Target = plan.Free
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.Price != nil {
				ev.Target = c.prices.PlanFor(item.Price.ID)
				break
			}
		}
	}
	return nil
}

// targetFrom resolves the purchased plan from session metadata. The price id
// wins; a missing or unknown price resolves to Free.
func (c *Client) targetFrom(meta map[string]string) plan.Plan {
	if priceID := strings.TrimSpace(meta[models.MetaPriceID]); priceID != "" {
		return c.prices.PlanFor(priceID)
	}
	if p, err := plan.Parse(meta[models.MetaPlan]); err == nil {
		return p
	}
	return plan.Free
}
