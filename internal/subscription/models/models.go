package models

import (
	"strings"
	"time"

	"orbit/internal/plan"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// EventKind is the billing event category the state machine understands.
type EventKind string

const (
	KindUnknown               EventKind = ""
	KindCheckoutCompleted     EventKind = "CheckoutCompleted"
	KindSubscriptionUpdated   EventKind = "SubscriptionUpdated"
	KindSubscriptionCancelled EventKind = "SubscriptionCancelled"
)

// Kinds lists every known event kind.
var Kinds = []EventKind{KindCheckoutCompleted, KindSubscriptionUpdated, KindSubscriptionCancelled}

// Event is a verified billing webhook translated into domain terms.
type Event struct {
	ID   string
	Type string
	Kind EventKind
	// Target is the plan the event asks for. Unknown prices resolve to Free.
	Target plan.Plan
	// TenantID is set for upgrades of an existing tenant and on subscription
	// events that carry it in their metadata.
	TenantID id.TenantID
	// DraftID correlates a completed checkout with its pending draft.
	DraftID         id.DraftID
	SessionRef      string
	SubscriptionRef string
	CustomerRef     string
	Email           string
	Metadata        map[string]string
}

// CorrelationID keys tenant creation for a completed checkout. The draft id
// wins; sessions created without a draft fall back to the session reference.
func (e Event) CorrelationID() string {
	if !e.DraftID.IsNil() {
		return e.DraftID.String()
	}
	return e.SessionRef
}

// Meta reads a trimmed metadata value.
func (e Event) Meta(key string) string {
	return strings.TrimSpace(e.Metadata[key])
}

// CheckoutDraft holds the details of a paid tenant until its checkout completes.
type CheckoutDraft struct {
	ID      id.DraftID
	Name    string
	Address string
	Logo    string
	Plan    plan.Plan
	Email   string
	// TenantID is reserved at draft time so subscription metadata can name
	// the tenant before it exists.
	TenantID   id.TenantID
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// NewCheckoutDraft builds a pending draft for a paid plan.
func NewCheckoutDraft(name, address, logo string, p plan.Plan, email string, now time.Time, ttl time.Duration) (*CheckoutDraft, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name cannot be empty")
	}
	if !p.IsPaid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "checkout requires a paid plan")
	}
	return &CheckoutDraft{
		ID:        id.NewDraftID(),
		Name:      name,
		Address:   strings.TrimSpace(address),
		Logo:      logo,
		Plan:      p,
		Email:     strings.TrimSpace(email),
		TenantID:  id.NewTenantID(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// Consumed reports whether the draft already produced a tenant.
func (d *CheckoutDraft) Consumed() bool {
	return d.ConsumedAt != nil
}

// Expired reports whether the draft can no longer be completed.
func (d *CheckoutDraft) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// CheckoutRequest is what the billing provider needs to open a session.
type CheckoutRequest struct {
	PriceID           string
	Email             string
	ClientReferenceID string
	// Metadata is attached to the session.
	Metadata map[string]string
	// SubscriptionMetadata is attached to the subscription the session creates.
	SubscriptionMetadata map[string]string
}

// CheckoutSession is an opened provider session.
type CheckoutSession struct {
	ID  string
	URL string
}

// TenantCheckout asks for a new paid tenant.
type TenantCheckout struct {
	Name    string
	Address string
	Logo    string
	Plan    plan.Plan
	Email   string
}

// OutcomeStatus summarizes what an event did.
type OutcomeStatus string

const (
	OutcomeApplied   OutcomeStatus = "applied"
	OutcomeCreated   OutcomeStatus = "created"
	OutcomeUnchanged OutcomeStatus = "unchanged"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeIgnored   OutcomeStatus = "ignored"
)

// Outcome is the result of handling one event.
type Outcome struct {
	Status   OutcomeStatus
	TenantID id.TenantID
	From     plan.Plan
	To       plan.Plan
}

// Metadata keys written to checkout sessions and subscriptions.
const (
	MetaDraftID  = "draft_id"
	MetaTenantID = "tenant_id"
	MetaPlan     = "plan"
	MetaPriceID  = "price_id"
	MetaName     = "name"
	MetaAddress  = "address"
	MetaLogo     = "logo"
	MetaEmail    = "email"
)
