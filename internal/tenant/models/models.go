package models

import (
	"strings"
	"time"

	"orbit/internal/plan"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// Tenant is an organization. All users, clients and activities belong to exactly one.
type Tenant struct {
	ID          id.TenantID
	Name        string
	Address     string
	Logo        string
	Plan        plan.Plan
	Limits      plan.Limits
	StorageUsed int64
	// CheckoutRef is the correlation id of the checkout that created the
	// tenant. Unique, so a replayed completion cannot create a second tenant.
	CheckoutRef     string
	SubscriptionRef string
	CustomerRef     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewTenant builds a tenant on p with p's ceilings and zero usage.
func NewTenant(tenantID id.TenantID, name, address, logo string, p plan.Plan, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name must be 200 characters or less")
	}
	if !p.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown subscription plan")
	}
	return &Tenant{
		ID:        tenantID,
		Name:      name,
		Address:   strings.TrimSpace(address),
		Logo:      logo,
		Plan:      p,
		Limits:    p.Limits(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyPlan switches the tenant to p and replaces every ceiling with p's.
// StorageUsed is carried over unchanged.
func (t *Tenant) ApplyPlan(p plan.Plan, now time.Time) {
	t.Plan = p
	t.Limits = p.Limits()
	t.UpdatedAt = now
}

// OverStorage reports whether usage sits above the current ceiling, which
// happens after a downgrade.
func (t *Tenant) OverStorage() bool {
	return !plan.Allows(t.Limits.StorageBytes, t.StorageUsed, 0)
}

// Details adds live counts to a tenant for the admin views.
type Details struct {
	Tenant      *Tenant
	UserCount   int
	ClientCount int
}

// ListFilter selects a page of tenants.
type ListFilter struct {
	Search string
	Offset int
	Limit  int
}
