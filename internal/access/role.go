// Package access resolves who is calling and decides what they may do.
// Roles form a flat closed set; permissions come from a single static
// allow-list checked through Gate.
package access

import (
	"context"

	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/requestcontext"
)

// Role is a principal's role.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleOwner      Role = "Owner"
	RoleAdmin      Role = "Admin"
	RoleStaff      Role = "Staff"
)

var roles = map[Role]struct{}{
	RoleSuperAdmin: {},
	RoleOwner:      {},
	RoleAdmin:      {},
	RoleStaff:      {},
}

// ParseRole accepts only the exact role names.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roles[r]; !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown role %q", s)
	}
	return r, nil
}

// IsValid reports whether r is one of the closed set of roles.
func (r Role) IsValid() bool {
	_, ok := roles[r]
	return ok
}

// IsTenantScoped reports whether principals of this role belong to one tenant.
func (r Role) IsTenantScoped() bool {
	return r != RoleSuperAdmin
}

// Principal is the authenticated caller.
type Principal struct {
	ID       id.UserID
	Role     Role
	TenantID id.TenantID
}

// FromContext rebuilds the caller from values placed by the auth middleware.
func FromContext(ctx context.Context) (Principal, error) {
	p, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || p.UserID.IsNil() {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	role, err := ParseRole(p.Role)
	if err != nil {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
	}
	if role.IsTenantScoped() && p.TenantID.IsNil() {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token is missing tenant")
	}
	if !role.IsTenantScoped() {
		p.TenantID = id.TenantID{}
	}
	return Principal{ID: p.UserID, Role: role, TenantID: p.TenantID}, nil
}

// WithPrincipal stores p in ctx the same way the auth middleware does.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return requestcontext.WithPrincipal(ctx, requestcontext.Principal{
		UserID:   p.ID,
		TenantID: p.TenantID,
		Role:     string(p.Role),
	})
}
