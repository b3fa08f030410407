package models

import (
	"strings"
	"time"

	"orbit/internal/access"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// User is a principal that can sign in. TenantID is nil only for the
// SuperAdmin.
type User struct {
	ID              id.UserID
	TenantID        id.TenantID
	Name            string
	Email           string
	EmailNormalized string
	PasswordHash    string
	Role            access.Role
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewUser builds an active user. The tenant must be set for every role but
// SuperAdmin and must be empty for SuperAdmin.
func NewUser(userID id.UserID, tenantID id.TenantID, name, email, passwordHash string, role access.Role, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown role")
	}
	if role.IsTenantScoped() && tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization is required for this role")
	}
	if !role.IsTenantScoped() && !tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "super admin cannot belong to an organization")
	}
	return &User{
		ID:              userID,
		TenantID:        tenantID,
		Name:            name,
		Email:           email,
		EmailNormalized: id.NormalizeEmail(email),
		PasswordHash:    passwordHash,
		Role:            role,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SetEmail replaces the address and its normalized form.
func (u *User) SetEmail(email string) {
	u.Email = strings.TrimSpace(email)
	u.EmailNormalized = id.NormalizeEmail(email)
}

// Principal is the identity the access gate sees for u.
func (u *User) Principal() access.Principal {
	return access.Principal{ID: u.ID, Role: u.Role, TenantID: u.TenantID}
}

// ListFilter selects a page of a tenant's users. SuperAdmin rows are never listed.
type ListFilter struct {
	TenantID id.TenantID
	Search   string
	Role     access.Role
	Offset   int
	Limit    int
}

// AssignableRole reports whether role can be granted through user
// management. Owners and the SuperAdmin are only created by registration.
func AssignableRole(role access.Role) bool {
	return role == access.RoleAdmin || role == access.RoleStaff
}
