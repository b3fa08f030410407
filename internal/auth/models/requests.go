package models

import (
	"strings"

	"orbit/pkg/validation"
)

// RegisterSuperAdminRequest creates the single platform operator account.
type RegisterSuperAdminRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,eq=SuperAdmin"`
}

func (r *RegisterSuperAdminRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *RegisterSuperAdminRequest) Validate() error {
	return validation.Validate(r)
}

// RegisterOwnerRequest creates the Owner of an existing organization.
type RegisterOwnerRequest struct {
	TenantID string `json:"organizationId" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,eq=Owner"`
}

func (r *RegisterOwnerRequest) Normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *RegisterOwnerRequest) Validate() error {
	return validation.Validate(r)
}

// LoginRequest signs in with email and password. Organization members name
// their organization; the SuperAdmin leaves it empty.
type LoginRequest struct {
	TenantID string `json:"organizationId" validate:"omitempty,uuid"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) Normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *LoginRequest) Validate() error {
	return validation.Validate(r)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (r *RefreshRequest) Normalize() {
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
}

func (r *RefreshRequest) Validate() error {
	return validation.Validate(r)
}
