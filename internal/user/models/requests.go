package models

import (
	"strings"

	"orbit/pkg/validation"
)

// CreateUserRequest adds an Admin or Staff member. TenantID is read only
// for SuperAdmin callers, who must name the organization.
type CreateUserRequest struct {
	TenantID string `json:"tenantId" validate:"omitempty,uuid"`
	Name     string `json:"name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=Admin Staff"`
}

func (r *CreateUserRequest) Normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *CreateUserRequest) Validate() error {
	return validation.Validate(r)
}

// UpdateUserRequest changes any subset of a user's fields.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,notblank,max=200"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role" validate:"omitempty"`
	Active   *bool   `json:"isActive"`
}

func (r *UpdateUserRequest) Normalize() {
	for _, f := range []*string{r.Name, r.Email, r.Role} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func (r *UpdateUserRequest) Validate() error {
	return validation.Validate(r)
}

// ListUsersQuery is parsed from the query string.
type ListUsersQuery struct {
	Search string
	Role   string
	Offset int
	Limit  int
}
