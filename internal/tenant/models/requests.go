package models

import (
	"io"
	"path"
	"strings"

	dErrors "orbit/pkg/domain-errors"
	pkgstrings "orbit/pkg/platform/strings"
	"orbit/pkg/platform/validation"
	pkgvalidation "orbit/pkg/validation"
)

// Upload is the logo part of a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateTenantRequest is read from a multipart form. Plan defaults to Free.
type CreateTenantRequest struct {
	Name    string  `validate:"required,max=200"`
	Address string  `validate:"max=500"`
	Plan    string  `validate:"omitempty,max=20"`
	Email   string  `validate:"omitempty,email,max=255"`
	Logo    *Upload `validate:"-"`
}

func (r *CreateTenantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.Plan = strings.TrimSpace(r.Plan)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *CreateTenantRequest) Validate() error {
	if err := pkgvalidation.Validate(r); err != nil {
		return err
	}
	if r.Logo == nil {
		return dErrors.New(dErrors.CodeValidation, "logo is required")
	}
	return validateLogo(r.Logo)
}

// UpdateTenantRequest changes any subset of a tenant. Plan overrides the
// subscription plan and its ceilings without touching billing.
type UpdateTenantRequest struct {
	Name    *string
	Address *string
	Plan    *string
	Logo    *Upload
}

func (r *UpdateTenantRequest) Normalize() {
	r.Name = pkgstrings.TrimSpacePtr(r.Name)
	r.Address = pkgstrings.TrimSpacePtr(r.Address)
	r.Plan = pkgstrings.TrimSpacePtr(r.Plan)
}

func (r *UpdateTenantRequest) Validate() error {
	if r.Name != nil {
		if *r.Name == "" {
			return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
		}
		if err := validation.CheckStringLength("name", *r.Name, validation.MaxNameLength); err != nil {
			return err
		}
	}
	if r.Address != nil {
		if err := validation.CheckStringLength("address", *r.Address, validation.MaxAddressLength); err != nil {
			return err
		}
	}
	if r.Logo != nil {
		return validateLogo(r.Logo)
	}
	return nil
}

func validateLogo(u *Upload) error {
	if u.Size > validation.MaxFileSize {
		return dErrors.New(dErrors.CodeValidation, "logo exceeds the 10 MB limit")
	}
	switch strings.ToLower(path.Ext(u.Name)) {
	case ".jpeg", ".jpg", ".png", ".gif":
	default:
		return dErrors.New(dErrors.CodeValidation, "logo must be an image (jpeg, jpg, png, gif)")
	}
	if !strings.HasPrefix(strings.ToLower(u.ContentType), "image/") {
		return dErrors.New(dErrors.CodeValidation, "logo must be an image (jpeg, jpg, png, gif)")
	}
	return nil
}

// CreateResult is either a tenant created on the Free plan or the checkout
// URL for a paid one.
type CreateResult struct {
	Tenant      *Tenant
	CheckoutURL string
}
