package models

import (
	"encoding/json"
	"strings"

	"orbit/pkg/platform/validation"
	pkgstrings "orbit/pkg/platform/strings"
	pkgvalidation "orbit/pkg/validation"
)

// TagList accepts either a JSON array or a comma separated string and
// always holds trimmed, deduplicated entries.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = pkgstrings.SplitList(list...)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = pkgstrings.SplitList(raw)
	return nil
}

// CreateClientRequest adds a client. TenantID is read only for SuperAdmin
// callers, who must name the organization.
type CreateClientRequest struct {
	TenantID   string  `json:"organizationId" validate:"omitempty,uuid"`
	Name       string  `json:"name" validate:"required,notblank,max=200"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Phone      string  `json:"phone" validate:"required,phone"`
	Company    string  `json:"company" validate:"max=200"`
	Tags       TagList `json:"tags"`
	AssignedTo string  `json:"assignedTo" validate:"omitempty,uuid"`
}

func (r *CreateClientRequest) Normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Company = strings.TrimSpace(r.Company)
	r.AssignedTo = strings.TrimSpace(r.AssignedTo)
	r.Tags = pkgstrings.DedupeAndTrim(r.Tags)
}

func (r *CreateClientRequest) Validate() error {
	if err := pkgvalidation.Validate(r); err != nil {
		return err
	}
	return validateTags(r.Tags)
}

// UpdateClientRequest changes any subset of a client's fields. An empty
// AssignedTo clears the assignment.
type UpdateClientRequest struct {
	Name       *string  `json:"name" validate:"omitempty,notblank,max=200"`
	Email      *string  `json:"email" validate:"omitempty,email,max=255"`
	Phone      *string  `json:"phone" validate:"omitempty,phone"`
	Company    *string  `json:"company" validate:"omitempty,max=200"`
	Tags       *TagList `json:"tags"`
	AssignedTo *string  `json:"assignedTo"`
}

func (r *UpdateClientRequest) Normalize() {
	r.Name = pkgstrings.TrimSpacePtr(r.Name)
	r.Email = pkgstrings.TrimSpacePtr(r.Email)
	r.Phone = pkgstrings.TrimSpacePtr(r.Phone)
	r.Company = pkgstrings.TrimSpacePtr(r.Company)
	r.AssignedTo = pkgstrings.TrimSpacePtr(r.AssignedTo)
	if r.Tags != nil {
		tags := TagList(pkgstrings.DedupeAndTrim(*r.Tags))
		r.Tags = &tags
	}
}

func (r *UpdateClientRequest) Validate() error {
	if err := pkgvalidation.Validate(r); err != nil {
		return err
	}
	if r.Tags != nil {
		return validateTags(*r.Tags)
	}
	return nil
}

func validateTags(tags []string) error {
	if err := validation.CheckSliceCount("tags", len(tags), validation.MaxTags); err != nil {
		return err
	}
	return validation.CheckEachStringLength("tag", tags, validation.MaxTagLength)
}

// ListClientsQuery is parsed from the query string.
type ListClientsQuery struct {
	TenantID   string
	Search     string
	Tags       []string
	AssignedTo string
	Offset     int
	Limit      int
}
