package models

import (
	"strings"
	"time"

	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// Client is a CRM contact owned by one tenant. AssignedTo and CreatedBy are
// weak references: the user may no longer exist.
type Client struct {
	ID              id.ClientID
	TenantID        id.TenantID
	Name            string
	Email           string
	EmailNormalized string
	Phone           string
	Company         string
	Tags            []string
	AssignedTo      id.UserID
	CreatedBy       id.UserID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewClient(clientID id.ClientID, tenantID id.TenantID, name, email, phone, company string, tags []string, assignedTo, createdBy id.UserID, now time.Time) (*Client, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if tags == nil {
		tags = []string{}
	}
	return &Client{
		ID:              clientID,
		TenantID:        tenantID,
		Name:            name,
		Email:           email,
		EmailNormalized: id.NormalizeEmail(email),
		Phone:           strings.TrimSpace(phone),
		Company:         strings.TrimSpace(company),
		Tags:            tags,
		AssignedTo:      assignedTo,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (c *Client) SetEmail(email string) {
	c.Email = strings.TrimSpace(email)
	c.EmailNormalized = id.NormalizeEmail(email)
}

// HasAnyTag reports whether c carries at least one of tags, ignoring case.
func (c *Client) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range c.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// ListFilter selects a page of a tenant's clients. A non-nil AssignedTo
// restricts rows to that assignee; Tags match when any one is present.
type ListFilter struct {
	TenantID   id.TenantID
	AssignedTo id.UserID
	Search     string
	Tags       []string
	Offset     int
	Limit      int
}

// MonthlyCount is the number of clients created in one calendar month.
type MonthlyCount struct {
	Year  int
	Month int
	Count int
}
