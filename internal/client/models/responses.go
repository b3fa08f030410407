package models

import "time"

type ClientResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"organizationId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Company    string    `json:"company,omitempty"`
	Tags       []string  `json:"tags"`
	AssignedTo string    `json:"assignedTo,omitempty"`
	CreatedBy  string    `json:"createdBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func ToResponse(c *Client) *ClientResponse {
	resp := &ClientResponse{
		ID:        c.ID.String(),
		TenantID:  c.TenantID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Tags:      c.Tags,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if !c.AssignedTo.IsNil() {
		resp.AssignedTo = c.AssignedTo.String()
	}
	if !c.CreatedBy.IsNil() {
		resp.CreatedBy = c.CreatedBy.String()
	}
	return resp
}
