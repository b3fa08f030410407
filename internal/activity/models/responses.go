package models

import "time"

type ActivityResponse struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"organizationId"`
	ClientID    string       `json:"clientId"`
	AssignedTo  string       `json:"assignedTo,omitempty"`
	CreatedBy   string       `json:"createdBy,omitempty"`
	Type        string       `json:"type"`
	Description string       `json:"description"`
	Date        time.Time    `json:"date"`
	Files       []Attachment `json:"files"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func ToResponse(a *Activity) *ActivityResponse {
	resp := &ActivityResponse{
		ID:          a.ID.String(),
		TenantID:    a.TenantID.String(),
		ClientID:    a.ClientID.String(),
		Type:        string(a.Type),
		Description: a.Description,
		Date:        a.Date,
		Files:       a.Attachments,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if resp.Files == nil {
		resp.Files = []Attachment{}
	}
	if !a.AssignedTo.IsNil() {
		resp.AssignedTo = a.AssignedTo.String()
	}
	if !a.CreatedBy.IsNil() {
		resp.CreatedBy = a.CreatedBy.String()
	}
	return resp
}
