package models

import (
	"time"

	"orbit/internal/plan"
)

type LimitsResponse struct {
	Clients string `json:"clients"`
	Users   string `json:"users"`
	Storage string `json:"storage"`
}

type TenantResponse struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Address          string         `json:"address,omitempty"`
	Logo             string         `json:"logo,omitempty"`
	SubscriptionPlan string         `json:"subscriptionPlan"`
	Limits           LimitsResponse `json:"limits"`
	StorageUsed      string         `json:"storageUsed"`
	UserCount        int            `json:"userCount"`
	ClientCount      int            `json:"clientCount"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type CheckoutResponse struct {
	SessionURL string `json:"sessionUrl"`
}

func ToResponse(t *Tenant) *TenantResponse {
	return &TenantResponse{
		ID:               t.ID.String(),
		Name:             t.Name,
		Address:          t.Address,
		Logo:             t.Logo,
		SubscriptionPlan: string(t.Plan),
		Limits: LimitsResponse{
			Clients: plan.FormatCount(t.Limits.Clients),
			Users:   plan.FormatCount(t.Limits.Users),
			Storage: plan.FormatBytes(t.Limits.StorageBytes),
		},
		StorageUsed: plan.FormatBytes(t.StorageUsed),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func DetailsToResponse(d *Details) *TenantResponse {
	resp := ToResponse(d.Tenant)
	resp.UserCount = d.UserCount
	resp.ClientCount = d.ClientCount
	return resp
}
