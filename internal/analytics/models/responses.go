package models

import "orbit/internal/plan"

type LimitsResponse struct {
	Users       string `json:"users"`
	Clients     string `json:"clients"`
	Storage     string `json:"storage"`
	StorageUsed string `json:"storageUsed"`
}

type UsageResponse struct {
	Users   string `json:"users"`
	Clients string `json:"clients"`
	Storage string `json:"storage"`
}

type TenantSummaryResponse struct {
	OrgID              string         `json:"orgId"`
	Name               string         `json:"name"`
	Plan               string         `json:"plan"`
	SubscriptionStatus string         `json:"subscriptionStatus"`
	UserCount          int            `json:"userCount"`
	ActiveUsers        int            `json:"activeUsers"`
	ClientCount        int            `json:"clientCount"`
	ActivityCount      int            `json:"activityCount"`
	Limits             LimitsResponse `json:"limits"`
	UsageVsLimits      UsageResponse  `json:"usageVsLimits"`
}

type DashboardResponse struct {
	Organizations []*TenantSummaryResponse `json:"organizations"`
}

func ToSummaryResponse(t *TenantSummary) *TenantSummaryResponse {
	return &TenantSummaryResponse{
		OrgID:              t.TenantID.String(),
		Name:               t.Name,
		Plan:               string(t.Plan),
		SubscriptionStatus: t.SubscriptionStatus(),
		UserCount:          t.UserCount,
		ActiveUsers:        t.ActiveUsers,
		ClientCount:        t.ClientCount,
		ActivityCount:      t.ActivityCount,
		Limits: LimitsResponse{
			Users:       plan.FormatCount(t.Limits.Users),
			Clients:     plan.FormatCount(t.Limits.Clients),
			Storage:     plan.FormatBytes(t.Limits.StorageBytes),
			StorageUsed: plan.FormatBytes(t.StorageUsed),
		},
		UsageVsLimits: t.UsageVsLimits(),
	}
}

func ToDashboardResponse(rows []*TenantSummary) *DashboardResponse {
	out := &DashboardResponse{Organizations: make([]*TenantSummaryResponse, 0, len(rows))}
	for _, r := range rows {
		out.Organizations = append(out.Organizations, ToSummaryResponse(r))
	}
	return out
}
