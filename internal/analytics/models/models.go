package models

import (
	"fmt"

	"orbit/internal/plan"
	id "orbit/pkg/domain"
)

// MonthlyCount is the number of clients created in one calendar month.
type MonthlyCount struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

// ActiveUser is a user with at least one assigned activity.
type ActiveUser struct {
	UserID        id.UserID `json:"-"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ActivityCount int       `json:"activityCount"`
}

// TenantSummary is one row of the SuperAdmin dashboard.
type TenantSummary struct {
	TenantID      id.TenantID
	Name          string
	Plan          plan.Plan
	Limits        plan.Limits
	StorageUsed   int64
	UserCount     int
	ActiveUsers   int
	ClientCount   int
	ActivityCount int
}

// SubscriptionStatus is "Free" for the Free plan and "Active" otherwise.
func (t *TenantSummary) SubscriptionStatus() string {
	if t.Plan.IsPaid() {
		return "Active"
	}
	return "Free"
}

// UsageVsLimits renders each consumed amount against its ceiling.
func (t *TenantSummary) UsageVsLimits() UsageResponse {
	return UsageResponse{
		Users:   fmt.Sprintf("%d/%s", t.UserCount, plan.FormatCount(t.Limits.Users)),
		Clients: fmt.Sprintf("%d/%s", t.ClientCount, plan.FormatCount(t.Limits.Clients)),
		Storage: fmt.Sprintf("%s/%s", plan.FormatBytes(t.StorageUsed), plan.FormatBytes(t.Limits.StorageBytes)),
	}
}
