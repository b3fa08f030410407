package testutil

import (
	"time"

	"orbit/internal/access"
	activityModels "orbit/internal/activity/models"
	clientModels "orbit/internal/client/models"
	"orbit/internal/plan"
	tenantModels "orbit/internal/tenant/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
)

// TenantBuilder builds Free tenants with plan limits already applied.
type TenantBuilder struct {
	tenant *tenantModels.Tenant
}

func NewTenantBuilder() *TenantBuilder {
	now := time.Now()
	return &TenantBuilder{
		tenant: &tenantModels.Tenant{
			ID:        id.NewTenantID(),
			Name:      "Test Tenant",
			Plan:      plan.Free,
			Limits:    plan.Free.Limits(),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *TenantBuilder) WithName(name string) *TenantBuilder {
	b.tenant.Name = name
	return b
}

// WithPlan switches the plan and its ceilings together.
func (b *TenantBuilder) WithPlan(p plan.Plan) *TenantBuilder {
	b.tenant.Plan = p
	b.tenant.Limits = p.Limits()
	return b
}

func (b *TenantBuilder) WithStorageUsed(bytes int64) *TenantBuilder {
	b.tenant.StorageUsed = bytes
	return b
}

func (b *TenantBuilder) Build() *tenantModels.Tenant {
	return b.tenant
}

// UserBuilder builds active Staff users.
type UserBuilder struct {
	user *userModels.User
}

func NewUserBuilder() *UserBuilder {
	now := time.Now()
	userID := id.NewUserID()
	email := "user-" + userID.String()[:8] + "@example.com"
	return &UserBuilder{
		user: &userModels.User{
			ID:              userID,
			TenantID:        id.NewTenantID(),
			Name:            "Test User",
			Email:           email,
			EmailNormalized: id.NormalizeEmail(email),
			PasswordHash:    "hash",
			Role:            access.RoleStaff,
			Active:          true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (b *UserBuilder) WithTenantID(tenantID id.TenantID) *UserBuilder {
	b.user.TenantID = tenantID
	return b
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.user.Name = name
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	b.user.EmailNormalized = id.NormalizeEmail(email)
	return b
}

func (b *UserBuilder) Build() *userModels.User {
	return b.user
}

// ClientBuilder builds unassigned CRM clients.
type ClientBuilder struct {
	client *clientModels.Client
}

func NewClientBuilder() *ClientBuilder {
	now := time.Now()
	clientID := id.NewClientID()
	email := "client-" + clientID.String()[:8] + "@example.com"
	return &ClientBuilder{
		client: &clientModels.Client{
			ID:              clientID,
			TenantID:        id.NewTenantID(),
			Name:            "Test Client",
			Email:           email,
			EmailNormalized: id.NormalizeEmail(email),
			Tags:            []string{},
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (b *ClientBuilder) WithTenantID(tenantID id.TenantID) *ClientBuilder {
	b.client.TenantID = tenantID
	return b
}

func (b *ClientBuilder) WithName(name string) *ClientBuilder {
	b.client.Name = name
	return b
}

func (b *ClientBuilder) WithEmail(email string) *ClientBuilder {
	b.client.SetEmail(email)
	return b
}

func (b *ClientBuilder) WithPhone(phone string) *ClientBuilder {
	b.client.Phone = phone
	return b
}

func (b *ClientBuilder) WithCompany(company string) *ClientBuilder {
	b.client.Company = company
	return b
}

func (b *ClientBuilder) WithTags(tags ...string) *ClientBuilder {
	b.client.Tags = tags
	return b
}

func (b *ClientBuilder) AssignedTo(userID id.UserID) *ClientBuilder {
	b.client.AssignedTo = userID
	return b
}

func (b *ClientBuilder) CreatedAt(t time.Time) *ClientBuilder {
	b.client.CreatedAt = t
	b.client.UpdatedAt = t
	return b
}

func (b *ClientBuilder) Build() *clientModels.Client {
	return b.client
}

// ActivityBuilder builds meetings dated now with no attachments.
type ActivityBuilder struct {
	activity *activityModels.Activity
}

func NewActivityBuilder() *ActivityBuilder {
	now := time.Now()
	return &ActivityBuilder{
		activity: &activityModels.Activity{
			ID:          id.NewActivityID(),
			TenantID:    id.NewTenantID(),
			ClientID:    id.NewClientID(),
			Type:        activityModels.TypeMeeting,
			Date:        now,
			Attachments: []activityModels.Attachment{},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

func (b *ActivityBuilder) WithTenantID(tenantID id.TenantID) *ActivityBuilder {
	b.activity.TenantID = tenantID
	return b
}

func (b *ActivityBuilder) WithClientID(clientID id.ClientID) *ActivityBuilder {
	b.activity.ClientID = clientID
	return b
}

func (b *ActivityBuilder) WithType(t activityModels.Type) *ActivityBuilder {
	b.activity.Type = t
	return b
}

func (b *ActivityBuilder) WithDescription(description string) *ActivityBuilder {
	b.activity.Description = description
	return b
}

func (b *ActivityBuilder) On(date time.Time) *ActivityBuilder {
	b.activity.Date = date
	return b
}

func (b *ActivityBuilder) AssignedTo(userID id.UserID) *ActivityBuilder {
	b.activity.AssignedTo = userID
	return b
}

func (b *ActivityBuilder) CreatedAt(t time.Time) *ActivityBuilder {
	b.activity.CreatedAt = t
	b.activity.UpdatedAt = t
	return b
}

func (b *ActivityBuilder) Build() *activityModels.Activity {
	return b.activity
}
