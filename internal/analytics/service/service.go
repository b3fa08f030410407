package service

import (
	"context"
	"log/slog"

	"orbit/internal/access"
	activityModels "orbit/internal/activity/models"
	clientModels "orbit/internal/client/models"
	tenantModels "orbit/internal/tenant/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
)

// dashboardConcurrency bounds the per-tenant fan-out of the dashboard.
const dashboardConcurrency = 8

// Clients is the client store slice read by analytics.
type Clients interface {
	CountByMonth(ctx context.Context, tenantID id.TenantID) ([]clientModels.MonthlyCount, error)
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
	List(ctx context.Context, filter clientModels.ListFilter) ([]*clientModels.Client, int, error)
}

// Activities is the activity store slice read by analytics.
type Activities interface {
	CountByAssignee(ctx context.Context, tenantID id.TenantID) ([]activityModels.AssigneeCount, error)
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
	List(ctx context.Context, filter activityModels.ListFilter) ([]*activityModels.Activity, int, error)
}

// Users resolves assignee and creator names.
type Users interface {
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*userModels.User, error)
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// Tenants lists every organization for the dashboard.
type Tenants interface {
	List(ctx context.Context, filter tenantModels.ListFilter) ([]*tenantModels.Tenant, int, error)
}

// Service answers read-only reporting queries. Tenant reports are Owner and
// Admin only; the dashboard is SuperAdmin only.
type Service struct {
	clients     Clients
	activities  Activities
	users       Users
	tenants     Tenants
	gate        *access.Gate
	concurrency int
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithConcurrency overrides how many tenants the dashboard loads at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(clients Clients, activities Activities, users Users, tenants Tenants, gate *access.Gate, opts ...Option) *Service {
	s := &Service{
		clients:     clients,
		activities:  activities,
		users:       users,
		tenants:     tenants,
		gate:        gate,
		concurrency: dashboardConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}
