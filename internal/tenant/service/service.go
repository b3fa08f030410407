package service

import (
	"context"
	"log/slog"
	"time"

	"orbit/internal/access"
	"orbit/internal/objectstore"
	subModels "orbit/internal/subscription/models"
	"orbit/internal/tenant/metrics"
	"orbit/internal/tenant/models"
	id "orbit/pkg/domain"
)

// Store is the persistence port for tenants.
// Error Contract:
// - FindByID, Update and Delete return sentinel.ErrNotFound for a missing tenant
type Store interface {
	Create(ctx context.Context, t *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Tenant, int, error)
	Update(ctx context.Context, t *models.Tenant) error
	Delete(ctx context.Context, tenantID id.TenantID) error
}

// Members is the user store slice needed for counts and the cascade.
type Members interface {
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
}

// Clients is the client store slice needed for counts and the cascade.
type Clients interface {
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
}

// Activities is the activity store slice needed for the cascade.
type Activities interface {
	AttachmentURLsByTenant(ctx context.Context, tenantID id.TenantID) ([]string, error)
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) error
}

// Objects uploads and deletes logos and attachments.
type Objects interface {
	Upload(ctx context.Context, obj objectstore.Object) (string, error)
	Delete(ctx context.Context, url string) error
}

// Checkout opens a billing checkout for a paid tenant and returns its URL.
type Checkout interface {
	StartTenantCheckout(ctx context.Context, req subModels.TenantCheckout) (string, error)
}

// StoreTx runs fn as one unit of work.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages organizations. Every operation is SuperAdmin only.
type Service struct {
	store      Store
	members    Members
	clients    Clients
	activities Activities
	objects    Objects
	checkout   Checkout
	gate       *access.Gate
	tx         StoreTx
	metrics    *metrics.Metrics
	now        func() time.Time
	logger     *slog.Logger
	auditor    *auditEmitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, members Members, clients Clients, activities Activities, objects Objects, checkout Checkout, gate *access.Gate, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		store:      store,
		members:    members,
		clients:    clients,
		activities: activities,
		objects:    objects,
		checkout:   checkout,
		gate:       gate,
		tx:         tx,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.auditor = newAuditEmitter(s.logger)
	return s
}
