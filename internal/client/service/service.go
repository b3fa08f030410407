package service

import (
	"context"
	"log/slog"
	"time"

	"orbit/internal/access"
	"orbit/internal/client/models"
	"orbit/internal/notification"
	"orbit/internal/quota"
	tenantModels "orbit/internal/tenant/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
)

// Store is the persistence port for clients.
// Error Contract:
// - FindByID, Update and Delete return sentinel.ErrNotFound for a missing client
// - Create and Update return a sentinel.DuplicateError naming the colliding field
type Store interface {
	Create(ctx context.Context, c *models.Client) error
	FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Client, int, error)
	Update(ctx context.Context, c *models.Client) error
	Delete(ctx context.Context, clientID id.ClientID) error
}

// Members resolves assignees.
type Members interface {
	FindByID(ctx context.Context, userID id.UserID) (*userModels.User, error)
	FirstActive(ctx context.Context, tenantID id.TenantID, role access.Role) (*userModels.User, error)
}

type Tenants interface {
	FindByID(ctx context.Context, tenantID id.TenantID) (*tenantModels.Tenant, error)
}

// Quota admits new clients against the tenant's plan.
type Quota interface {
	Admit(ctx context.Context, tenantID id.TenantID, kind quota.Kind, delta int64) error
}

// Notifier queues best-effort email. It must not block.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) bool
}

// StoreTx runs fn as one unit of work.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages a tenant's clients.
type Service struct {
	store    Store
	members  Members
	tenants  Tenants
	quota    Quota
	notifier Notifier
	gate     *access.Gate
	tx       StoreTx
	now      func() time.Time
	logger   *slog.Logger
	auditor  *auditEmitter
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

func New(store Store, members Members, tenants Tenants, quota Quota, notifier Notifier, gate *access.Gate, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		store:    store,
		members:  members,
		tenants:  tenants,
		quota:    quota,
		notifier: notifier,
		gate:     gate,
		tx:       tx,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.auditor = newAuditEmitter(s.logger)
	return s
}
