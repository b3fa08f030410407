package service

import (
	"context"
	"log/slog"
	"time"

	"orbit/internal/access"
	"orbit/internal/quota"
	"orbit/internal/user/models"
	id "orbit/pkg/domain"
)

// Store is the persistence port for users.
// Error Contract:
// - FindByID, Update and Delete return sentinel.ErrNotFound for a missing user
// - Create and Update return a sentinel.DuplicateError naming the colliding field
type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.User, int, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
}

// Quota admits new users against the tenant's plan.
type Quota interface {
	Admit(ctx context.Context, tenantID id.TenantID, kind quota.Kind, delta int64) error
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
}

// StoreTx runs fn as one unit of work.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages a tenant's members.
type Service struct {
	store   Store
	quota   Quota
	hasher  PasswordHasher
	gate    *access.Gate
	tx      StoreTx
	now     func() time.Time
	logger  *slog.Logger
	auditor *auditEmitter
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

func New(store Store, quota Quota, hasher PasswordHasher, gate *access.Gate, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		store:  store,
		quota:  quota,
		hasher: hasher,
		gate:   gate,
		tx:     tx,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.auditor = newAuditEmitter(s.logger)
	return s
}
