package service

import (
	"context"
	"log/slog"
	"time"

	"orbit/internal/access"
	"orbit/internal/auth/metrics"
	"orbit/internal/quota"
	tenantModels "orbit/internal/tenant/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
)

// UserStore is the slice of the user store that registration and sign-in need.
// Error Contract:
// - FindByID and FindByEmail return sentinel.ErrNotFound for a missing user
// - Create returns a sentinel.DuplicateError naming the colliding field
type UserStore interface {
	Create(ctx context.Context, u *userModels.User) error
	FindByID(ctx context.Context, userID id.UserID) (*userModels.User, error)
	FindByEmail(ctx context.Context, tenantID id.TenantID, normalized string) (*userModels.User, error)
	CountByRole(ctx context.Context, role access.Role) (int, error)
}

type TenantStore interface {
	FindByID(ctx context.Context, tenantID id.TenantID) (*tenantModels.Tenant, error)
}

// Quota admits new users against the tenant's plan.
type Quota interface {
	Admit(ctx context.Context, tenantID id.TenantID, kind quota.Kind, delta int64) error
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) error
}

// TokenIssuer mints and checks signed tokens.
type TokenIssuer interface {
	GenerateAccessToken(ctx context.Context, userID id.UserID, role string, tenantID id.TenantID) (string, error)
	GenerateRefreshToken(ctx context.Context, userID id.UserID) (string, error)
	ValidateRefreshToken(tokenString string) (id.UserID, error)
	AccessTTL() time.Duration
}

// StoreTx runs fn as one unit of work.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service registers accounts and issues tokens.
type Service struct {
	users   UserStore
	tenants TenantStore
	quota   Quota
	hasher  PasswordHasher
	tokens  TokenIssuer
	gate    *access.Gate
	tx      StoreTx
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *auditEmitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(
	users UserStore,
	tenants TenantStore,
	quota Quota,
	hasher PasswordHasher,
	tokens TokenIssuer,
	gate *access.Gate,
	tx StoreTx,
	opts ...Option,
) *Service {
	s := &Service{
		users:   users,
		tenants: tenants,
		quota:   quota,
		hasher:  hasher,
		tokens:  tokens,
		gate:    gate,
		tx:      tx,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.auditor = newAuditEmitter(s.logger)
	return s
}
