package service

import (
	"context"
	"log/slog"
	"time"

	"orbit/internal/plan"
	"orbit/internal/subscription/metrics"
	"orbit/internal/subscription/models"
	tenantModels "orbit/internal/tenant/models"
	id "orbit/pkg/domain"
)

// TenantStore is the slice of the tenant store the state machine writes to.
type TenantStore interface {
	Create(ctx context.Context, t *tenantModels.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*tenantModels.Tenant, error)
	FindByCheckoutRef(ctx context.Context, ref string) (*tenantModels.Tenant, error)
	FindBySubscriptionRef(ctx context.Context, ref string) (*tenantModels.Tenant, error)
	Update(ctx context.Context, t *tenantModels.Tenant) error
}

// DraftStore persists pending checkouts.
// Error Contract:
// - FindByID returns sentinel.ErrNotFound when no draft exists
// - MarkConsumed returns sentinel.ErrAlreadyUsed for a consumed draft
type DraftStore interface {
	Create(ctx context.Context, d *models.CheckoutDraft) error
	FindByID(ctx context.Context, draftID id.DraftID) (*models.CheckoutDraft, error)
	MarkConsumed(ctx context.Context, draftID id.DraftID, at time.Time) error
	Delete(ctx context.Context, draftID id.DraftID) error
	DeleteExpired(ctx context.Context, now time.Time) ([]*models.CheckoutDraft, error)
}

// EventLog records processed webhook ids. Record returns
// sentinel.ErrAlreadyUsed for an id seen before.
type EventLog interface {
	Record(ctx context.Context, eventID, eventType string, at time.Time) error
}

// Billing opens checkout sessions with the payment provider.
type Billing interface {
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error)
}

// ObjectDeleter removes uploaded objects by URL.
type ObjectDeleter interface {
	Delete(ctx context.Context, url string) error
}

// StoreTx runs fn as one unit of work.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultDraftTTL = 24 * time.Hour

// Service drives tenant plans from billing events and opens checkouts.
type Service struct {
	tenants  TenantStore
	drafts   DraftStore
	events   EventLog
	billing  Billing
	tx       StoreTx
	prices   *plan.PriceTable
	objects  ObjectDeleter
	draftTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  *auditEmitter
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

// WithObjects enables deletion of logos left behind by expired drafts.
func WithObjects(objects ObjectDeleter) Option {
	return func(s *Service) {
		s.objects = objects
	}
}

// WithDraftTTL sets how long a pending checkout stays completable.
func WithDraftTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.draftTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(tenants TenantStore, drafts DraftStore, events EventLog, billing Billing, tx StoreTx, prices *plan.PriceTable, opts ...Option) *Service {
	s := &Service{
		tenants:  tenants,
		drafts:   drafts,
		events:   events,
		billing:  billing,
		tx:       tx,
		prices:   prices,
		draftTTL: defaultDraftTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.auditor = newAuditEmitter(s.logger)
	return s
}
