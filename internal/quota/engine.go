// Package quota admits or rejects resource-creating operations against the
// tenant's plan ceilings. Every check runs inside the caller's transaction
// so that admission and the write it guards commit or roll back together.
package quota

import (
	"context"
	"errors"
	"log/slog"

	"orbit/internal/plan"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/requestcontext"
)

// Kind is a consumable resource.
type Kind string

const (
	KindUsers   Kind = "users"
	KindClients Kind = "clients"
	KindStorage Kind = "storageBytes"
)

// Usage is a tenant's ceilings plus the running storage total.
type Usage struct {
	Limits      plan.Limits
	StorageUsed int64
}

// LimitStore reads and atomically updates a tenant's limits row.
type LimitStore interface {
	// LockUsage reads the limits row and holds it locked until the
	// surrounding transaction ends.
	LockUsage(ctx context.Context, tenantID id.TenantID) (*Usage, error)
	// GetUsage reads the limits row without locking.
	GetUsage(ctx context.Context, tenantID id.TenantID) (*Usage, error)
	// ChargeStorage adds bytes only if the result stays within the ceiling.
	// It returns sentinel.ErrLimitReached when the conditional update matches nothing.
	ChargeStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error
	// ReleaseStorage subtracts bytes, flooring at zero.
	ReleaseStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error
}

// Counter returns the live number of rows of one kind in a tenant.
type Counter interface {
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// Engine is the quota admission point.
type Engine struct {
	limits   LimitStore
	counters map[Kind]Counter
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCounter registers the live counter used for a counted kind.
func WithCounter(kind Kind, c Counter) Option {
	return func(e *Engine) {
		e.counters[kind] = c
	}
}

func New(limits LimitStore, opts ...Option) *Engine {
	e := &Engine{limits: limits, counters: make(map[Kind]Counter)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Admit checks that delta more units of kind fit under the tenant's ceiling.
// For counted kinds the tenant's limits row stays locked until the caller's
// transaction ends, so concurrent admissions for the same tenant queue behind
// each other and each one counts the rows inserted before it. For storage the
// admission is the charge itself.
func (e *Engine) Admit(ctx context.Context, tenantID id.TenantID, kind Kind, delta int64) error {
	if kind == KindStorage {
		return e.ChargeStorage(ctx, tenantID, delta)
	}
	counter, ok := e.counters[kind]
	if !ok {
		return dErrors.Newf(dErrors.CodeInternal, "no counter registered for %s", kind)
	}
	if delta <= 0 {
		return nil
	}

	usage, err := e.limits.LockUsage(ctx, tenantID)
	if err != nil {
		return wrapLimitsErr(err)
	}
	limit := ceiling(usage.Limits, kind)
	if limit == plan.Unlimited {
		e.observe(kind, true)
		return nil
	}

	current, err := counter.CountByTenant(ctx, tenantID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count "+string(kind))
	}
	if !plan.Allows(limit, int64(current), delta) {
		return e.exceeded(ctx, tenantID, &ExceededError{Kind: kind, Current: int64(current), Requested: delta, Limit: limit})
	}
	e.observe(kind, true)
	return nil
}

// CheckStorage is a non-authoritative read used before uploading files. The
// authoritative check is ChargeStorage.
func (e *Engine) CheckStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error {
	if bytes <= 0 {
		return nil
	}
	usage, err := e.limits.GetUsage(ctx, tenantID)
	if err != nil {
		return wrapLimitsErr(err)
	}
	if !plan.Allows(usage.Limits.StorageBytes, usage.StorageUsed, bytes) {
		return e.exceeded(ctx, tenantID, &ExceededError{
			Kind: KindStorage, Current: usage.StorageUsed, Requested: bytes, Limit: usage.Limits.StorageBytes,
		})
	}
	return nil
}

// ChargeStorage atomically adds bytes to the tenant's usage if it fits.
// Call it inside the transaction that writes the resource consuming the bytes.
func (e *Engine) ChargeStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error {
	if bytes == 0 {
		return nil
	}
	if bytes < 0 {
		return e.ReleaseStorage(ctx, tenantID, -bytes)
	}
	err := e.limits.ChargeStorage(ctx, tenantID, bytes)
	if err == nil {
		e.observe(KindStorage, true)
		return nil
	}
	if !errors.Is(err, sentinel.ErrLimitReached) {
		return wrapLimitsErr(err)
	}
	exceeded := &ExceededError{Kind: KindStorage, Requested: bytes, Limit: plan.Unlimited}
	if usage, uerr := e.limits.GetUsage(ctx, tenantID); uerr == nil {
		exceeded.Current = usage.StorageUsed
		exceeded.Limit = usage.Limits.StorageBytes
	}
	return e.exceeded(ctx, tenantID, exceeded)
}

// ReleaseStorage returns bytes to the tenant's allowance.
func (e *Engine) ReleaseStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error {
	if bytes <= 0 {
		return nil
	}
	if err := e.limits.ReleaseStorage(ctx, tenantID, bytes); err != nil {
		return wrapLimitsErr(err)
	}
	return nil
}

func (e *Engine) exceeded(ctx context.Context, tenantID id.TenantID, err *ExceededError) error {
	e.observe(err.Kind, false)
	if e.logger != nil {
		e.logger.InfoContext(ctx, "quota denied",
			"tenant_id", tenantID.String(),
			"kind", string(err.Kind),
			"current", err.Current,
			"requested", err.Requested,
			"limit", err.Limit,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return dErrors.Wrap(err, dErrors.CodeQuotaExceeded, err.Message())
}

func (e *Engine) observe(kind Kind, admitted bool) {
	if e.metrics == nil {
		return
	}
	if admitted {
		e.metrics.IncAdmitted(kind)
		return
	}
	e.metrics.IncDenied(kind)
}

func ceiling(l plan.Limits, kind Kind) int64 {
	switch kind {
	case KindUsers:
		return l.Users
	case KindClients:
		return l.Clients
	case KindStorage:
		return l.StorageBytes
	default:
		return 0
	}
}

func wrapLimitsErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "organization not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read organization limits")
}
