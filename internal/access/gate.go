package access

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/requestcontext"
)

// Scope is the row filter every tenant-scoped query must apply.
type Scope struct {
	TenantID id.TenantID
	// AssignedTo is set for Staff callers; rows not assigned to them are invisible.
	AssignedTo id.UserID
}

// Owns reports whether a row with the given tenant and assignee is visible.
func (s Scope) Owns(tenantID id.TenantID, assignee id.UserID) bool {
	if s.TenantID.IsNil() || tenantID != s.TenantID {
		return false
	}
	if !s.AssignedTo.IsNil() && assignee != s.AssignedTo {
		return false
	}
	return true
}

// SelfFiltered reports whether the scope restricts rows to one assignee.
func (s Scope) SelfFiltered() bool {
	return !s.AssignedTo.IsNil()
}

// Metrics counts authorization denials.
type Metrics struct {
	Denials *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_access_denials_total",
			Help: "Authorization denials by operation and reason",
		}, []string{"operation", "reason"}),
	}
}

// Gate is the shared authorization check used by every service.
type Gate struct {
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func NewGate(opts ...Option) *Gate {
	g := &Gate{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize checks the caller's role against op's allow-list.
func (g *Gate) Authorize(ctx context.Context, p Principal, op Operation) error {
	if !Allowed(op, p.Role) {
		g.deny(ctx, p, op, "role")
		return dErrors.New(dErrors.CodeForbidden, "insufficient permissions for this operation")
	}
	return nil
}

// Scope authorizes op and derives the tenant filter. Tenant-scoped callers
// always get their own tenant; naming another one is forbidden. SuperAdmin
// must name the tenant it acts on.
func (g *Gate) Scope(ctx context.Context, p Principal, op Operation, requested id.TenantID) (Scope, error) {
	if err := g.Authorize(ctx, p, op); err != nil {
		return Scope{}, err
	}
	if !p.Role.IsTenantScoped() {
		if requested.IsNil() {
			return Scope{}, dErrors.New(dErrors.CodeValidation, "tenantId is required")
		}
		return Scope{TenantID: requested}, nil
	}
	if !requested.IsNil() && requested != p.TenantID {
		g.deny(ctx, p, op, "cross_tenant")
		return Scope{}, dErrors.New(dErrors.CodeForbidden, "resource belongs to another organization")
	}
	s := Scope{TenantID: p.TenantID}
	if p.Role == RoleStaff {
		s.AssignedTo = p.ID
	}
	return s, nil
}

// Resolve reads the caller from ctx and scopes op in one step.
func (g *Gate) Resolve(ctx context.Context, op Operation, requested id.TenantID) (Principal, Scope, error) {
	p, err := FromContext(ctx)
	if err != nil {
		return Principal{}, Scope{}, err
	}
	s, err := g.Scope(ctx, p, op, requested)
	if err != nil {
		return Principal{}, Scope{}, err
	}
	return p, s, nil
}

// Check reads the caller from ctx and authorizes a non tenant-scoped op.
func (g *Gate) Check(ctx context.Context, op Operation) (Principal, error) {
	p, err := FromContext(ctx)
	if err != nil {
		return Principal{}, err
	}
	if err := g.Authorize(ctx, p, op); err != nil {
		return Principal{}, err
	}
	return p, nil
}

func (g *Gate) deny(ctx context.Context, p Principal, op Operation, reason string) {
	if g.metrics != nil {
		g.metrics.Denials.WithLabelValues(string(op), reason).Inc()
	}
	if g.logger != nil {
		g.logger.WarnContext(ctx, "access denied",
			"operation", string(op),
			"reason", reason,
			"role", string(p.Role),
			"user_id", p.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
