// Package requestcontext holds request-scoped values shared by middleware,
// handlers and services.
package requestcontext

import (
	"context"
	"time"

	id "orbit/pkg/domain"
)

type (
	requestIDKey struct{}
	principalKey struct{}
	metadataKey  struct{}
	timeKey      struct{}
)

// Principal is the authenticated caller as asserted by a validated token.
type Principal struct {
	UserID   id.UserID
	TenantID id.TenantID
	Role     string
}

// ClientMetadata describes the remote caller.
type ClientMetadata struct {
	IP        string
	UserAgent string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID, or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, metadataKey{}, ClientMetadata{IP: ip, UserAgent: userAgent})
}

func ClientIP(ctx context.Context) string {
	m, _ := ctx.Value(metadataKey{}).(ClientMetadata)
	return m.IP
}

func UserAgent(ctx context.Context) string {
	m, _ := ctx.Value(metadataKey{}).(ClientMetadata)
	return m.UserAgent
}

// WithTime pins "now" for the rest of the request.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the request-scoped time, falling back to the wall clock for
// workers, scheduled jobs and tests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
