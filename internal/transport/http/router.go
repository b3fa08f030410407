// Package httptransport assembles the HTTP surface: probes, metrics and the
// /api tree with its middleware chain.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authmw "orbit/pkg/platform/middleware/auth"
	"orbit/pkg/platform/middleware/metadata"
	"orbit/pkg/platform/middleware/request"
	"orbit/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's routes on r.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar mounts routes that need no access token.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// WebhookRegistrar mounts provider callbacks. They authenticate by signature.
type WebhookRegistrar interface {
	RegisterWebhooks(r chi.Router)
}

// Config carries the transport limits.
type Config struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Metadata       *metadata.Config
}

// Routes lists the module handlers to mount.
type Routes struct {
	Health   Registrar
	Public   []PublicRegistrar
	Webhooks []WebhookRegistrar
	// JSON routes get the body limit. Multipart routes enforce their own
	// limits while parsing.
	JSON      []Registrar
	Multipart []Registrar
}

// NewRouter wires every endpoint behind the shared middleware chain.
func NewRouter(cfg Config, routes Routes, validator authmw.JWTValidator, metrics *request.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.NewMiddleware(cfg.Metadata).Handler)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(metrics))
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}

	if routes.Health != nil {
		routes.Health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		for _, h := range routes.Webhooks {
			h.RegisterWebhooks(r)
		}

		r.Group(func(r chi.Router) {
			if cfg.MaxBodyBytes > 0 {
				r.Use(request.BodyLimit(cfg.MaxBodyBytes))
			}
			for _, h := range routes.Public {
				h.RegisterPublic(r)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(validator, logger))

			r.Group(func(r chi.Router) {
				if cfg.MaxBodyBytes > 0 {
					r.Use(request.BodyLimit(cfg.MaxBodyBytes))
				}
				for _, h := range routes.JSON {
					h.Register(r)
				}
			})
			for _, h := range routes.Multipart {
				h.Register(r)
			}
		})
	})

	return r
}
