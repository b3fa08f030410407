package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"orbit/internal/analytics/models"
	"orbit/pkg/platform/httputil"
	"orbit/pkg/requestcontext"
)

// Service defines the reporting operations.
type Service interface {
	ClientsPerMonth(ctx context.Context) ([]models.MonthlyCount, error)
	ActiveUsers(ctx context.Context) ([]models.ActiveUser, error)
	ExportClients(ctx context.Context) ([]byte, error)
	ExportActivities(ctx context.Context) ([]byte, error)
	Dashboard(ctx context.Context) ([]*models.TenantSummary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the analytics and dashboard routes. Authentication is
// applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/clients", h.HandleClientsPerMonth)
		r.Get("/users/active", h.HandleActiveUsers)
		r.Get("/clients/export", h.HandleExportClients)
		r.Get("/activities/export", h.HandleExportActivities)
	})
	r.Get("/superadmin/dashboard", h.HandleDashboard)
}

func (h *Handler) HandleClientsPerMonth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := h.service.ClientsPerMonth(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "client analytics failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

func (h *Handler) HandleActiveUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.service.ActiveUsers(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "active users failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) HandleExportClients(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "clients.csv", h.service.ExportClients)
}

func (h *Handler) HandleExportActivities(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "activities.csv", h.service.ExportActivities)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, filename string, render func(context.Context) ([]byte, error)) {
	ctx := r.Context()
	body, err := render(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "export failed", "file", filename, "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(ctx, "export write failed", "file", filename, "error", err)
	}
}

// HandleDashboard serves GET /superadmin/dashboard.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rows, err := h.service.Dashboard(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToDashboardResponse(rows))
}
