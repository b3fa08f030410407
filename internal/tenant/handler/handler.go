package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orbit/internal/tenant/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/httputil"
	"orbit/pkg/platform/validation"
	"orbit/pkg/requestcontext"
)

// maxLogoBody bounds a multipart organization request.
const maxLogoBody = validation.MaxFileSize + 1<<20

// Service defines the organization operations.
type Service interface {
	Create(ctx context.Context, req *models.CreateTenantRequest) (*models.CreateResult, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Details, int, error)
	Get(ctx context.Context, tenantID id.TenantID) (*models.Details, error)
	Update(ctx context.Context, tenantID id.TenantID, req *models.UpdateTenantRequest) (*models.Tenant, error)
	Delete(ctx context.Context, tenantID id.TenantID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the organization routes. Authentication is applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/org", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleCreate reads name, address, subscriptionPlan, email and a logo file.
// A Free organization is returned with 201; a paid one answers 200 with the
// checkout URL to complete.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := httputil.ParseMultipart(w, r, maxLogoBody, validation.MaxMultipartMemory); err != nil {
		httputil.WriteError(w, err)
		return
	}
	logo, files, err := openLogo(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer httputil.CloseFiles(files)

	req := &models.CreateTenantRequest{
		Name:    value(r, "name"),
		Address: value(r, "address"),
		Plan:    value(r, "subscriptionPlan"),
		Email:   value(r, "email"),
		Logo:    logo,
	}
	if err := prepare(req); err != nil {
		h.logger.WarnContext(ctx, "invalid request", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Create(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "create organization failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	if res.CheckoutURL != "" {
		httputil.WriteJSON(w, http.StatusOK, models.CheckoutResponse{SessionURL: res.CheckoutURL})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(res.Tenant))
}

// HandleList serves GET /org?page=&limit=&search=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	page := httputil.ParsePage(r, validation.DefaultPageLimit, validation.MaxPageLimit)
	tenants, total, err := h.service.List(ctx, models.ListFilter{Search: validation.SearchTerm(r.URL.Query().Get("search")), Offset: page.Offset(), Limit: page.Limit})
	if err != nil {
		h.logger.ErrorContext(ctx, "list organizations failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	items := make([]*models.TenantResponse, 0, len(tenants))
	for _, d := range tenants {
		items = append(items, models.DetailsToResponse(d))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPageResponse(items, total, page))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Get(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get organization failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.DetailsToResponse(d))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := httputil.ParseMultipart(w, r, maxLogoBody, validation.MaxMultipartMemory); err != nil {
		httputil.WriteError(w, err)
		return
	}
	logo, files, err := openLogo(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer httputil.CloseFiles(files)

	req := &models.UpdateTenantRequest{
		Name:    httputil.FormValue(r, "name"),
		Address: httputil.FormValue(r, "address"),
		Plan:    httputil.FormValue(r, "subscriptionPlan"),
		Logo:    logo,
	}
	if err := prepare(req); err != nil {
		h.logger.WarnContext(ctx, "invalid request", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	tenant, err := h.service.Update(ctx, tenantID, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "update organization failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(tenant))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, tenantID); err != nil {
		h.logger.ErrorContext(ctx, "delete organization failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// openLogo returns the first file sent as logo, if any, plus every opened
// part so the caller can close them.
func openLogo(r *http.Request) (*models.Upload, []httputil.FormFile, error) {
	files, err := httputil.OpenFiles(r, "logo")
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, files, nil
	}
	f := files[0]
	return &models.Upload{Name: f.Name, ContentType: f.ContentType, Size: f.Size, Body: f.File}, files, nil
}

func value(r *http.Request, field string) string {
	if v := httputil.FormValue(r, field); v != nil {
		return *v
	}
	return ""
}

func prepare(req any) error {
	if err := httputil.PrepareRequest(req); err != nil {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return err
		}
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return nil
}
