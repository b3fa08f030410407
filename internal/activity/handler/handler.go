package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"orbit/internal/activity/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/httputil"
	"orbit/pkg/platform/validation"
	"orbit/pkg/requestcontext"
)

// maxUploadBody bounds a multipart request: every file at its limit plus form fields.
const maxUploadBody = validation.MaxFiles*validation.MaxFileSize + 1<<20

// Service defines the activity operations.
type Service interface {
	Create(ctx context.Context, req *models.CreateActivityRequest) (*models.Activity, error)
	List(ctx context.Context, q models.ListActivitiesQuery) ([]*models.Activity, int, error)
	Get(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	Update(ctx context.Context, activityID id.ActivityID, req *models.UpdateActivityRequest) (*models.Activity, error)
	Delete(ctx context.Context, activityID id.ActivityID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the activity routes. Authentication is applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/activity", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleCreate reads a multipart form with fields clientId, type,
// description, date, assignedTo and up to ten image parts named files.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := httputil.ParseMultipart(w, r, maxUploadBody, validation.MaxMultipartMemory); err != nil {
		httputil.WriteError(w, err)
		return
	}
	files, err := httputil.OpenFiles(r, "files")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer httputil.CloseFiles(files)

	req := &models.CreateActivityRequest{
		ClientID:    value(r, "clientId"),
		Type:        value(r, "type"),
		Description: value(r, "description"),
		Date:        value(r, "date"),
		AssignedTo:  value(r, "assignedTo"),
		Files:       uploads(files),
	}
	if err := prepare(req); err != nil {
		h.logger.WarnContext(ctx, "invalid request", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	activity, err := h.service.Create(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "create activity failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(activity))
}

// HandleList serves GET /activity?page=&limit=&clientId=&type=&assignedTo=&search=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	query := r.URL.Query()

	page := httputil.ParsePage(r, validation.DefaultPageLimit, validation.MaxPageLimit)
	q := models.ListActivitiesQuery{
		ClientID:   strings.TrimSpace(query.Get("clientId")),
		Type:       strings.TrimSpace(query.Get("type")),
		AssignedTo: strings.TrimSpace(query.Get("assignedTo")),
		Search:     validation.SearchTerm(query.Get("search")),
		Offset:     page.Offset(),
		Limit:      page.Limit,
	}
	activities, total, err := h.service.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "list activities failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	items := make([]*models.ActivityResponse, 0, len(activities))
	for _, a := range activities {
		items = append(items, models.ToResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPageResponse(items, total, page))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	activityID, err := id.ParseActivityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	activity, err := h.service.Get(ctx, activityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get activity failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(activity))
}

// HandleUpdate takes the same multipart fields as create; omitted fields
// are left unchanged and any files replace the current attachments.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	activityID, err := id.ParseActivityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := httputil.ParseMultipart(w, r, maxUploadBody, validation.MaxMultipartMemory); err != nil {
		httputil.WriteError(w, err)
		return
	}
	files, err := httputil.OpenFiles(r, "files")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer httputil.CloseFiles(files)

	req := &models.UpdateActivityRequest{
		ClientID:    httputil.FormValue(r, "clientId"),
		Type:        httputil.FormValue(r, "type"),
		Description: httputil.FormValue(r, "description"),
		Date:        httputil.FormValue(r, "date"),
		AssignedTo:  httputil.FormValue(r, "assignedTo"),
		Files:       uploads(files),
	}
	if err := prepare(req); err != nil {
		h.logger.WarnContext(ctx, "invalid request", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	activity, err := h.service.Update(ctx, activityID, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "update activity failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(activity))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	activityID, err := id.ParseActivityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, activityID); err != nil {
		h.logger.ErrorContext(ctx, "delete activity failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func value(r *http.Request, field string) string {
	if v := httputil.FormValue(r, field); v != nil {
		return *v
	}
	return ""
}

func uploads(files []httputil.FormFile) []models.Upload {
	out := make([]models.Upload, 0, len(files))
	for _, f := range files {
		out = append(out, models.Upload{Name: f.Name, ContentType: f.ContentType, Size: f.Size, Body: f.File})
	}
	return out
}

// prepare keeps domain error codes and reports anything else as a validation failure.
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
