package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"orbit/internal/client/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/httputil"
	pkgstrings "orbit/pkg/platform/strings"
	"orbit/pkg/platform/validation"
	"orbit/pkg/requestcontext"
)

// Service defines the client operations.
type Service interface {
	Create(ctx context.Context, req *models.CreateClientRequest) (*models.Client, error)
	List(ctx context.Context, q models.ListClientsQuery) ([]*models.Client, int, error)
	Get(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	Update(ctx context.Context, clientID id.ClientID, req *models.UpdateClientRequest) (*models.Client, error)
	Delete(ctx context.Context, clientID id.ClientID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the client routes. Authentication is applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	client, err := h.service.Create(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "create client failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(client))
}

// HandleList serves GET /clients?page=&limit=&search=&tags=&assignedTo=&organizationId=.
// tags may be repeated or comma separated.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	query := r.URL.Query()

	tags := pkgstrings.SplitList(query["tags"]...)
	if err := validation.CheckSliceCount("tags", len(tags), validation.MaxTags); err != nil {
		httputil.WriteError(w, err)
		return
	}
	page := httputil.ParsePage(r, validation.DefaultPageLimit, validation.MaxPageLimit)
	q := models.ListClientsQuery{
		TenantID:   strings.TrimSpace(query.Get("organizationId")),
		Search:     validation.SearchTerm(query.Get("search")),
		Tags:       tags,
		AssignedTo: strings.TrimSpace(query.Get("assignedTo")),
		Offset:     page.Offset(),
		Limit:      page.Limit,
	}
	clients, total, err := h.service.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "list clients failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	items := make([]*models.ClientResponse, 0, len(clients))
	for _, c := range clients {
		items = append(items, models.ToResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPageResponse(items, total, page))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	client, err := h.service.Get(ctx, clientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get client failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(client))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	client, err := h.service.Update(ctx, clientID, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "update client failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(client))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, clientID); err != nil {
		h.logger.ErrorContext(ctx, "delete client failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
