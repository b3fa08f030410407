package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orbit/internal/auth/models"
	userModels "orbit/internal/user/models"
	"orbit/pkg/platform/httputil"
	"orbit/pkg/requestcontext"
)

// Service defines registration and token operations.
type Service interface {
	RegisterSuperAdmin(ctx context.Context, req *models.RegisterSuperAdminRequest) (*userModels.User, error)
	RegisterOwner(ctx context.Context, req *models.RegisterOwnerRequest) (*userModels.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResult, error)
}

type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// RegisterPublic mounts the routes that need no token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/superadmin/register", h.HandleRegisterSuperAdmin)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/refresh", h.HandleRefresh)
}

// Register mounts the routes that require an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/owner/register", h.HandleRegisterOwner)
}

// HandleRegisterSuperAdmin implements POST /auth/superadmin/register.
// Succeeds once; every later call is rejected with 409.
func (h *Handler) HandleRegisterSuperAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterSuperAdminRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	user, err := h.auth.RegisterSuperAdmin(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "register super admin failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, userModels.ToResponse(user))
}

func (h *Handler) HandleRegisterOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterOwnerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	user, err := h.auth.RegisterOwner(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "register owner failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, userModels.ToResponse(user))
}

// HandleLogin implements POST /auth/login.
//
// Input: { "email": "ann@acme.test", "password": "...", "organizationId": "..." }
// Output: { "accessToken": "...", "refreshToken": "...", "tokenType": "Bearer", "expiresIn": 3600, "user": {...} }
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.auth.Login(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToTokenResponse(result))
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RefreshRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.logger.WarnContext(ctx, "token refresh failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToTokenResponse(result))
}
