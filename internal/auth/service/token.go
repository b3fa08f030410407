package service

import (
	"context"
	"errors"
	"time"

	"orbit/internal/access"
	"orbit/internal/auth/device"
	"orbit/internal/auth/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/privacy"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/requestcontext"
)

// Login verifies credentials and issues an access and a refresh token.
// Organization members must name their organization; an empty organization
// only matches the SuperAdmin.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResult, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveLoginDuration(float64(time.Since(start).Milliseconds()))
		}
	}()

	var tenantID id.TenantID
	if req.TenantID != "" {
		parsed, err := id.ParseTenantID(req.TenantID)
		if err != nil {
			return nil, err
		}
		tenantID = parsed
	}

	user, err := s.users.FindByEmail(ctx, tenantID, id.NormalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		if tenantID.IsNil() {
			s.authFailed(ctx, "missing_tenant")
			return nil, dErrors.New(dErrors.CodeValidation, "organizationId is required for organization users")
		}
		s.authFailed(ctx, "unknown_email", "tenant_id", tenantID.String(), "email", privacy.MaskEmail(req.Email))
		return nil, errInvalidCredentials
	}

	if err := s.hasher.Verify(req.Password, user.PasswordHash); err != nil {
		s.authFailed(ctx, "bad_password", "user_id", user.ID.String())
		return nil, errInvalidCredentials
	}
	if user.Role == access.RoleSuperAdmin {
		count, err := s.users.CountByRole(ctx, access.RoleSuperAdmin)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count super admins")
		}
		if count > 1 {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "more than one super admin account exists", "count", count)
			}
			return nil, dErrors.New(dErrors.CodeInternal, "login is disabled until the super admin accounts are reconciled")
		}
	}
	if !user.Active {
		s.authFailed(ctx, "inactive", "user_id", user.ID.String())
		return nil, dErrors.New(dErrors.CodeForbidden, "account is deactivated")
	}

	result, err := s.issue(ctx, user, "")
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementLogins()
	}
	info := device.Parse(requestcontext.UserAgent(ctx))
	attrs := append([]any{
		"user_id", user.ID.String(),
		"tenant_id", user.TenantID.String(),
		"role", string(user.Role),
	}, info.LogAttrs()...)
	s.auditor.emit(ctx, "user_logged_in", attrs...)
	return result, nil
}

// Refresh issues a new access token from a refresh token. Role and tenant
// are read from the store so revoked privileges take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenResult, error) {
	userID, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.authFailed(ctx, "bad_refresh_token")
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailed(ctx, "unknown_user", "user_id", userID.String())
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.Active {
		s.authFailed(ctx, "inactive", "user_id", user.ID.String())
		return nil, dErrors.New(dErrors.CodeForbidden, "account is deactivated")
	}

	result, err := s.issue(ctx, user, refreshToken)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementTokenRefreshes()
	}
	return result, nil
}

// issue mints an access token and, when refreshToken is empty, a new refresh token.
func (s *Service) issue(ctx context.Context, user *userModels.User, refreshToken string) (*models.TokenResult, error) {
	accessToken, err := s.tokens.GenerateAccessToken(ctx, user.ID, string(user.Role), user.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	if refreshToken == "" {
		refreshToken, err = s.tokens.GenerateRefreshToken(ctx, user.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
		}
	}
	return &models.TokenResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.tokens.AccessTTL(),
		User:         user,
	}, nil
}
