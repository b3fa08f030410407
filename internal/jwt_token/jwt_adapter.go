package jwttoken

import (
	"orbit/pkg/platform/middleware/auth"
)

// AccessValidator validates access tokens for the auth middleware. Refresh
// tokens fail here because they carry no role.
type AccessValidator struct {
	svc *JWTService
}

func (s *JWTService) AccessValidator() AccessValidator {
	return AccessValidator{svc: s}
}

func (v AccessValidator) ValidateToken(token string) (*auth.JWTClaims, error) {
	claims, err := v.svc.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &auth.JWTClaims{UserID: claims.Subject, TenantID: claims.TenantID, Role: claims.Role}, nil
}
