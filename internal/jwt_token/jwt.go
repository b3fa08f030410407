package jwttoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/requestcontext"
)

// TokenTypeRefresh marks refresh tokens so they can never be used as access tokens.
const TokenTypeRefresh = "refresh"

// AccessTokenClaims represents the JWT claims for access tokens.
// TenantID is empty for SuperAdmin.
type AccessTokenClaims struct {
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims carries only the subject. Role and tenant are re-read
// from the store when the refresh token is exchanged.
type RefreshTokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTService(signingKey string, issuer string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL is the lifetime of issued access tokens.
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *JWTService) GenerateAccessToken(ctx context.Context, userID id.UserID, role string, tenantID id.TenantID) (string, error) {
	if userID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user ID cannot be empty")
	}
	if role == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	jti, err := newJTI()
	if err != nil {
		return "", err
	}
	now := requestcontext.Now(ctx)

	claims := AccessTokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	}
	if !tenantID.IsNil() {
		claims.TenantID = tenantID.String()
	}
	return s.sign(claims)
}

func (s *JWTService) GenerateRefreshToken(ctx context.Context, userID id.UserID) (string, error) {
	if userID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user ID cannot be empty")
	}
	jti, err := newJTI()
	if err != nil {
		return "", err
	}
	now := requestcontext.Now(ctx)

	return s.sign(RefreshTokenClaims{
		Type: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})
}

func (s *JWTService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	claims := new(AccessTokenClaims)
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Role == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// ValidateRefreshToken returns the subject of a valid refresh token.
func (s *JWTService) ValidateRefreshToken(tokenString string) (id.UserID, error) {
	claims := new(RefreshTokenClaims)
	if err := s.parse(tokenString, claims); err != nil {
		return id.UserID{}, err
	}
	if claims.Type != TokenTypeRefresh {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "not a refresh token")
	}
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return userID, nil
}

func (s *JWTService) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims) error {
	if tokenString == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		if errors.Is(err, jwt.ErrTokenInvalidIssuer) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid token issuer")
		}
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return nil
}

func newJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token id")
	}
	return hex.EncodeToString(b), nil
}
