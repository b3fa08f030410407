// Package auth authenticates API requests from a bearer access token.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/httputil"
	"orbit/pkg/requestcontext"
)

type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is what a validated token asserts. TenantID is empty for the
// SuperAdmin.
type JWTClaims struct {
	UserID   string
	TenantID string
	Role     string
}

var errMissingToken = errors.New("missing bearer token")

// RequireAuth rejects requests without a valid access token with 401 and
// stores the token's principal on the context otherwise.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, r *http.Request, reason string, err error, description string) {
		ctx := r.Context()
		logger.WarnContext(ctx, "request not authenticated",
			"reason", reason,
			"error", err,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, description))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, "missing_token", errMissingToken, "missing or invalid Authorization header")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				reject(w, r, "invalid_token", err, "invalid or expired token")
				return
			}
			principal, err := principalFrom(claims)
			if err != nil {
				reject(w, r, "malformed_claims", err, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(r.Context(), principal)))
		})
	}
}

// bearerToken accepts the scheme in any case, as RFC 6750 allows.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func principalFrom(claims *JWTClaims) (requestcontext.Principal, error) {
	if claims == nil {
		return requestcontext.Principal{}, errors.New("no claims")
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return requestcontext.Principal{}, fmt.Errorf("user id: %w", err)
	}
	role := strings.TrimSpace(claims.Role)
	if role == "" {
		return requestcontext.Principal{}, errors.New("missing role")
	}
	p := requestcontext.Principal{UserID: userID, Role: role}
	if claims.TenantID != "" {
		if p.TenantID, err = id.ParseTenantID(claims.TenantID); err != nil {
			return requestcontext.Principal{}, fmt.Errorf("tenant id: %w", err)
		}
	}
	return p, nil
}
