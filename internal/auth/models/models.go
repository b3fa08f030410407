package models

import (
	"time"

	userModels "orbit/internal/user/models"
)

// TokenResult is the outcome of a successful sign-in or refresh.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *userModels.User
}

// TokenResponse is the JSON body returned by login and refresh.
type TokenResponse struct {
	AccessToken  string                   `json:"accessToken"`
	RefreshToken string                   `json:"refreshToken"`
	TokenType    string                   `json:"tokenType"`
	ExpiresIn    int                      `json:"expiresIn"`
	User         *userModels.UserResponse `json:"user"`
}

func ToTokenResponse(r *TokenResult) *TokenResponse {
	return &TokenResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(r.ExpiresIn.Seconds()),
		User:         userModels.ToResponse(r.User),
	}
}
