package client

import (
	"errors"

	"ambulance-finance/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type tokenClaims struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// TokenUserProvider resolves the signed-in user from the access token the
// client sends. The token is decoded, not verified; the ledger verifies it.
type TokenUserProvider struct {
	user *models.CurrentUser
}

func NewTokenUserProvider(accessToken string) (*TokenUserProvider, error) {
	if accessToken == "" {
		return &TokenUserProvider{}, nil
	}

	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errors.New("client: access token has no user_id claim")
	}

	return &TokenUserProvider{user: &models.CurrentUser{
		ID:       claims.UserID,
		Name:     claims.Name,
		UserType: models.UserType(claims.UserType),
	}}, nil
}

// CurrentUser returns nil when no token was configured.
func (p *TokenUserProvider) CurrentUser() *models.CurrentUser {
	if p == nil || p.user == nil {
		return nil
	}
	user := *p.user
	return &user
}

// StaticUserProvider always returns the same user; nil means signed out.
type StaticUserProvider struct {
	User *models.CurrentUser
}

func (p StaticUserProvider) CurrentUser() *models.CurrentUser {
	return p.User
}
