package jwttoken

import (
	"reliefhub/internal/platform/middleware"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
)

// JWTServiceAdapter bridges JWTService to the middleware.JWTValidator
// interface, converting the string user ID into its typed form.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.JWTClaims{UserID: userID}, nil
}
