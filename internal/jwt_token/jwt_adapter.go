package jwttoken

import (
	"kycflow/internal/platform/middleware"
)

// JWTServiceAdapter lets the auth middleware consume JWTService without
// importing jwt types.
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
	return &middleware.JWTClaims{ApplicantID: claims.ApplicantID()}, nil
}
