package service

import (
	"context"
	"fmt"

	"linkhub/internal/config"
	"linkhub/internal/domain"
	"linkhub/internal/repository"
	apperrors "linkhub/pkg/errors"
	"linkhub/pkg/jwt"
	"linkhub/pkg/logger"
)

// AuthService is the boundary to the session provider: it turns a bearer
// token into an authenticated user. Issuing tokens and managing credentials
// happens elsewhere.
type AuthService interface {
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.AccessSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", apperrors.ErrInvalidToken)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is deactivated", apperrors.ErrUnauthorized)
	}

	return user, nil
}
