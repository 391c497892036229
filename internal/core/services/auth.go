package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService implements the AuthService interface for the single admin account
type authService struct {
	adminUser   string
	adminHash   string
	authAdapter driven.AuthAdapter
	tokenTTL    time.Duration
}

// AuthServiceConfig holds the admin account and token settings
type AuthServiceConfig struct {
	AdminUser         string
	AdminPasswordHash string // bcrypt hash; empty disables token issuance
	AuthAdapter       driven.AuthAdapter
	TokenTTL          time.Duration // default: 12h
}

// NewAuthService creates a new AuthService
func NewAuthService(cfg AuthServiceConfig) driving.AuthService {
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = 12 * time.Hour
	}
	return &authService{
		adminUser:   cfg.AdminUser,
		adminHash:   cfg.AdminPasswordHash,
		authAdapter: cfg.AuthAdapter,
		tokenTTL:    ttl,
	}
}

// Authenticate checks admin credentials and issues a token
func (s *authService) Authenticate(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	if s.adminUser == "" || s.adminHash == "" {
		return nil, domain.ErrUnauthorized
	}

	// The hash check runs even when the username is wrong
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminUser)) == 1
	passOK := s.authAdapter.VerifyPassword(req.Password, s.adminHash)
	if !userOK || !passOK {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.authAdapter.GenerateToken(&domain.TokenClaims{
		Subject:   s.adminUser,
		Role:      domain.RoleAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	}, nil
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, err
		}
		return nil, domain.ErrTokenInvalid
	}

	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	return &domain.AuthContext{
		Subject: claims.Subject,
		Role:    claims.Role,
	}, nil
}
