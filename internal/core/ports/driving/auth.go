package driving

import (
	"context"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// AuthService issues and validates admin bearer tokens
type AuthService interface {
	// Authenticate checks admin credentials and issues a token
	Authenticate(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error)

	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
