package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

const (
	mockHashPrefix  = "mock$"
	mockTokenPrefix = "mock."
)

// MockAuthAdapter hashes by prefixing and encodes tokens as unsigned JSON.
// Expired claims are reported as domain.ErrTokenExpired, like the JWT adapter.
type MockAuthAdapter struct{}

// NewMockAuthAdapter creates a new MockAuthAdapter
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

// MockHash is what HashPassword returns for password
func MockHash(password string) string {
	return mockHashPrefix + password
}

func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty password", domain.ErrInvalidInput)
	}
	return MockHash(password), nil
}

func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return hash == MockHash(password)
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	return mockTokenPrefix + base64.RawURLEncoding.EncodeToString(data), nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	payload, ok := strings.CutPrefix(token, mockTokenPrefix)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.ExpiresAt != 0 && time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}
	return &claims, nil
}
