package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

// Issuer is written into and required on every token.
const Issuer = "cms-mirror"

// claims carries the role alongside the registered JWT claims
type claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Adapter signs HS256 tokens and checks bcrypt password hashes
type Adapter struct {
	secret     []byte
	bcryptCost int
}

// NewAdapter creates an adapter with the default bcrypt cost
func NewAdapter(secret string) *Adapter {
	return NewAdapterWithCost(secret, bcrypt.DefaultCost)
}

// NewAdapterWithCost creates an adapter with a custom bcrypt cost
func NewAdapterWithCost(secret string, cost int) *Adapter {
	return &Adapter{
		secret:     []byte(secret),
		bcryptCost: cost,
	}
}

// HashPassword generates a bcrypt hash
func (a *Adapter) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches a bcrypt hash
func (a *Adapter) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs domain claims into a JWT
func (a *Adapter) GenerateToken(tc *domain.TokenClaims) (string, error) {
	c := claims{
		Role: tc.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   tc.Subject,
			IssuedAt:  jwt.NewNumericDate(time.Unix(tc.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(tc.ExpiresAt, 0)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

// ParseToken verifies a JWT and returns its domain claims.
// Expired tokens map to domain.ErrTokenExpired, anything else to domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(raw string) (*domain.TokenClaims, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !token.Valid || c.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}

	tc := &domain.TokenClaims{
		Subject:   c.Subject,
		Role:      c.Role,
		ExpiresAt: c.ExpiresAt.Unix(),
	}
	if c.IssuedAt != nil {
		tc.IssuedAt = c.IssuedAt.Unix()
	}
	return tc, nil
}
