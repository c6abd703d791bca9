// Package auth issues and validates the bearer tokens that carry caller
// identity. The hosting deployment authenticates principals however it
// likes; passgate only requires that the resulting token's subject names
// the caller.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "passgate/pkg/domain-errors"
)

// Claims are the JWT claims for caller-identity tokens. Subject is the
// caller identity handed to the registry.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey string, issuer string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateToken mints a caller-identity token. Used by operator tooling and
// tests; production deployments typically bring their own issuer sharing
// the signing key.
func (s *TokenService) GenerateToken(identity string, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken verifies the token and returns the caller identity.
func (s *TokenService) ValidateToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token subject missing")
	}
	return claims.Subject, nil
}
