package service

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAuthenticated is the expected role claim for signed-in users.
const RoleAuthenticated = "authenticated"

// Claims represents the JWT claims structure issued by the auth provider.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// AuthService handles JWT token validation.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new AuthService with the given JWT secret.
func NewAuthService(secret string) *AuthService {
	return &AuthService{jwtSecret: []byte(secret)}
}

// ValidateToken validates a JWT token and returns the claims. The subject
// claim carries the stable user identity.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	if claims.Role != RoleAuthenticated {
		return nil, errors.New("authenticated role required")
	}
	return claims, nil
}
