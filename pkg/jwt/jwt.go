package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Role is a platform role carried in the token
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleSupport Role = "support"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent, RoleSupport:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on tickets as staff
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleSupport:
		return true
	case RoleTeacher, RoleStudent, RoleParent:
		return false
	}
	return false
}

// Claims represents the claims in a JWT token
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// HasRole checks the role claim
func (c *Claims) HasRole(role Role) bool {
	return c != nil && c.Role == role
}

// IsStaff reports whether the token belongs to staff
func (c *Claims) IsStaff() bool {
	return c != nil && c.Role.IsStaff()
}

// Service signs and validates HS256 tokens
type Service struct {
	secretKey []byte
	issuer    string
	expiry    time.Duration
}

// NewService creates a new JWT service
func NewService(secretKey, issuer string, expiry time.Duration) *Service {
	if secretKey == "" {
		// Development fallback; config validation rejects it in production.
		secretKey = "devJwtSecretDoNotUseInProduction"
	}
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &Service{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		expiry:    expiry,
	}
}

// GenerateToken issues a token for a user. Issuance belongs to the
// platform's auth service; this exists for tooling and tests.
func (s *Service) GenerateToken(userID, email string, role Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return s.secretKey, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
