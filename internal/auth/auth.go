package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ksred/order-bot/pkg/response"
)

var (
	ErrInvalidCredentials = errors.New("invalid operator credentials")
	ErrTokenGeneration    = errors.New("failed to generate token")
	ErrNotConfigured      = errors.New("operator access is not configured")
)

// PermissionOperator grants access to the internal routes
const PermissionOperator = "operator"

// Credentials are the operator API key pair
type Credentials struct {
	APIKey    string `json:"api_key" binding:"required"`
	APISecret string `json:"api_secret" binding:"required"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	Expiration time.Time `json:"expiration"`
}

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	ClientID    string   `json:"client_id"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the token carries permission
func (c *Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Service issues and validates operator tokens for one configured key pair
type Service struct {
	jwtSecret []byte
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

// NewService creates the service. With an empty key every token request is refused.
func NewService(jwtSecret, apiKey, apiSecret string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       time.Hour,
	}
}

// GenerateToken exchanges valid operator credentials for a short-lived token
func (s *Service) GenerateToken(creds Credentials) (*TokenResponse, error) {
	if s.apiKey == "" || len(s.jwtSecret) == 0 {
		return nil, ErrNotConfigured
	}
	if !s.validateCredentials(creds) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	expiration := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		ClientID:    creds.APIKey,
		Permissions: []string{PermissionOperator},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		Expiration: expiration,
	}, nil
}

// ValidateToken verifies signature and expiry and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, ErrNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func (s *Service) validateCredentials(creds Credentials) bool {
	keyOK := subtle.ConstantTimeCompare([]byte(creds.APIKey), []byte(s.apiKey)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(creds.APISecret), []byte(s.apiSecret)) == 1
	return keyOK && secretOK
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// GenerateTokenHandler handles POST /api/v1/auth/token
func (h *GinHandlers) GenerateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		token, err := h.service.GenerateToken(creds)
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Unauthorized(c, err.Error())
			return
		case errors.Is(err, ErrNotConfigured):
			response.Forbidden(c, err.Error())
			return
		}
		response.Handle(c, token, err)
	}
}
