package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidAPIKey is returned when the presented admin API key does not match
var ErrInvalidAPIKey = errors.New("invalid API key")

// AuthService handles authentication for the admin API
type AuthService interface {
	// ExchangeAPIKey trades the configured admin API key for a bearer token
	ExchangeAPIKey(apiKey string) (*TokenResponse, error)
	// ValidateAccessToken parses and verifies a bearer token
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// TokenResponse contains the issued bearer token
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"` // seconds
}

// Claims represents JWT claims
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	apiKey     string
	jwtSecret  []byte
	expiration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(apiKey, jwtSecret string, expiration time.Duration) AuthService {
	return &authService{
		apiKey:     apiKey,
		jwtSecret:  []byte(jwtSecret),
		expiration: expiration,
	}
}

// ExchangeAPIKey validates the presented key and signs a short-lived token
func (s *authService) ExchangeAPIKey(apiKey string) (*TokenResponse, error) {
	if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.apiKey)) != 1 {
		return nil, ErrInvalidAPIKey
	}

	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   "admin",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &TokenResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.expiration.Seconds()),
	}, nil
}

// ValidateAccessToken validates a JWT access token and returns the claims
func (s *authService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
