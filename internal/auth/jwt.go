package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"todoclient/internal/models"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("authorization token is missing")
)

// JWTConfig holds the signing settings for access and refresh tokens
type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// NewJWTConfigFromEnv creates a JWT config from environment variables
func NewJWTConfigFromEnv() *JWTConfig {
	return &JWTConfig{
		SecretKey:            getEnv("JWT_SECRET_KEY", "INSECURE_DEVELOPMENT_SECRET"),
		AccessTokenDuration:  time.Duration(getEnvInt("JWT_ACCESS_TOKEN_MINUTES", 15)) * time.Minute,
		RefreshTokenDuration: time.Duration(getEnvInt("JWT_REFRESH_TOKEN_DAYS", 7)) * 24 * time.Hour,
		Issuer:               getEnv("JWT_ISSUER", "todo-devserver"),
	}
}

// Claims is the payload of an access token. The subject is the user id.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token
func (c *Claims) UserID() string {
	return c.Subject
}

// GenerateAccessToken signs a short-lived access token for user
func GenerateAccessToken(user *models.User, config *JWTConfig) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(), // unique per token even within the same second
			Subject:   user.ID,
			Issuer:    config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.AccessTokenDuration)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken returns an opaque random refresh token
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidateAccessToken verifies signature, issuer and expiry and returns the claims
func ValidateAccessToken(tokenString string, config *JWTConfig) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method: %v", ErrInvalidSignature, token.Header["alg"])
		}
		return []byte(config.SecretKey), nil
	}, jwt.WithIssuer(config.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractTokenFromHeader returns the token of a "Bearer <token>" header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
