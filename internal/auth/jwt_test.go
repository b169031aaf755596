package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"todoclient/internal/models"
)

func testConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "test",
	}
}

func TestNewJWTConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewJWTConfigFromEnv()
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenDuration)
		assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenDuration)
		assert.Equal(t, "todo-devserver", cfg.Issuer)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "s3cret")
		t.Setenv("JWT_ACCESS_TOKEN_MINUTES", "1")
		t.Setenv("JWT_REFRESH_TOKEN_DAYS", "not-a-number")

		cfg := NewJWTConfigFromEnv()
		assert.Equal(t, "s3cret", cfg.SecretKey)
		assert.Equal(t, time.Minute, cfg.AccessTokenDuration)
		assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenDuration)
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	user := &models.User{ID: "user-1", Email: "ann@example.com", Username: "ann"}

	token, err := GenerateAccessToken(user, cfg)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, "test", claims.Issuer)

	again, err := GenerateAccessToken(user, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, token, again)
}

func TestValidateAccessToken(t *testing.T) {
	cfg := testConfig()
	user := &models.User{ID: "user-1", Email: "ann@example.com"}

	t.Run("expired", func(t *testing.T) {
		expired := *cfg
		expired.AccessTokenDuration = -time.Minute
		token, err := GenerateAccessToken(user, &expired)
		require.NoError(t, err)

		_, err = ValidateAccessToken(token, cfg)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := *cfg
		other.SecretKey = "other"
		token, err := GenerateAccessToken(user, &other)
		require.NoError(t, err)

		_, err = ValidateAccessToken(token, cfg)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := *cfg
		other.Issuer = "someone-else"
		token, err := GenerateAccessToken(user, &other)
		require.NoError(t, err)

		_, err = ValidateAccessToken(token, cfg)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "test"},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ValidateAccessToken(signed, cfg)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateAccessToken("not.a.token", cfg)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestGenerateRefreshToken(t *testing.T) {
	a, err := GenerateRefreshToken()
	require.NoError(t, err)
	b, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
	assert.False(t, strings.ContainsAny(a, "+/="))
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer abc", "abc", false},
		{"lowercase scheme", "bearer abc", "abc", false},
		{"empty", "", "", true},
		{"no token", "Bearer ", "", true},
		{"basic", "Basic abc", "", true},
		{"no space", "Bearerabc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
