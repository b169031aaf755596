package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"todoclient/internal/models"
)

var (
	ErrUserAlreadyExists   = errors.New("user with this email already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserInactive        = errors.New("user account is inactive")
	ErrRefreshTokenInvalid = errors.New("refresh token is invalid or expired")
)

// Session is the result of a successful sign-in: the access token for the
// response body and the refresh token for the cookie
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
}

// Service issues and renews sessions backed by the users and refresh_tokens tables
type Service struct {
	db        *gorm.DB
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service
func NewService(db *gorm.DB, jwtConfig *JWTConfig) *Service {
	return &Service{db: db, jwtConfig: jwtConfig}
}

// Config returns the JWT settings, used by the auth middleware
func (s *Service) Config() *JWTConfig {
	return s.jwtConfig
}

// Register creates an account and signs it in
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*Session, error) {
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        email,
		PasswordHash: hashed,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(ctx, user)
}

// Login checks credentials and opens a session
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if err := VerifyPassword(req.Password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now
	s.db.WithContext(ctx).Model(&user).Update("last_login_at", now)

	return s.issue(ctx, &user)
}

// Refresh exchanges a refresh token for a new session. The presented token is revoked (rotation).
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenInvalid
	}

	var stored models.RefreshToken
	err := s.db.WithContext(ctx).Preload("User").Where("token = ?", hashToken(refreshToken)).First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	if !stored.IsValid() {
		return nil, ErrRefreshTokenInvalid
	}
	if !stored.User.IsActive {
		return nil, ErrUserInactive
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", stored.ID).
		Update("revoked_at", now)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", result.Error)
	}
	// lost a race with another refresh of the same token
	if result.RowsAffected == 0 {
		return nil, ErrRefreshTokenInvalid
	}

	return s.issue(ctx, &stored.User)
}

// Revoke invalidates a refresh token. Unknown tokens are ignored.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", hashToken(refreshToken)).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// UserByID loads an active user
func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return &user, nil
}

// CleanupExpiredTokens deletes refresh tokens that expired or were revoked before cutoff
func (s *Service) CleanupExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Unscoped().
		Where("expires_at < ? OR revoked_at < ?", cutoff, cutoff).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Service) issue(ctx context.Context, user *models.User) (*Session, error) {
	access, err := GenerateAccessToken(user, s.jwtConfig)
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	stored := &models.RefreshToken{
		UserID:    user.ID,
		Token:     hashToken(refresh),
		ExpiresAt: time.Now().Add(s.jwtConfig.RefreshTokenDuration),
	}
	if err := s.db.WithContext(ctx).Create(stored).Error; err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &Session{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshTTL:   s.jwtConfig.RefreshTokenDuration,
	}, nil
}

// hashToken is what gets stored; the raw refresh token only lives in the cookie
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
