package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/sharelink/models"
	"github.com/cppla/sharelink/utils"
)

// AuthService registers users, checks credentials and resolves session tokens to users.
type AuthService struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

// NewAuthService creates an AuthService issuing tokens valid for tokenTTL.
func NewAuthService(db *gorm.DB, tokenTTL time.Duration) *AuthService {
	return &AuthService{db: db, tokenTTL: tokenTTL}
}

// Session is the result of a successful register or login.
type Session struct {
	Token string
	User  *models.User
}

// Register creates a user with a unique email and issues a session token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken.Wrap(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login checks the password of the account registered under email.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(&user)
}

// Authenticate verifies a session token and loads the user it was issued to.
// Revoked tokens and tokens of users that no longer exist are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *utils.Claims, error) {
	if utils.IsTokenBlacklisted(token) {
		return nil, nil, ErrNotAuthorized
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil, nil, ErrNotAuthorized.Wrap(err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotAuthorized
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	return &user, claims, nil
}

// Logout revokes token until it would have expired on its own.
func (s *AuthService) Logout(claims *utils.Claims, token string) {
	expiresAt := time.Now().Add(s.tokenTTL)
	if claims != nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, err := utils.GenerateToken(user.ID, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
