package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"studyroom/internal/model"
	"studyroom/internal/repository"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// AuthService registers users and issues/validates their tokens
type AuthService struct {
	users     repository.UserRepo
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserRepo, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(secret),
		tokenTTL:  tokenTTL,
	}
}

// Register creates an account and returns a token for it
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	switch {
	case len(username) < 3 || len(username) > 30:
		return nil, fmt.Errorf("%w: username must be 3-30 characters long", ErrValidation)
	case !emailPattern.MatchString(email):
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	case len(req.Password) < 6:
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, User: user}, nil
}

// Login validates credentials and returns a fresh token
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.users.TouchLogin(ctx, user.ID, now); err == nil {
		user.LastLogin = &now
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, User: user}, nil
}

// Profile returns the user behind a validated token
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

// GenerateToken signs an HS256 token carrying the user's id and name
func (s *AuthService) GenerateToken(user *model.User) (string, error) {
	now := time.Now()
	claims := &model.UserClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateUserToken validates a user JWT and returns claims
func (s *AuthService) ValidateUserToken(tokenString string) (*model.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
