package services

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/models"
	"github.com/marcorisi/discount-codes/internal/repository"
	"github.com/marcorisi/discount-codes/internal/validator"
)

const bcryptCost = bcrypt.DefaultCost

// Credentials is a login form.
type Credentials struct {
	Username string `form:"username" validate:"required,max=80"`
	Password string `form:"password" validate:"required,max=72"`
}

// AuthService manages login accounts.
type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// CreateUser stores a new account with a bcrypt-hashed password.
func (s *AuthService) CreateUser(ctx context.Context, creds Credentials) (*models.User, error) {
	if err := validator.ValidateStruct(creds); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{Username: creds.Username, PasswordHash: string(hash)}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the account matching creds. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, customerrors.ErrInvalidCredentials
	}
	user, err := s.userRepo.GetUserByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, customerrors.ErrUserNotFound) {
			return nil, customerrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		log.WithField("username", creds.Username).Debug("password mismatch")
		return nil, customerrors.ErrInvalidCredentials
	}
	return user, nil
}

// GetUser loads the account with id.
func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetUserByID(ctx, id)
}
