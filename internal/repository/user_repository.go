package repository

import (
	"context"
	"fmt"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/models"
	"gorm.io/gorm"
)

// UserRepository stores login accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// GormUserRepository implements UserRepository on top of GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a GormUserRepository using db.
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// CreateUser inserts user; the username must be unused.
func (r *GormUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q already taken: %w", user.Username, err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername returns ErrUserNotFound when no account matches.
func (r *GormUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, customerrors.ErrUserNotFound, "failed to get user by username")
	}
	return &user, nil
}

// GetUserByID returns ErrUserNotFound when no account matches.
func (r *GormUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, customerrors.ErrUserNotFound, fmt.Sprintf("failed to get user %d", id))
	}
	return &user, nil
}
