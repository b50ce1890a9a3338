package repository

import (
	"context"
	"fmt"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/models"
	"gorm.io/gorm"
)

// CodeRepository gives the share subsystem read access to discount codes.
// CreateCode exists for seeding from the CLI.
type CodeRepository interface {
	GetCodeByID(ctx context.Context, id uint) (*models.DiscountCode, error)
	CreateCode(ctx context.Context, code *models.DiscountCode) error
}

type GormCodeRepository struct {
	db *gorm.DB
}

func NewCodeRepository(db *gorm.DB) *GormCodeRepository {
	return &GormCodeRepository{db: db}
}

func (r *GormCodeRepository) GetCodeByID(ctx context.Context, id uint) (*models.DiscountCode, error) {
	var code models.DiscountCode
	if err := r.db.WithContext(ctx).First(&code, id).Error; err != nil {
		return nil, notFound(err, customerrors.ErrCodeNotFound, fmt.Sprintf("failed to get discount code %d", id))
	}
	return &code, nil
}

func (r *GormCodeRepository) CreateCode(ctx context.Context, code *models.DiscountCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return fmt.Errorf("failed to create discount code: %w", err)
	}
	return nil
}
