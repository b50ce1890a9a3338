package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/models"
	"gorm.io/gorm"
)

// ShareRepository is the persistence interface for shares.
type ShareRepository interface {
	CreateShare(ctx context.Context, share *models.Share) error
	GetShareByToken(ctx context.Context, token string) (*models.Share, error)
	GetShareByID(ctx context.Context, id uint) (*models.Share, error)
	ListSharesByCreator(ctx context.Context, userID uint) ([]models.Share, error)
	IncrementVisitCount(ctx context.Context, id uint) (int, error)
	DeleteShare(ctx context.Context, id uint) error
	DeleteExpiredShares(ctx context.Context, before time.Time) (int64, error)
}

// GormShareRepository implements ShareRepository on top of GORM.
type GormShareRepository struct {
	db *gorm.DB
}

// NewShareRepository returns a GormShareRepository using db.
func NewShareRepository(db *gorm.DB) *GormShareRepository {
	return &GormShareRepository{db: db}
}

// CreateShare inserts share. A token that already exists yields
// ErrTokenCollision and leaves the stored row untouched.
func (r *GormShareRepository) CreateShare(ctx context.Context, share *models.Share) error {
	if err := r.db.WithContext(ctx).Create(share).Error; err != nil {
		if isUniqueViolation(err) {
			return customerrors.ErrTokenCollision
		}
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

// GetShareByToken looks a share up by its exact, case-sensitive token.
func (r *GormShareRepository) GetShareByToken(ctx context.Context, token string) (*models.Share, error) {
	var share models.Share
	err := r.db.WithContext(ctx).Preload("DiscountCode").Where("token = ?", token).First(&share).Error
	if err != nil {
		return nil, notFound(err, customerrors.ErrShareNotFound, "failed to get share by token")
	}
	return &share, nil
}

// GetShareByID looks a share up by primary key.
func (r *GormShareRepository) GetShareByID(ctx context.Context, id uint) (*models.Share, error) {
	var share models.Share
	if err := r.db.WithContext(ctx).Preload("DiscountCode").First(&share, id).Error; err != nil {
		return nil, notFound(err, customerrors.ErrShareNotFound, fmt.Sprintf("failed to get share %d", id))
	}
	return &share, nil
}

// ListSharesByCreator returns the shares userID created, most recent first.
func (r *GormShareRepository) ListSharesByCreator(ctx context.Context, userID uint) ([]models.Share, error) {
	var shares []models.Share
	err := r.db.WithContext(ctx).
		Preload("DiscountCode").
		Where("created_by = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shares for user %d: %w", userID, err)
	}
	return shares, nil
}

// IncrementVisitCount adds one to the share's visit counter in a single
// UPDATE and returns the value written by this call.
func (r *GormShareRepository) IncrementVisitCount(ctx context.Context, id uint) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Share{}).Where("id = ?", id).
			UpdateColumn("visit_count", gorm.Expr("visit_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return customerrors.ErrShareNotFound
		}
		var updated models.Share
		if err := tx.Select("id", "visit_count").First(&updated, id).Error; err != nil {
			return err
		}
		count = updated.VisitCount
		return nil
	})
	if err != nil {
		if errors.Is(err, customerrors.ErrShareNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to increment visit count for share %d: %w", id, err)
	}
	return count, nil
}

// DeleteShare permanently removes the share with id.
func (r *GormShareRepository) DeleteShare(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Share{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete share %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return customerrors.ErrShareNotFound
	}
	return nil
}

// DeleteExpiredShares removes every share whose expiry is before the given
// instant and returns how many rows went away.
func (r *GormShareRepository) DeleteExpiredShares(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", before.UTC()).Delete(&models.Share{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired shares: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// notFound maps gorm.ErrRecordNotFound to sentinel and wraps anything else.
func notFound(err, sentinel error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
