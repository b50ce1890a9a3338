package services

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
	"github.com/marcorisi/discount-codes/internal/models"
	"github.com/marcorisi/discount-codes/internal/repository"
)

// maxTokenAttempts bounds token generation per share creation.
const maxTokenAttempts = 5

// ShareSettings tunes share creation. Zero values fall back to defaults.
type ShareSettings struct {
	TokenLength int
	DefaultTTL  time.Duration
	// MaxTTL caps an explicit expiry; zero means no cap
	MaxTTL time.Duration
}

// ShareView is the outcome of resolving a public token.
// Code is nil when the share is expired.
type ShareView struct {
	Share   *models.Share
	Code    *models.DiscountCode
	Expired bool
}

// ShareService creates, resolves and manages shares of discount codes.
type ShareService struct {
	shareRepo repository.ShareRepository
	codeRepo  repository.CodeRepository
	settings  ShareSettings

	generate func(length int) string
	now      func() time.Time
}

// NewShareService returns a ShareService backed by the given repositories.
func NewShareService(shareRepo repository.ShareRepository, codeRepo repository.CodeRepository, settings ShareSettings) *ShareService {
	if settings.TokenLength < 1 {
		settings.TokenLength = DefaultTokenLength
	}
	if settings.DefaultTTL <= 0 {
		settings.DefaultTTL = models.DefaultShareTTL
	}
	return &ShareService{
		shareRepo: shareRepo,
		codeRepo:  codeRepo,
		settings:  settings,
		generate:  GenerateToken,
		now:       time.Now,
	}
}

// CreateShare creates a share of codeID owned by user. A nil expiresAt
// uses the default TTL.
//
// The code must exist and be shareable now. A token collision triggers a
// new token, up to maxTokenAttempts in total; any other storage error is
// returned as is.
func (s *ShareService) CreateShare(ctx context.Context, codeID uint, user *models.User, expiresAt *time.Time) (*models.Share, error) {
	code, err := s.codeRepo.GetCodeByID(ctx, codeID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if reason := code.UnshareableReason(now); reason != "" {
		return nil, customerrors.ShareRejectedError{CodeID: code.ID, Reason: reason}
	}

	expiry := now.Add(s.settings.DefaultTTL)
	if expiresAt != nil {
		if !expiresAt.After(now) {
			return nil, customerrors.ErrInvalidExpiry
		}
		if s.settings.MaxTTL > 0 && expiresAt.Sub(now) > s.settings.MaxTTL {
			return nil, customerrors.ErrInvalidExpiry
		}
		expiry = expiresAt.UTC()
	}

	var createdBy *uint
	if user != nil {
		id := user.ID
		createdBy = &id
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		share, ok := models.NewShare(code.ID, createdBy, s.generate(s.settings.TokenLength), now, &expiry)
		if !ok {
			return nil, customerrors.ErrInvalidExpiry
		}
		err := s.shareRepo.CreateShare(ctx, share)
		if err == nil {
			share.DiscountCode = *code
			log.WithFields(log.Fields{"shareID": share.ID, "codeID": code.ID}).Info("share created")
			return share, nil
		}
		if !errors.Is(err, customerrors.ErrTokenCollision) {
			return nil, err
		}
		log.WithFields(log.Fields{"codeID": code.ID, "attempt": attempt}).Warn("share token collision, regenerating")
	}
	return nil, customerrors.ErrTokenGenerationFailed
}

// ViewShare resolves a public token. A valid share has its visit count
// incremented by exactly one; an expired share is reported without being
// counted and without its code.
func (s *ShareService) ViewShare(ctx context.Context, token string) (*ShareView, error) {
	share, err := s.shareRepo.GetShareByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if share.IsExpiredAt(s.now()) {
		return &ShareView{Share: share, Expired: true}, nil
	}

	count, err := s.shareRepo.IncrementVisitCount(ctx, share.ID)
	if err != nil {
		return nil, err
	}
	share.VisitCount = count
	return &ShareView{Share: share, Code: &share.DiscountCode}, nil
}

// ShareStats resolves a token like ViewShare but never counts a visit.
func (s *ShareService) ShareStats(ctx context.Context, token string) (*ShareView, error) {
	share, err := s.shareRepo.GetShareByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &ShareView{Share: share, Code: &share.DiscountCode, Expired: share.IsExpiredAt(s.now())}, nil
}

// ListShares returns the shares user created, most recent first.
func (s *ShareService) ListShares(ctx context.Context, user *models.User) ([]models.Share, error) {
	return s.shareRepo.ListSharesByCreator(ctx, user.ID)
}

// DeleteShare removes shareID permanently when user created it.
func (s *ShareService) DeleteShare(ctx context.Context, shareID uint, user *models.User) error {
	share, err := s.shareRepo.GetShareByID(ctx, shareID)
	if err != nil {
		return err
	}
	if user == nil || !share.OwnedBy(user.ID) {
		return customerrors.ErrForbidden
	}
	return s.shareRepo.DeleteShare(ctx, share.ID)
}

// PurgeExpiredShares deletes shares that expired more than olderThan ago
// and returns how many were removed.
func (s *ShareService) PurgeExpiredShares(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan < 0 {
		olderThan = 0
	}
	n, err := s.shareRepo.DeleteExpiredShares(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	log.WithField("deleted", n).Info("purged expired shares")
	return n, nil
}

// IsExpired reports whether share is expired at the service clock.
func (s *ShareService) IsExpired(share *models.Share) bool {
	return share.IsExpiredAt(s.now())
}

// ShareURL is the public URL of token under baseURL.
func ShareURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/shares/" + token
}
