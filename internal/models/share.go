package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultShareTTL is how long a share stays valid when no expiry is given.
const DefaultShareTTL = 24 * time.Hour

// Share is one public, time-boxed access grant to a discount code.
// Its token is the only credential needed to view the code.
type Share struct {
	ID    uint   `gorm:"primaryKey"`
	Token string `gorm:"uniqueIndex;size:16;not null"`

	// DiscountCodeID is required; several shares may point at the same code
	DiscountCodeID uint         `gorm:"index;not null"`
	DiscountCode   DiscountCode `gorm:"foreignKey:DiscountCodeID;constraint:OnDelete:CASCADE"`

	// CreatedBy is the owner allowed to list and delete the share
	CreatedBy *uint `gorm:"index"`
	Creator   *User `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL"`

	CreatedAt  time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	VisitCount int       `gorm:"not null;default:0"`
}

// NewShare builds a share for codeID created at now. A nil expiresAt means
// now + DefaultShareTTL. The expiry must be strictly after the creation time.
func NewShare(codeID uint, createdBy *uint, token string, now time.Time, expiresAt *time.Time) (*Share, bool) {
	createdAt := now.UTC()
	expiry := createdAt.Add(DefaultShareTTL)
	if expiresAt != nil {
		expiry = expiresAt.UTC()
	}
	if !expiry.After(createdAt) {
		return nil, false
	}
	return &Share{
		Token:          token,
		DiscountCodeID: codeID,
		CreatedBy:      createdBy,
		CreatedAt:      createdAt,
		ExpiresAt:      expiry,
	}, true
}

// IsExpiredAt reports whether the share is expired at now.
// A view at exactly ExpiresAt is still valid.
func (s *Share) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// OwnedBy reports whether userID created the share.
func (s *Share) OwnedBy(userID uint) bool {
	return s.CreatedBy != nil && *s.CreatedBy == userID
}

// BeforeSave keeps stored timestamps in UTC.
func (s *Share) BeforeSave(tx *gorm.DB) error {
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return nil
}

// AfterFind reads stored timestamps back as UTC.
func (s *Share) AfterFind(tx *gorm.DB) error {
	s.CreatedAt = storedUTC(s.CreatedAt)
	s.ExpiresAt = storedUTC(s.ExpiresAt)
	return nil
}

// storedUTC interprets a timestamp read from the store as UTC. Values are
// always written in UTC, so a value the driver tagged time.Local is either
// naive (no zone in the column) or carries a zero offset; in both cases its
// wall clock is the UTC time and must not be shifted.
func storedUTC(t time.Time) time.Time {
	if t.Location() == time.Local {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t.UTC()
}
