package models

import "time"

// DiscountCode is a stored discount code. Only the fields the share
// subsystem reads or renders are modelled here.
type DiscountCode struct {
	ID            uint       `gorm:"primaryKey"`
	Code          string     `gorm:"size:100;not null"`
	StoreName     string     `gorm:"size:200;not null"`
	StoreURL      *string    `gorm:"size:500"`
	DiscountValue *string    `gorm:"size:50"`
	ExpiryDate    *time.Time `gorm:"type:date"`
	Notes         *string    `gorm:"type:text"`
	IsUsed        bool       `gorm:"not null"`
	UserID        *uint      `gorm:"index"`
	CreatedAt     time.Time
}

// IsShareableAt reports whether a share may be created for the code at now:
// the code is not used and its expiry date, if any, is today or later.
func (c *DiscountCode) IsShareableAt(now time.Time) bool {
	return c.UnshareableReason(now) == ""
}

// UnshareableReason explains why the code can't be shared at now, or returns
// the empty string when it can.
func (c *DiscountCode) UnshareableReason(now time.Time) string {
	if c.IsUsed {
		return "code already used"
	}
	if c.ExpiryDate != nil && dateOf(*c.ExpiryDate).Before(dateOf(now.UTC())) {
		return "code expired"
	}
	return ""
}

// dateOf drops the clock part; an expiry date is a calendar day, not an instant.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
