package models

import "time"

// User is an account allowed to create, list and delete shares.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:80;not null"`
	PasswordHash string `gorm:"size:256;not null"`
	CreatedAt    time.Time
}
