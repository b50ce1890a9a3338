// Package database opens the SQLite store and keeps its schema current.
package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marcorisi/discount-codes/internal/models"
)

// pragmas applied to every connection: foreign keys for the share -> code
// cascade, a busy timeout and WAL so concurrent writers wait instead of failing.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// memoryPragmas is used for in-memory databases, where WAL is not available.
const memoryPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Open connects to the SQLite database name (a file path or "file::memory:").
// Unique violations are translated to gorm.ErrDuplicatedKey.
func Open(name string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if isMemory(name) {
		// every new connection to :memory: is a fresh empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the users, discount_codes and shares tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.DiscountCode{}, &models.Share{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

func dsn(name string) string {
	p := pragmas
	if isMemory(name) {
		p = memoryPragmas
	}
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + p
}

func isMemory(name string) bool {
	return strings.Contains(name, ":memory:") || strings.Contains(name, "mode=memory")
}
