package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/marcorisi/discount-codes/internal/config"
	"github.com/marcorisi/discount-codes/internal/database"
	"github.com/marcorisi/discount-codes/internal/logging"
	"github.com/marcorisi/discount-codes/internal/services"
)

// Cfg holds the loaded configuration for every command.
var Cfg *config.Config

// RootCmd is the base command; subcommands register themselves from their
// own packages' init functions.
var RootCmd = &cobra.Command{
	Use:   "discount-codes",
	Short: "Track discount codes and share them through expiring public links",
	Long: `discount-codes stores discount codes and lets their owners hand them out
through short-lived public share links, counting each visit.`,
	SilenceUsage: true,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig loads .env, then the configuration, then sets up logging.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	Cfg = cfg

	logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
}

// OpenDatabase opens the configured database and brings its schema up to date.
// The caller closes it with CloseDatabase.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.Name)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		CloseDatabase(db)
		return nil, err
	}
	return db, nil
}

// CloseDatabase releases the connection pool behind db.
func CloseDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("failed to close database")
	}
}

// ShareSettings maps the shares section of cfg onto the service settings.
func ShareSettings(cfg *config.Config) services.ShareSettings {
	return services.ShareSettings{
		TokenLength: cfg.Shares.TokenLength,
		DefaultTTL:  cfg.Shares.DefaultTTL,
		MaxTTL:      cfg.Shares.MaxTTL,
	}
}
