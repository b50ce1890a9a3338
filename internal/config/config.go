package config

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
)

// Config represents the whole application configuration.
// Keys map to YAML keys and to SECTION_KEY environment variables.
type Config struct {
	Server struct {
		Port            int           `mapstructure:"port"`
		BaseURL         string        `mapstructure:"base_url"` // prefix of public share links
		Mode            string        `mapstructure:"mode"`     // gin mode: debug, release or test
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Database struct {
		Name string `mapstructure:"name"` // SQLite database file name
	} `mapstructure:"database"`

	Session struct {
		Secret string        `mapstructure:"secret"`
		Name   string        `mapstructure:"name"`
		MaxAge time.Duration `mapstructure:"max_age"`
	} `mapstructure:"session"`

	Shares struct {
		TokenLength       int           `mapstructure:"token_length"`
		DefaultTTL        time.Duration `mapstructure:"default_ttl"`
		MaxTTL            time.Duration `mapstructure:"max_ttl"`
		ViewRatePerMinute int           `mapstructure:"view_rate_per_minute"` // per client IP, 0 disables
		RateCacheSize     int           `mapstructure:"rate_cache_size"`
	} `mapstructure:"shares"`

	Log struct {
		Level      string `mapstructure:"level"`
		File       string `mapstructure:"file"` // empty logs to stdout only
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
	} `mapstructure:"log"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("database.name", "discount_codes.db")
	v.SetDefault("session.secret", "dev-secret-key")
	v.SetDefault("session.name", "discount_codes_session")
	v.SetDefault("session.max_age", "168h")
	v.SetDefault("shares.token_length", 8)
	v.SetDefault("shares.default_ttl", "24h")
	v.SetDefault("shares.max_ttl", "720h")
	v.SetDefault("shares.view_rate_per_minute", 60)
	v.SetDefault("shares.rate_cache_size", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
}

// LoadConfig reads ./configs/config.yaml, applies environment overrides
// and returns the result. A missing config file is not an error.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper(), "./configs")
}

// Load is LoadConfig on an explicit viper instance and config directory.
func Load(v *viper.Viper, dir string) (*Config, error) {
	// e.g. "server.port" can be overridden with SERVER_PORT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Debug("config file not found, using default values")
		} else {
			return nil, customerrors.ErrConfigLoad{Path: v.ConfigFileUsed(), Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	log.WithFields(log.Fields{
		"port":     cfg.Server.Port,
		"database": cfg.Database.Name,
		"tokenLen": cfg.Shares.TokenLength,
	}).Debug("configuration loaded")

	return &cfg, nil
}
