// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level and the optional rotating log file.
type Options struct {
	Level      string
	File       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// Setup installs a JSON formatter on the standard logger, writing to stdout
// and, when opts.File is set, to a lumberjack-rotated file as well.
// An unknown level falls back to info.
func Setup(opts Options) {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	log.SetOutput(Writer(opts))
}

// Writer returns the destination Setup logs to.
func Writer(opts Options) io.Writer {
	if opts.File == "" {
		return os.Stdout
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		log.WithError(err).Warn("cannot create log directory, logging to stdout only")
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   true,
	})
}
