// Package logger builds the zerolog loggers used across transitplan:
// a human-readable console writer, a rotating JSON file, or both.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// Config holds configuration for the logger.
type Config struct {
	Level           string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal disabled"`
	Console         bool   `yaml:"console"`
	File            bool   `yaml:"file"`
	FilePath        string `yaml:"file_path" validate:"required_if=File true"`
	MaxSizeMB       int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups      int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays      int    `yaml:"max_age_days" validate:"gte=0"`
	Compress        bool   `yaml:"compress"`
	TimeFieldFormat string `yaml:"time_field_format"`
}

// Default logs info and above to the console.
func Default() Config {
	return Config{
		Level:           "info",
		Console:         true,
		FilePath:        "transitplan.log",
		MaxSizeMB:       10,
		MaxBackups:      5,
		MaxAgeDays:      30,
		Compress:        true,
		TimeFieldFormat: time.RFC3339,
	}
}

// ParseLevel maps a level name to a zerolog level. The empty string is info.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logger: level %q: %w", s, err)
	}

	return lvl, nil
}

// New builds a logger writing to the configured sinks plus extra. With no
// sink at all it writes JSON to stderr.
func New(cfg Config, extra ...io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	timeFormat := cfg.TimeFieldFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat})
	}
	if cfg.File {
		writers = append(writers, FileWriter(cfg))
	}
	writers = append(writers, extra...)
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	zerolog.TimeFieldFormat = timeFormat
	out := zerolog.MultiLevelWriter(writers...)

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// FileWriter returns the rotating file writer of cfg.
func FileWriter(cfg Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
