// Package config reads the ledger-desktop.yaml configuration and locates
// the journal when none is configured.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ngalaiko/ledger-desktop/internal/ledger"
)

// Config represents the top-level ledger-desktop.yaml configuration.
type Config struct {
	Ledger LedgerConfig `yaml:"ledger"`
	Log    LogConfig    `yaml:"log"`
}

// LedgerConfig describes the binary to run and the journal it reads.
type LedgerConfig struct {
	Path string `yaml:"path"`
	File string `yaml:"file"`
	// DateFormat is "iso" or "seconds".
	DateFormat string `yaml:"date_format"`
	QueueSize  int    `yaml:"queue_size"`
}

// LogConfig controls logging. Logs go to stderr; stdout carries the
// protocol.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Path:       "ledger",
			DateFormat: "iso",
			QueueSize:  ledger.DefaultQueueSize,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a configuration file from disk. Keys absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Session translates the configuration into a ledger session setup.
func (c *Config) Session(logger *zap.Logger) (ledger.Config, error) {
	var format ledger.DateFormat
	switch c.Ledger.DateFormat {
	case "", "iso":
		format = ledger.DateISO
	case "seconds":
		format = ledger.DateEpochSeconds
	default:
		return ledger.Config{}, fmt.Errorf("unknown date_format %q", c.Ledger.DateFormat)
	}
	return ledger.Config{
		Command:    c.Ledger.Path,
		File:       c.Ledger.File,
		QueueSize:  c.Ledger.QueueSize,
		DateFormat: format,
		Logger:     logger,
	}, nil
}

// Level parses the configured log level, falling back to info.
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// DiscoverJournal finds a journal the way ledger users expect: LEDGER_FILE
// wins, then well-known names under dir, then the lexically first
// journal-looking file in the tree. Returns "" when nothing is found.
func DiscoverJournal(dir string) string {
	if envPath := os.Getenv("LEDGER_FILE"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, name := range []string{"main.ledger", "main.journal", ".ledger.journal"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	files := findJournalFiles(dir)
	if len(files) == 0 {
		return ""
	}
	sort.Strings(files)
	return files[0]
}

func findJournalFiles(dir string) []string {
	var files []string
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // intentionally skip inaccessible files
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".ledger", ".journal", ".dat":
			files = append(files, path)
		}
		return nil
	})
	return files
}
