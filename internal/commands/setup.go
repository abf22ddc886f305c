package commands

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ngalaiko/ledger-desktop/internal/config"
	"github.com/ngalaiko/ledger-desktop/internal/ledger"
)

type options struct {
	configPath string
	binary     string
	file       string
	debug      bool
}

// load resolves the effective configuration: flags win over the config
// file, and a missing journal falls back to discovery in the working
// directory.
func (o *options) load() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.binary != "" {
		cfg.Ledger.Path = o.binary
	}
	if o.file != "" {
		cfg.Ledger.File = o.file
	}
	if cfg.Ledger.File == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.Ledger.File = config.DiscoverJournal(wd)
		}
	}

	logger, err := newLogger(cfg.Level(), o.debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// loadConfig reads the explicit path when given, otherwise the user config
// dir, otherwise defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(dir, "ledger-desktop", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	return config.Default(), nil
}

func newLogger(level zapcore.Level, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	// stdout carries the protocol or the report; logs must stay off it.
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func openSession(cfg *config.Config, logger *zap.Logger) (*ledger.Handle, error) {
	sessionCfg, err := cfg.Session(logger)
	if err != nil {
		return nil, err
	}
	return ledger.Start(sessionCfg)
}
