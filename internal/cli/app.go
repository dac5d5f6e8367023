package cli

import (
	"fmt"

	"github.com/extpm-labs/extpm/internal/config"
	"github.com/extpm-labs/extpm/internal/logging"
	"github.com/extpm-labs/extpm/internal/manager"
)

// loadSettings reads the user's config file fresh for each command.
func loadSettings() *config.Store {
	s := config.NewStore(config.FilePath())
	// A missing or unreadable file leaves every setting at its default.
	_ = s.Load()
	return s
}

func newLogger(t *config.Tunables) (*logging.Logger, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = t.LogLevel
	if t.LogDev {
		cfg = logging.DevelopmentConfig()
	}
	if logLevel != "" {
		cfg.Level = logLevel
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return logger, nil
}

var (
	current       *manager.Manager
	currentLogger *logging.Logger
)

// newManager wires a manager from the config file and EXTPM_* tunables.
// One manager serves the whole command invocation.
func newManager() (*manager.Manager, *logging.Logger, error) {
	if current != nil {
		return current, currentLogger, nil
	}
	t, err := config.LoadTunables()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(t)
	if err != nil {
		return nil, nil, err
	}
	m, err := manager.New(manager.Options{
		Settings: loadSettings(),
		Tunables: t,
		Logger:   logger.Logger,
		Metrics:  appMetrics,
	})
	if err != nil {
		return nil, nil, err
	}
	current, currentLogger = m, logger
	return m, logger, nil
}

// resetManager drops the invocation's manager.
func resetManager() {
	current, currentLogger = nil, nil
}
