package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/boxpack-api/internal/config"
	"github.com/phrazzld/boxpack-api/internal/platform/logger"
)

// setupAppLogger builds the application logger and installs it as default.
func setupAppLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return l, nil
}
