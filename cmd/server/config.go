package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/boxpack-api/internal/config"
)

// loadAppConfig loads configuration from path (or ./config.yaml) and the
// environment.
func loadAppConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_concurrent_placements", cfg.Placement.MaxConcurrent)
	return cfg, nil
}
