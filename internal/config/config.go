package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Placement PlacementConfig `mapstructure:"placement" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"required,oneof=json console"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"gt=0,lt=44640"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gt=0,lt=525600,gtfield=TokenLifetimeMinutes"`
}

// PlacementConfig controls strategy execution and candidate validation.
type PlacementConfig struct {
	// Timeout bounds one placement call.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// SmokeTestTimeout bounds each smoke-test call on a candidate.
	SmokeTestTimeout time.Duration `mapstructure:"smoke_test_timeout" validate:"gt=0"`
	// LoadTimeout bounds interpreting a candidate's source.
	LoadTimeout time.Duration `mapstructure:"load_timeout" validate:"gt=0"`
	// MaxConcurrent caps placement calls running at once.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gt=0"`
	// StrategyPath is where the accepted candidate source is stored.
	StrategyPath string `mapstructure:"strategy_path" validate:"required"`
	// ScratchDir is the only directory a candidate interpreter can read.
	ScratchDir string `mapstructure:"scratch_dir" validate:"required"`
	// MaxSourceBytes caps the size of an uploaded candidate.
	MaxSourceBytes int64 `mapstructure:"max_source_bytes" validate:"gt=0"`
}
