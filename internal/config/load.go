package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. BOXPACK_SERVER_PORT.
const EnvPrefix = "BOXPACK"

// Load reads configuration from an optional config.yaml in the working
// directory and from BOXPACK_* environment variables, which take precedence.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are only picked up from the environment when bound.
	for _, key := range []string{"database.url", "auth.jwt_secret"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)

	p := DefaultPlacementConfig()
	v.SetDefault("placement.timeout", p.Timeout)
	v.SetDefault("placement.smoke_test_timeout", p.SmokeTestTimeout)
	v.SetDefault("placement.load_timeout", p.LoadTimeout)
	v.SetDefault("placement.max_concurrent", p.MaxConcurrent)
	v.SetDefault("placement.strategy_path", p.StrategyPath)
	v.SetDefault("placement.scratch_dir", p.ScratchDir)
	v.SetDefault("placement.max_source_bytes", p.MaxSourceBytes)
}

// DefaultPlacementConfig returns the placement settings used when none are
// configured.
func DefaultPlacementConfig() PlacementConfig {
	return PlacementConfig{
		Timeout:          5 * time.Second,
		SmokeTestTimeout: 2 * time.Second,
		LoadTimeout:      2 * time.Second,
		MaxConcurrent:    16,
		StrategyPath:     "var/strategy/active.go",
		ScratchDir:       "var/strategy/scratch",
		MaxSourceBytes:   256 << 10,
	}
}
