package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "UXRAY",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "UXRAY",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (UXRAY_*)
// 3. Project config (.uxray.yaml in current directory)
// 4. User config (~/.config/uxray/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".uxray")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "uxray"))
		}
	}

	// Read config file (ignore not found)
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	// Pipeline defaults
	l.v.SetDefault("pipeline.clarification_threshold", 0.7)
	l.v.SetDefault("pipeline.max_recovery_attempts", 2)

	// Stage defaults
	l.v.SetDefault("stages.vision.timeout", "45s")
	l.v.SetDefault("stages.vision.warn_fraction", 0.8)
	l.v.SetDefault("stages.analysis.timeout", "60s")
	l.v.SetDefault("stages.analysis.warn_fraction", 0.8)
	l.v.SetDefault("stages.synthesis.timeout", "60s")
	l.v.SetDefault("stages.synthesis.warn_fraction", 0.8)

	// Breaker defaults
	l.v.SetDefault("breaker.failure_threshold", 5)
	l.v.SetDefault("breaker.recovery_timeout", "30s")
	l.v.SetDefault("breaker.half_open_retry_limit", 2)

	// Retry defaults
	l.v.SetDefault("retry.max_attempts", 3)
	l.v.SetDefault("retry.base_delay", "1s")
	l.v.SetDefault("retry.max_delay", "30s")
	l.v.SetDefault("retry.jitter_factor", 0.25)
	l.v.SetDefault("retry.multiplier", 2.0)

	// Fusion agreement heuristics (tunable constants, not measured similarity)
	l.v.SetDefault("fusion.agreement_multi", 0.85)
	l.v.SetDefault("fusion.agreement_single", 0.65)

	// State defaults
	l.v.SetDefault("state.backend", "sqlite")
	l.v.SetDefault("state.path", ".uxray/state/state.db")
	l.v.SetDefault("state.checkpoint_ttl", "24h")

	// Image defaults
	l.v.SetDefault("images.source", "file")
	l.v.SetDefault("images.minio.use_ssl", true)

	// API defaults
	l.v.SetDefault("api.addr", "127.0.0.1:8765")
	l.v.SetDefault("api.allowed_origins", []string{"http://localhost:5173"})
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}
