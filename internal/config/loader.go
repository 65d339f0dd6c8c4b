package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "WAYPOINT"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a loader with a private viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// NewLoaderWithViper creates a loader on an existing viper instance, typically one that already
// has cobra flags bound.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
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

// Load resolves the configuration.
// Precedence (highest to lowest):
// 1. CLI flags bound with BindPFlag
// 2. Environment variables (WAYPOINT_*)
// 3. Project config (.waypoint.yaml in the current directory)
// 4. User config (~/.config/waypoint/.waypoint.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".waypoint")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "waypoint"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("server.addr", ":8080")
	l.v.SetDefault("server.shutdown_timeout", "10s")

	l.v.SetDefault("store.backend", BackendMemory)
	l.v.SetDefault("store.path", ".waypoint/data")
	l.v.SetDefault("store.dsn", "")
	l.v.SetDefault("store.encryption_key", "")
	l.v.SetDefault("store.fallback_keys", []string{})

	l.v.SetDefault("redis.addr", "localhost:6379")
	l.v.SetDefault("redis.password", "")
	l.v.SetDefault("redis.db", 0)
	l.v.SetDefault("redis.prefix", "waypoint:")

	l.v.SetDefault("lock.ttl", "30s")

	l.v.SetDefault("metrics.enabled", true)
}
