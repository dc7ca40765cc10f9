// Package config loads application configuration from a TOML file with
// BEANRECON_-prefixed environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Ledger   LedgerConfig
	Database DatabaseConfig
	Cache    CacheConfig
}

// LedgerConfig locates the per-subject ledger trees.
type LedgerConfig struct {
	Root            string
	DefaultCurrency string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// CacheConfig tunes the parsed-ledger cache.
type CacheConfig struct {
	TTL time.Duration
}

// Load reads configuration from file and env. Env var overrides use
// prefix BEANRECON_, e.g. BEANRECON_DATABASE_PATH.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "beanrecon")
	v.SetDefault("ledger.root", filepath.Join(dataDir, "ledgers"))
	v.SetDefault("ledger.default_currency", "CNY")
	v.SetDefault("database.path", filepath.Join(dataDir, "beanrecon.db"))
	v.SetDefault("cache.ttl", "5m")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("BEANRECON_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "beanrecon"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BEANRECON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
