// Package config resolves runtime settings from defaults, an optional
// config file and IAC_MEMORY_* environment variables.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
)

// EnvPrefix is prepended to every environment variable, e.g.
// IAC_MEMORY_DATABASE_PATH for database.path.
const EnvPrefix = "IAC_MEMORY"

// Config is the resolved configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Search   SearchConfig   `mapstructure:"search"`
	Graph    GraphConfig    `mapstructure:"graph"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	Port      int    `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type GraphConfig struct {
	DefaultDepth int `mapstructure:"default_depth"`
	MaxDepth     int `mapstructure:"max_depth"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "iac-memory.db")
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("search.default_limit", 100)
	v.SetDefault("search.max_limit", 1000)
	v.SetDefault("graph.default_depth", 2)
	v.SetDefault("graph.max_depth", 10)
}

// New returns a viper instance with defaults and environment binding set up.
// configFile is optional; its format follows the file extension.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configFile)
		}
	}
	return v, nil
}

// Load unmarshals and checks the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.Validationf("database.path must be set")
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return errors.Validationf("server.transport must be stdio or http, got %q", c.Server.Transport)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Validationf("server.port %d is out of range", c.Server.Port)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return errors.Validationf("search limits must satisfy 0 < default_limit <= max_limit")
	}
	if c.Graph.DefaultDepth < 0 || c.Graph.MaxDepth < c.Graph.DefaultDepth {
		return errors.Validationf("graph depths must satisfy 0 <= default_depth <= max_depth")
	}
	return nil
}
