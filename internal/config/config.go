// Package config provides configuration management for qosd.
//
// This package handles loading configuration from multiple sources:
//   - YAML configuration files
//   - Environment variables (with QOSD_ prefix)
//   - .env files
//   - Default values
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./config.yaml, ./configs/config.yaml, ~/.qosd/config.yaml, /etc/qosd/config.yaml)
//  3. .env files
//  4. Environment variables (QOSD_ prefix)
//
// # Usage Example
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Store: %s\n", cfg.Store.Path)
//
// # Environment Variables
//
// Environment variables override all other configuration sources.
// Use QOSD_ prefix and underscores for nested keys:
//   - QOSD_STORE_PATH=/var/lib/qosd/qosd.db
//   - QOSD_SERVER_PORT=8096
//   - QOSD_LOGGING_LEVEL=debug
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for qosd.
type Config struct {
	// Store contains configuration store settings
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Server contains the status API server settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Logging contains logging settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Security contains rate limiting and CORS settings
	Security SecurityConfig `mapstructure:"security" yaml:"security"`

	// Integrity contains integrity scan and repair settings
	Integrity IntegrityConfig `mapstructure:"integrity" yaml:"integrity"`
}

// StoreConfig contains configuration store settings.
type StoreConfig struct {
	// Path is the database file
	Path string `mapstructure:"path" yaml:"path"`

	// Timeout is how long to wait for the database file lock
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// BootstrapOnStart runs the QoS bootstrap before the API server starts
	BootstrapOnStart bool `mapstructure:"bootstrap_on_start" yaml:"bootstrap_on_start"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the server bind address (default: 127.0.0.1)
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the server listen port (default: 8096)
	Port int `mapstructure:"port" yaml:"port"`

	// ReadTimeout is the maximum duration for reading requests
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing responses
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Debug enables verbose error details in API responses
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format" yaml:"format"`

	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" yaml:"output"`
}

// SecurityConfig contains security and rate limiting settings.
type SecurityConfig struct {
	// RateLimit is the maximum requests per second per client (0 disables)
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`

	// AllowedOrigins are the CORS allowed origins
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// IntegrityConfig contains integrity service settings.
type IntegrityConfig struct {
	// AuditEnabled writes scans and repairs to a JSONL audit log
	AuditEnabled bool `mapstructure:"audit_enabled" yaml:"audit_enabled"`

	// AuditPath is the audit log directory
	AuditPath string `mapstructure:"audit_path" yaml:"audit_path"`

	// MaxFailures aborts a repair after this many failed operations
	MaxFailures int `mapstructure:"max_failures" yaml:"max_failures"`
}

var cfg *Config

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for config.yaml in standard locations.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (QOSD_ prefix)
//  2. .env file
//  3. Configuration file
//  4. Default values
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.qosd")
		v.AddConfigPath("/etc/qosd")
	}

	if err := v.ReadInConfig(); err != nil {
		// An explicit file that does not exist falls back to defaults;
		// any other read error is fatal.
		if cfgFile != "" {
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // Ignore error if .env file doesn't exist

	v.SetEnvPrefix("QOSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.path", "./qosd.db")
	v.SetDefault("store.timeout", "1s")
	v.SetDefault("store.bootstrap_on_start", true)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8096)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("security.rate_limit", 50)
	v.SetDefault("security.allowed_origins", []string{})

	v.SetDefault("integrity.audit_enabled", false)
	v.SetDefault("integrity.audit_path", "./logs/integrity/")
	v.SetDefault("integrity.max_failures", 10)
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"json": true, "text": true}
)

func validate(cfg *Config) error {
	if cfg.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %q", cfg.Logging.Level)
	}

	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	if cfg.Security.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d", cfg.Security.RateLimit)
	}

	return nil
}

// Get returns the configuration from the last successful Load.
func Get() *Config {
	return cfg
}

// Addr returns the host:port the API server listens on.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
