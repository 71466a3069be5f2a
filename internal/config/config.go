// Package config loads the relay configuration from a YAML file.
//
// Values support ${ENV_VAR} expansion so secrets such as the transport
// access token can be kept out of the file itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Transport TransportConfig `yaml:"transport"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds webhook listener settings.
type ServerConfig struct {
	Listen         string `yaml:"listen"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
	RateLimitRPS   int    `yaml:"rate_limit_rps"`
	RateLimitBurst int    `yaml:"rate_limit_burst"`
}

// StorageConfig holds file paths for durable state.
type StorageConfig struct {
	// RegistrationsPath is the JSON file holding repository registrations.
	RegistrationsPath string `yaml:"registrations_path"`

	// HistoryPath is the SQLite delivery ledger. Empty disables the ledger.
	HistoryPath string `yaml:"history_path"`
}

// TransportConfig describes the chat bot API used for outbound notifications.
type TransportConfig struct {
	// APIURL is the bot endpoint messages are POSTed to.
	APIURL string `yaml:"api_url"`

	// AccessToken is sent as a bearer token when non-empty.
	AccessToken string `yaml:"access_token"`

	// Adapters lists platform adapter names in candidate priority order.
	Adapters []string `yaml:"adapters"`

	// TimeoutMS bounds a single delivery attempt.
	TimeoutMS int64 `yaml:"timeout_ms"`
}

// Default values applied after load.
const (
	DefaultListen       = "0.0.0.0:8765"
	DefaultMaxBodyBytes = 1 << 20 // 1 MiB
	DefaultTimeoutMS    = 10000
)

// Load reads and parses configuration from a file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = cfg.Server.RateLimitRPS
	}
	if len(cfg.Transport.Adapters) == 0 {
		cfg.Transport.Adapters = []string{"aiocqhttp"}
	}
	if cfg.Transport.TimeoutMS <= 0 {
		cfg.Transport.TimeoutMS = DefaultTimeoutMS
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
}

func validate(cfg *Config) error {
	if cfg.Storage.RegistrationsPath == "" {
		return fmt.Errorf("storage.registrations_path is required")
	}
	if cfg.Transport.APIURL == "" {
		return fmt.Errorf("transport.api_url is required")
	}
	return nil
}
