// Package config loads CLI settings from an optional YAML file with
// environment variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains runtime settings for the sfbulk CLI.
type Config struct {
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"` // empty disables the /metrics listener

	Auth struct {
		Username      string `yaml:"username"`
		Password      string `yaml:"password"`
		SecurityToken string `yaml:"security_token"`
		Sandbox       bool   `yaml:"sandbox"`
	} `yaml:"auth"`

	API struct {
		Version   string `yaml:"version"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"api"`

	Poll struct {
		Timeout  time.Duration `yaml:"timeout"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"poll"`
}

// Load reads the YAML file at path (skipped when path is empty), then
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{LogLevel: "info"}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	var missing []string
	if cfg.Auth.Username == "" {
		missing = append(missing, "SFDC_USERNAME")
	}
	if cfg.Auth.Password == "" {
		missing = append(missing, "SFDC_PASSWORD")
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required credentials (set in config file or env): %s", strings.Join(missing, ", "))
	}

	if cfg.API.BatchSize < 0 {
		return cfg, fmt.Errorf("api.batch_size must not be negative: %d", cfg.API.BatchSize)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SFDC_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv("SFDC_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}
	if v := os.Getenv("SFDC_SECURITY_TOKEN"); v != "" {
		cfg.Auth.SecurityToken = v
	}
	if v := os.Getenv("SFDC_SANDBOX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.Sandbox = b
		}
	}
	if v := os.Getenv("SFDC_API_VERSION"); v != "" {
		cfg.API.Version = v
	}
}
