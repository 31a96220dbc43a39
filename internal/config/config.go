package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all non-secret application configuration. Secrets never live
// here; they are resolved separately from the environment (see Secrets).
type Config struct {
	// Accounts configured locally. Ignored when API.Host is set, in which
	// case account definitions come from the aggregator.
	Accounts []AccountConfig `yaml:"accounts"`

	Watchlist struct {
		Stocks []string `yaml:"stocks"`
		Crypto []string `yaml:"crypto"`
	} `yaml:"watchlist"`

	API struct {
		Host      string `yaml:"host"`
		Authority string `yaml:"authority"`
	} `yaml:"api"`

	Storage struct {
		Filepath string `yaml:"filepath"`
		S3Bucket string `yaml:"s3_bucket"`
		S3Proto  string `yaml:"s3_proto"`
		S3Region string `yaml:"s3_region"`
	} `yaml:"storage"`

	Schedule struct {
		PollCron   string `yaml:"poll_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// AccountConfig names one locally-configured account. Credentials are always
// sourced from the environment for local accounts.
type AccountConfig struct {
	Name   string `yaml:"name"`
	Vendor string `yaml:"vendor"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is fine; flags and env can carry
// the whole configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("MATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("AUTHORITY"); v != "" {
		cfg.API.Authority = v
	}
	if v := os.Getenv("MATE_FILEPATH"); v != "" {
		cfg.Storage.Filepath = v
	}
	if v := os.Getenv("MATE_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("MATE_POLL_CRON"); v != "" {
		cfg.Schedule.PollCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	// Defaults
	if cfg.Storage.S3Proto == "" {
		cfg.Storage.S3Proto = "https"
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-east-1"
	}
	if cfg.Schedule.PollCron == "" {
		cfg.Schedule.PollCron = "@every 1h"
	}

	return cfg, nil
}

// Validate checks that the configuration describes a runnable collector.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 && c.API.Host == "" {
		return fmt.Errorf("no accounts configured: set accounts or api.host")
	}
	for _, a := range c.Accounts {
		if a.Name == "" || a.Vendor == "" {
			return fmt.Errorf("every account needs a name and a vendor")
		}
	}
	if c.API.Host != "" && c.API.Authority == "" {
		return fmt.Errorf("api.host is set but api.authority is not; balance submission needs a token authority")
	}
	if c.Storage.S3Proto != "http" && c.Storage.S3Proto != "https" {
		return fmt.Errorf("storage.s3_proto must be http or https")
	}
	return nil
}
