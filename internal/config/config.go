package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.docket/config.toml.
type Config struct {
	// Backend selects the document store connector: "redis" or "memory".
	// The memory backend keeps nothing across restarts and exists for
	// development and tests.
	Backend string `toml:"backend"`

	// Namespace isolates this application instance's keys and object paths
	// from other tenants sharing the same backing services.
	Namespace string `toml:"namespace"`

	Marketplace bool `toml:"marketplace"`

	Redis   RedisConfig   `toml:"redis"`
	Auth    AuthConfig    `toml:"auth"`
	Storage StorageConfig `toml:"storage"`
}

// RedisConfig configures the redis document store connector.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// AuthConfig configures the identity provider.
type AuthConfig struct {
	// Mode is "interactive" (email/password sign-in or register) or
	// "anonymous" (a fresh identity is established silently on first run).
	Mode string `toml:"mode"`

	// Secret signs identity tokens. All devices of one deployment must
	// share it.
	Secret string `toml:"secret"`

	// LinkTokenTTLMinutes bounds the lifetime of device-link tokens.
	LinkTokenTTLMinutes int `toml:"link_token_ttl_minutes"`
}

// StorageConfig configures the S3-compatible photo store.
type StorageConfig struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Backend:   "redis",
		Namespace: "docket",
		Redis:     RedisConfig{Addr: "localhost:6379"},
		Auth:      AuthConfig{Mode: "interactive", LinkTokenTTLMinutes: 10},
	}
}

// Load reads config from the given path. A missing file yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func (c *Config) validate() error {
	switch c.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid backend %q: must be redis or memory", c.Backend)
	}
	switch c.Auth.Mode {
	case "interactive", "anonymous":
	default:
		return fmt.Errorf("invalid auth mode %q: must be interactive or anonymous", c.Auth.Mode)
	}
	if c.Namespace == "" {
		return errors.New("namespace must not be empty")
	}
	return nil
}
