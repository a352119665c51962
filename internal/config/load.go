package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file and validates it. Unknown keys
// are errors with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// the defaults. No config file is needed to get started.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := ResolvePath(env, cli)

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.ServerURL != "" {
		cfg.ServerURL = env.ServerURL
	}

	if env.SessionBackend != "" {
		cfg.SessionBackend = env.SessionBackend
	}

	if cli.ServerURL != "" {
		cfg.ServerURL = cli.ServerURL
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	if cfg.SessionPath == "" {
		cfg.SessionPath = DefaultSessionPath(cfg.SessionBackend)
	}

	cfg.SessionPath = expandTilde(cfg.SessionPath)

	r := &Resolved{Config: *cfg, ConfigPath: cfgPath}

	// Validate has already checked both durations.
	r.ConnectTimeoutDuration, _ = time.ParseDuration(cfg.ConnectTimeout)
	r.RequestTimeoutDuration, _ = time.ParseDuration(cfg.RequestTimeout)

	return r, nil
}

// ResolvePath returns the config file location: --config, then
// CINEVAULT_CONFIG, then the platform default.
func ResolvePath(env EnvOverrides, cli CLIOverrides) string {
	if cli.ConfigPath != "" {
		return cli.ConfigPath
	}

	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}
