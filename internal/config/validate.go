package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minConnectTimeout = 1 * time.Second
	minRequestTimeout = 1 * time.Second
)

var validSessionBackends = map[string]bool{
	SessionBackendFile:   true,
	SessionBackendSQLite: true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"auto": true, "text": true, "json": true,
}

// Validate checks all configuration values and returns every error found,
// joined, so a broken file can be fixed in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServerURL(cfg.ServerURL)...)

	if !validSessionBackends[cfg.SessionBackend] {
		errs = append(errs, fmt.Errorf("session_backend: must be one of file, sqlite; got %q", cfg.SessionBackend))
	}

	errs = append(errs, validateDuration("connect_timeout", cfg.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDuration("request_timeout", cfg.RequestTimeout, minRequestTimeout)...)

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", cfg.LogLevel))
	}

	if !validLogFormats[cfg.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", cfg.LogFormat))
	}

	return errors.Join(errs...)
}

func validateServerURL(raw string) []error {
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("server_url: %w", err)}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("server_url: scheme must be http or https, got %q", raw)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("server_url: missing host in %q", raw)}
	}

	if u.RawQuery != "" || u.Fragment != "" {
		return []error{fmt.Errorf("server_url: must not carry a query or fragment, got %q", raw)}
	}

	return nil
}

func validateDuration(field, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be at least %s, got %s", field, minimum, d)}
	}

	return nil
}
