// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for cinevault. Values resolve through a
// four-layer override chain: defaults -> config file -> environment -> CLI
// flags.
package config

import "time"

// Config is the configuration parsed from a TOML file. All keys are flat.
type Config struct {
	ServerURL      string `toml:"server_url" json:"server_url"`
	SessionBackend string `toml:"session_backend" json:"session_backend"`
	SessionPath    string `toml:"session_path" json:"session_path"`
	ConnectTimeout string `toml:"connect_timeout" json:"connect_timeout"`
	RequestTimeout string `toml:"request_timeout" json:"request_timeout"`
	UserAgent      string `toml:"user_agent" json:"user_agent"`
	LogLevel       string `toml:"log_level" json:"log_level"`
	LogFormat      string `toml:"log_format" json:"log_format"`
}

// CLIOverrides holds values from CLI flags. Empty means "not specified".
type CLIOverrides struct {
	ConfigPath string // --config
	ServerURL  string // --server
}

// Resolved is a validated Config with every default and override applied and
// the session path made concrete.
type Resolved struct {
	Config

	// ConfigPath is the file the values were read from. The file need not
	// exist.
	ConfigPath string

	ConnectTimeoutDuration time.Duration
	RequestTimeoutDuration time.Duration
}
