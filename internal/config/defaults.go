package config

// Default values for configuration options, layer 0 of the override chain.
const (
	defaultServerURL      = "http://localhost:8000/api"
	defaultSessionBackend = "file"
	defaultConnectTimeout = "10s"
	defaultRequestTimeout = "30s"
	defaultLogLevel       = "warn"
	defaultLogFormat      = "auto"
)

// Session backends.
const (
	SessionBackendFile   = "file"
	SessionBackendSQLite = "sqlite"
)

// DefaultConfig returns a Config populated with all default values. It is
// also the starting point for TOML decoding, so unset keys keep defaults.
// SessionPath stays empty here: its default depends on the backend.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:      defaultServerURL,
		SessionBackend: defaultSessionBackend,
		ConnectTimeout: defaultConnectTimeout,
		RequestTimeout: defaultRequestTimeout,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
	}
}
