package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig         = "CINEVAULT_CONFIG"
	EnvServerURL      = "CINEVAULT_SERVER_URL"
	EnvSessionBackend = "CINEVAULT_SESSION_BACKEND"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath     string // CINEVAULT_CONFIG
	ServerURL      string // CINEVAULT_SERVER_URL
	SessionBackend string // CINEVAULT_SESSION_BACKEND
}

// ReadEnvOverrides reads the override variables from the environment.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:     os.Getenv(EnvConfig),
		ServerURL:      os.Getenv(EnvServerURL),
		SessionBackend: os.Getenv(EnvSessionBackend),
	}
}
