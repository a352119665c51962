package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by E2E tests that target a live server.
const (
	EnvE2EServer         = "CINEVAULT_E2E_SERVER"
	EnvE2EUsername       = "CINEVAULT_E2E_USERNAME"
	EnvE2EPassword       = "CINEVAULT_E2E_PASSWORD"
	EnvE2EAllowedServers = "CINEVAULT_E2E_ALLOWED_SERVERS"
)

// LiveServer describes an account on a real server used by E2E tests.
type LiveServer struct {
	URL      string
	Username string
	Password string
}

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := parseDotEnvLine(scanner.Text())
		if !ok {
			continue
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func parseDotEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	line = strings.TrimPrefix(line, "export ")

	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}

	key = strings.TrimSpace(key)
	value = strings.Trim(strings.TrimSpace(value), "\"'")

	return key, value, key != ""
}

// LiveServerFromEnv returns the live server configured for E2E runs, or
// ok=false when none is set (tests then run against a FakeAPI).
//
// A configured server must appear in CINEVAULT_E2E_ALLOWED_SERVERS: E2E
// tests create and delete records, so an unlisted server is refused.
func LiveServerFromEnv() (LiveServer, bool, error) {
	srv := LiveServer{
		URL:      strings.TrimRight(os.Getenv(EnvE2EServer), "/"),
		Username: os.Getenv(EnvE2EUsername),
		Password: os.Getenv(EnvE2EPassword),
	}

	if srv.URL == "" {
		return LiveServer{}, false, nil
	}

	if srv.Username == "" || srv.Password == "" {
		return LiveServer{}, false, fmt.Errorf("%s is set but %s or %s is empty",
			EnvE2EServer, EnvE2EUsername, EnvE2EPassword)
	}

	allowlist := os.Getenv(EnvE2EAllowedServers)
	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimRight(strings.TrimSpace(a), "/") == srv.URL {
			return srv, true, nil
		}
	}

	return LiveServer{}, false, fmt.Errorf("%s=%q is not in %s=%q",
		EnvE2EServer, srv.URL, EnvE2EAllowedServers, allowlist)
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
