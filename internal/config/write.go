package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// configFilePermissions is the standard permission mode for config files.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// ErrConfigExists is returned by WriteDefault when the file already exists.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate is written by "config init". Every key is present as a
// commented-out default so users can discover all options.
const configTemplate = `# cinevault configuration

# API root of the CineVault server.
# server_url = "http://localhost:8000/api"

# Where the login session is kept: "file" or "sqlite".
# session_backend = "file"

# Session location (default: platform data directory).
# session_path = ""

# connect_timeout = "10s"
# request_timeout = "30s"

# user_agent = ""

# Log verbosity: debug, info, warn, error
# log_level = "warn"

# Log format: auto (text on a terminal, JSON otherwise), text, json
# log_format = "auto"
`

// WriteDefault creates a config file from the default template. An existing
// file is never overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	slog.Info("creating config file", slog.String("path", path))

	return atomicWriteFile(path, []byte(configTemplate))
}

// SetKey sets key = value in the config file at path, creating the file
// from the template if needed. An existing line for the key (commented out
// or not) is replaced; otherwise the assignment is appended. The resulting
// file is validated before it replaces the original.
func SetKey(path, key, value string) error {
	if !IsKnownKey(key) {
		return unknownKeyError(key)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte(configTemplate)
	} else if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	content := setKeyLine(string(data), key, value)

	if err := validateContent(path, content); err != nil {
		return err
	}

	slog.Info("setting config key", slog.String("path", path), slog.String("key", key))

	return atomicWriteFile(path, []byte(content))
}

// setKeyLine does the line-level edit behind SetKey.
func setKeyLine(content, key, value string) string {
	assignment := fmt.Sprintf("%s = %q", key, value)
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if lineKey(line) == key {
			lines[i] = assignment
			return strings.Join(lines, "\n")
		}
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	return content + assignment + "\n"
}

// lineKey returns the key assigned on line, looking through a single
// leading "#" so commented defaults are replaced in place.
func lineKey(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimSpace(strings.TrimPrefix(s, "#"))

	k, _, ok := strings.Cut(s, "=")
	if !ok {
		return ""
	}

	return strings.TrimSpace(k)
}

// validateContent decodes content as a config file would be.
func validateContent(path, content string) error {
	tmp, err := os.CreateTemp("", "cinevault-config-*.toml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if _, err := Load(tmp.Name()); err != nil {
		return fmt.Errorf("%s would become invalid: %w", path, err)
	}

	return nil
}

// atomicWriteFile writes data to path via temp file + rename, creating
// parent directories as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
