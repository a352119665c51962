package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinevault/cinevault/internal/config"
)

func TestFlagLevel(t *testing.T) {
	tests := []struct {
		name  string
		flags CLIFlags
		want  slog.Level
	}{
		{"default keeps fallback", CLIFlags{}, slog.LevelWarn},
		{"verbose", CLIFlags{Verbose: true}, slog.LevelInfo},
		{"debug", CLIFlags{Debug: true}, slog.LevelDebug},
		{"quiet", CLIFlags{Quiet: true}, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flagLevel(tt.flags, slog.LevelWarn))
		})
	}
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	var buf bytes.Buffer

	cfg := &config.Resolved{Config: config.Config{LogLevel: "info", LogFormat: "text"}}
	logger := buildLogger(cfg, CLIFlags{}, &buf)

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestBuildLogger_FlagOverridesConfig(t *testing.T) {
	var buf bytes.Buffer

	cfg := &config.Resolved{Config: config.Config{LogLevel: "error", LogFormat: "text"}}
	logger := buildLogger(cfg, CLIFlags{Debug: true}, &buf)

	logger.Debug("debug line")

	assert.Contains(t, buf.String(), "debug line")
}

func TestBuildLogger_Formats(t *testing.T) {
	var jsonBuf, autoBuf bytes.Buffer

	buildLogger(&config.Resolved{Config: config.Config{LogLevel: "warn", LogFormat: "json"}}, CLIFlags{}, &jsonBuf).
		Warn("hello")
	assert.True(t, strings.HasPrefix(jsonBuf.String(), "{"), "json handler")

	// A buffer is not a terminal, so auto picks JSON.
	buildLogger(&config.Resolved{Config: config.Config{LogLevel: "warn", LogFormat: "auto"}}, CLIFlags{}, &autoBuf).
		Warn("hello")
	assert.True(t, strings.HasPrefix(autoBuf.String(), "{"), "auto handler off a terminal")
}

func TestIsTerminal_NonFile(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
	assert.False(t, isTerminal(strings.NewReader("")))
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "cinevault/"+version, userAgent(&config.Resolved{}))
	assert.Equal(t, "custom/1", userAgent(&config.Resolved{Config: config.Config{UserAgent: "custom/1"}}))
}

func TestNewHTTPClient_Timeouts(t *testing.T) {
	cfg := &config.Resolved{
		ConnectTimeoutDuration: time.Second,
		RequestTimeoutDuration: 2 * time.Second,
	}

	c := newHTTPClient(cfg)
	assert.Equal(t, 2*time.Second, c.Timeout)
}

func TestMustCLIContext(t *testing.T) {
	cc := &CLIContext{}
	assert.Same(t, cc, mustCLIContext(withCLIContext(context.Background(), cc)))

	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}

func TestStatusf_Quiet(t *testing.T) {
	var buf bytes.Buffer

	cc := &CLIContext{ErrOut: &buf}
	cc.Statusf("one %d\n", 1)

	cc.Flags.Quiet = true
	cc.Statusf("two\n")

	assert.Equal(t, "one 1\n", buf.String())
}

func TestConfigInitAndSet_ExplicitPath(t *testing.T) {
	e := newCLIEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "cinevault.toml")

	_, _, err := e.run(t, "", "--config", cfgPath, "config", "init")
	require.NoError(t, err)

	_, _, err = e.run(t, "", "--config", cfgPath, "config", "set", "server_url", "ftp://nope")
	require.Error(t, err, "invalid values are rejected before writing")

	_, _, err = e.run(t, "", "--config", cfgPath, "config", "init")
	require.ErrorIs(t, err, config.ErrConfigExists)
}
