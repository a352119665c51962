package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as annotated TOML to w.
// This powers "config show": the values in effect after every override
// layer has been applied.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.ConfigPath)
	ew.printf("server_url      = %q\n", r.ServerURL)
	ew.printf("session_backend = %q\n", r.SessionBackend)
	ew.printf("session_path    = %q\n", r.SessionPath)
	ew.printf("connect_timeout = %q\n", r.ConnectTimeout)
	ew.printf("request_timeout = %q\n", r.RequestTimeout)

	if r.UserAgent != "" {
		ew.printf("user_agent      = %q\n", r.UserAgent)
	}

	ew.printf("log_level       = %q\n", r.LogLevel)
	ew.printf("log_format      = %q\n", r.LogFormat)

	return ew.err
}

// errWriter wraps an io.Writer and keeps the first write error; later
// writes are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
