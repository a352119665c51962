package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cinevault/cinevault/internal/api"
	"github.com/cinevault/cinevault/internal/config"
	"github.com/cinevault/cinevault/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that must run even when the config
// file is broken (they repair or display it).
const skipConfigAnnotation = "skip-config"

// CLIFlags are the persistent flags shared by every command.
type CLIFlags struct {
	ConfigPath string
	Server     string
	JSON       bool
	Verbose    bool
	Debug      bool
	Quiet      bool
}

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServer     string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// CLIContext carries per-invocation state from PersistentPreRunE to the
// command implementations.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved // nil for commands with skipConfigAnnotation
	Logger *slog.Logger
	Out    io.Writer
	ErrOut io.Writer

	statusMu sync.Mutex
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext installed by PersistentPreRunE.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("cli: command context has no CLIContext")
	}

	return cc
}

// newRootCmd builds the fully-assembled root command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cinevault",
		Short:   "CineVault command-line client",
		Long:    "Keep a personal list of movies and shows on a CineVault server.",
		Version: version,
		// We print errors ourselves, see main().
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCLIContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServer, "server", "", "API root URL (overrides server_url)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable info logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newShellCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func currentFlags() CLIFlags {
	return CLIFlags{
		ConfigPath: flagConfigPath,
		Server:     flagServer,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Debug:      flagDebug,
		Quiet:      flagQuiet,
	}
}

// setupCLIContext resolves config and builds the logger, then stores both
// in the command's context.
func setupCLIContext(cmd *cobra.Command) error {
	flags := currentFlags()

	cc := &CLIContext{
		Flags:  flags,
		Logger: bootstrapLogger(flags),
		Out:    cmd.OutOrStdout(),
		ErrOut: cmd.ErrOrStderr(),
	}

	if cmd.Annotations[skipConfigAnnotation] != "true" {
		resolved, err := config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{
			ConfigPath: flags.ConfigPath,
			ServerURL:  flags.Server,
		})
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		cc.Cfg = resolved
		cc.Logger = buildLogger(resolved, flags, cc.ErrOut)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(withCLIContext(ctx, cc))

	return nil
}

// bootstrapLogger is used before config is available: warn by default,
// raised or lowered by the verbosity flags.
func bootstrapLogger(flags CLIFlags) *slog.Logger {
	level := flagLevel(flags, slog.LevelWarn)

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildLogger creates the logger from the resolved config. The config's
// log_level is the baseline; --verbose, --debug and --quiet win.
func buildLogger(cfg *config.Resolved, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelWarn

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: flagLevel(flags, level)}

	if useJSONLogs(cfg.LogFormat, w) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func flagLevel(flags CLIFlags, fallback slog.Level) slog.Level {
	switch {
	case flags.Debug:
		return slog.LevelDebug
	case flags.Verbose:
		return slog.LevelInfo
	case flags.Quiet:
		return slog.LevelError
	default:
		return fallback
	}
}

// useJSONLogs decides the handler for log_format. "auto" picks text when w
// is a terminal.
func useJSONLogs(format string, w io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	default:
		return !isTerminal(w)
	}
}

func isTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newHTTPClient applies the configured connect and request timeouts.
func newHTTPClient(cfg *config.Resolved) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeoutDuration}).DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeoutDuration

	return &http.Client{Transport: transport, Timeout: cfg.RequestTimeoutDuration}
}

func userAgent(cfg *config.Resolved) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}

	return "cinevault/" + version
}

// openSession opens the configured session store. The caller closes it.
func (cc *CLIContext) openSession(ctx context.Context) (session.Store, error) {
	store, err := session.Open(ctx, cc.Cfg.SessionBackend, cc.Cfg.SessionPath, cc.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}

	return store, nil
}

func (cc *CLIContext) newClient(store session.Store) *api.Client {
	return api.NewClient(cc.Cfg.ServerURL, newHTTPClient(cc.Cfg), store, cc.Logger, userAgent(cc.Cfg))
}

// withClient opens the session, builds a client and runs fn. The session is
// closed afterwards.
func (cc *CLIContext) withClient(ctx context.Context, fn func(*api.Client, session.Store) error) error {
	store, err := cc.openSession(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := store.Close(); cerr != nil {
			cc.Logger.Warn("closing session store", slog.String("error", cerr.Error()))
		}
	}()

	return fn(cc.newClient(store), store)
}
