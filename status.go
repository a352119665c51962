package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cinevault/cinevault/internal/api"
	"github.com/cinevault/cinevault/internal/session"
)

// Session state constants for status reporting.
const (
	sessionStateMissing = "logged out"
	sessionStateExpired = "expired"
	sessionStateValid   = "valid"
	sessionStateUnknown = "unknown"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server, session and token status",
		Long: `Display the configured server, where the session is stored and whether
it is usable. With --check the server is asked to confirm the session, which
renews it if the access token has expired.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}

	cmd.Flags().Bool("check", false, "confirm the session with the server")

	return cmd
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Server         string `json:"server"`
	ConfigPath     string `json:"config_path"`
	SessionBackend string `json:"session_backend"`
	SessionPath    string `json:"session_path"`
	State          string `json:"state"`
	AccessExpires  string `json:"access_expires,omitempty"`
	CanRenew       bool   `json:"can_renew"`
	User           string `json:"user,omitempty"`
	Gateway        string `json:"gateway,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}

	return cc.withClient(cmd.Context(), func(client *api.Client, store session.Store) error {
		out := statusOutput{
			Server:         cc.Cfg.ServerURL,
			ConfigPath:     cc.Cfg.ConfigPath,
			SessionBackend: cc.Cfg.SessionBackend,
			SessionPath:    cc.Cfg.SessionPath,
		}

		describeSession(&out, store.Get(), time.Now())

		if check && !store.Get().IsZero() {
			u, err := client.Me(cmd.Context())

			switch {
			case err == nil:
				out.User = u.Username
				describeSession(&out, store.Get(), time.Now())
			case errors.Is(err, api.ErrSessionExpired), errors.Is(err, api.ErrUnauthenticated):
				describeSession(&out, store.Get(), time.Now())
			default:
				return err
			}

			out.Gateway = client.Gateway().State().String()
		}

		if cc.Flags.JSON {
			return printJSON(cc.Out, out)
		}

		printStatusText(cc, out)

		return nil
	})
}

func describeSession(out *statusOutput, sess session.Session, now time.Time) {
	out.CanRenew = sess.HasRefresh()
	out.AccessExpires = ""

	if !sess.HasAccess() {
		out.State = sessionStateMissing
		return
	}

	exp, ok := session.AccessExpiry(sess.AccessToken)
	if !ok {
		out.State = sessionStateUnknown
		return
	}

	out.AccessExpires = exp.UTC().Format(time.RFC3339)

	if exp.After(now) {
		out.State = sessionStateValid
	} else {
		out.State = sessionStateExpired
	}
}

func printStatusText(cc *CLIContext, out statusOutput) {
	w := cc.Out

	fmt.Fprintf(w, "Server:   %s\n", out.Server)
	fmt.Fprintf(w, "Config:   %s\n", out.ConfigPath)
	fmt.Fprintf(w, "Session:  %s (%s)\n", out.SessionPath, out.SessionBackend)
	fmt.Fprintf(w, "State:    %s\n", out.State)

	if out.AccessExpires != "" {
		if exp, err := time.Parse(time.RFC3339, out.AccessExpires); err == nil {
			fmt.Fprintf(w, "Access:   expires %s\n", formatExpiry(exp, time.Now()))
		}
	}

	if out.State != sessionStateMissing {
		renewal := "not available"
		if out.CanRenew {
			renewal = "available"
		}

		fmt.Fprintf(w, "Renewal:  %s\n", renewal)
	}

	if out.User != "" {
		fmt.Fprintf(w, "User:     %s\n", out.User)
	}

	if out.Gateway != "" {
		fmt.Fprintf(w, "Gateway:  %s\n", out.Gateway)
	}

	if out.State == sessionStateMissing {
		fmt.Fprintln(w, "Run 'cinevault login' to sign in.")
	}
}
