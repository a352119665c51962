package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cinevault/cinevault/internal/api"
	"github.com/cinevault/cinevault/internal/session"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with username and password. The password is read from the
terminal without echo, or as one line from standard input when piped.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().StringP("username", "u", "", "account username (prompted when omitted)")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE:  runRegister,
	}

	cmd.Flags().StringP("username", "u", "", "account username (prompted when omitted)")
	cmd.Flags().String("email", "", "account email (prompted when omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the signed-in user",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	p := newPrompter(cmd.InOrStdin(), cc.ErrOut)

	username, err := flagOrPrompt(cmd, p, "username", "Username: ")
	if err != nil {
		return err
	}

	password, err := p.Password("Password: ")
	if err != nil {
		return err
	}

	return cc.withClient(cmd.Context(), func(client *api.Client, _ session.Store) error {
		if err := client.Login(cmd.Context(), username, password); err != nil {
			return err
		}

		cc.Statusf("Logged in as %s.\n", username)

		return nil
	})
}

func runRegister(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	p := newPrompter(cmd.InOrStdin(), cc.ErrOut)

	username, err := flagOrPrompt(cmd, p, "username", "Username: ")
	if err != nil {
		return err
	}

	email, err := flagOrPrompt(cmd, p, "email", "Email: ")
	if err != nil {
		return err
	}

	password, err := p.Password("Password: ")
	if err != nil {
		return err
	}

	return cc.withClient(cmd.Context(), func(client *api.Client, _ session.Store) error {
		return registerAndLogin(cmd.Context(), cc, client, username, email, password)
	})
}

// registerAndLogin creates the account and signs in with the same
// credentials.
func registerAndLogin(ctx context.Context, cc *CLIContext, client *api.Client, username, email, password string) error {
	u, err := client.Register(ctx, username, email, password)
	if err != nil {
		return err
	}

	cc.Statusf("Account %s created.\n", u.Username)

	if err := client.Login(ctx, username, password); err != nil {
		return fmt.Errorf("account created but sign-in failed: %w", err)
	}

	cc.Statusf("Logged in as %s.\n", u.Username)

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	return cc.withClient(cmd.Context(), func(client *api.Client, store session.Store) error {
		if store.Get().IsZero() {
			cc.Statusf("Not logged in.\n")
			return nil
		}

		if err := client.Logout(); err != nil {
			return err
		}

		cc.Statusf("Logged out.\n")

		return nil
	})
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	return cc.withClient(cmd.Context(), func(client *api.Client, _ session.Store) error {
		if !client.LoggedIn() {
			return errNotLoggedIn
		}

		u, err := client.Me(cmd.Context())
		if err != nil {
			return err
		}

		if cc.Flags.JSON {
			return printJSON(cc.Out, whoamiOutput{ID: u.ID, Username: u.Username, Email: u.Email})
		}

		fmt.Fprintf(cc.Out, "User:   %s\n", u.Username)

		if u.Email != "" {
			fmt.Fprintf(cc.Out, "Email:  %s\n", u.Email)
		}

		fmt.Fprintf(cc.Out, "ID:     %s\n", u.ID)

		return nil
	})
}

var errNotLoggedIn = errors.New("not logged in, run 'cinevault login' first")

func flagOrPrompt(cmd *cobra.Command, p *prompter, flag, label string) (string, error) {
	v, err := cmd.Flags().GetString(flag)
	if err != nil {
		return "", err
	}

	if v != "" {
		return v, nil
	}

	return p.Line(label)
}
