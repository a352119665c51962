// Creates the account E2E tests sign in with on a live server and checks
// that it can log in. An existing account with the same username is reused.
//
// Usage: go run ./cmd/integration-bootstrap
//
// Reads CINEVAULT_E2E_SERVER, CINEVAULT_E2E_USERNAME and
// CINEVAULT_E2E_PASSWORD from the environment or .env.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cinevault/cinevault/internal/api"
	"github.com/cinevault/cinevault/internal/session"
	"github.com/cinevault/cinevault/testutil"
)

func main() {
	email := flag.String("email", "", "email for a newly created account")
	flag.Parse()

	testutil.LoadDotEnv(filepath.Join(testutil.FindModuleRoot("."), ".env"))

	srv, ok, err := testutil.LiveServerFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", testutil.EnvE2EServer)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := bootstrap(ctx, srv, *email, slog.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Account %s ready on %s.\n", srv.Username, srv.URL)
}

func bootstrap(ctx context.Context, srv testutil.LiveServer, email string, logger *slog.Logger) error {
	store := session.NewMemoryStore(session.Session{})
	client := api.NewClient(srv.URL, nil, store, logger, "cinevault-bootstrap")

	if email == "" {
		email = srv.Username + "@example.com"
	}

	_, err := client.Register(ctx, srv.Username, email, srv.Password)

	var apiErr *api.Error
	switch {
	case err == nil:
		logger.Info("account created", slog.String("username", srv.Username))
	case errors.As(err, &apiErr) && len(apiErr.Fields["username"]) > 0:
		logger.Info("account exists", slog.String("username", srv.Username))
	default:
		return fmt.Errorf("registering %s: %w", srv.Username, err)
	}

	if err := client.Login(ctx, srv.Username, srv.Password); err != nil {
		return fmt.Errorf("signing in as %s: %w", srv.Username, err)
	}

	u, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetching profile: %w", err)
	}

	logger.Info("session verified", slog.String("user_id", u.ID))

	return client.Logout()
}
