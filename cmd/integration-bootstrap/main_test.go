package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinevault/cinevault/internal/api"
	"github.com/cinevault/cinevault/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBootstrap_CreatesAccount(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	srv := testutil.LiveServer{URL: fake.URL(), Username: "e2e", Password: "pw"}

	require.NoError(t, bootstrap(context.Background(), srv, "", discardLogger()))

	assert.Len(t, fake.RequestsTo("POST", "/users/"), 1)
	assert.Len(t, fake.RequestsTo("GET", "/me/"), 1)
}

func TestBootstrap_ReusesExistingAccount(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("e2e", "e2e@example.com", "pw")
	srv := testutil.LiveServer{URL: fake.URL(), Username: "e2e", Password: "pw"}

	require.NoError(t, bootstrap(context.Background(), srv, "", discardLogger()))
}

func TestBootstrap_WrongPassword(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("e2e", "e2e@example.com", "other")
	srv := testutil.LiveServer{URL: fake.URL(), Username: "e2e", Password: "pw"}

	err := bootstrap(context.Background(), srv, "", discardLogger())
	require.ErrorIs(t, err, api.ErrInvalidCredentials)
}
