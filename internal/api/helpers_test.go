package api

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/cinevault/cinevault/internal/session"
	"github.com/cinevault/cinevault/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newFakeSession starts a FakeAPI with user alice and returns a client whose
// store already holds a valid pair for her.
func newFakeSession(t *testing.T) (*testutil.FakeAPI, *Client, *session.MemoryStore) {
	t.Helper()

	fake := testutil.NewFakeAPI(t)
	fake.AddUser("alice", "alice@example.com", "s3cret")
	access, refresh := fake.IssueTokens("alice")

	store := session.NewMemoryStore(session.Session{AccessToken: access, RefreshToken: refresh})

	return fake, NewClient(fake.URL(), http.DefaultClient, store, testLogger(), "cinevault-test"), store
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()

	n, err := strconv.Atoi(s)
	if err != nil {
		t.Fatalf("atoi %q: %v", s, err)
	}

	return n
}
