package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/cinevault/cinevault/internal/tokenfile"
)

func TestFileStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := OpenFileStore(path, testLogger(t))
	require.NoError(t, err)

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	// Another process logs in.
	require.NoError(t, tokenfile.Save(path, &oauth2.Token{AccessToken: "other", RefreshToken: "r"}))

	changed, err = s.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "other", s.Get().AccessToken)
}

func TestFileStore_WatchSeesExternalLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := OpenFileStore(path, testLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Set("access", "refresh"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Session, 4)
	done := make(chan error, 1)

	go func() {
		done <- s.Watch(ctx, func(cur Session) { changes <- cur })
	}()

	// Give the watcher time to register before the external write.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, tokenfile.Remove(path))

	select {
	case cur := <-changes:
		assert.True(t, cur.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the removed session file")
	}

	cancel()
	require.NoError(t, <-done)
}
