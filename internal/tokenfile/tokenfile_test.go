package tokenfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLoad_FileNotFound(t *testing.T) {
	tok, err := Load("/nonexistent/path/session.json")
	assert.Nil(t, tok)
	assert.NoError(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, Save(path, &oauth2.Token{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
	}))

	tok, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, "refresh-456", tok.RefreshToken)
	assert.Equal(t, "Bearer", tok.TokenType)
}

func TestLoad_MissingTokenField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access":"old","refresh":"old"}`), 0o600))

	tok, err := Load(path)
	assert.Nil(t, tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token field")
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), 0o600))

	tok, err := Load(path)
	assert.Nil(t, tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestLoad_EmptyCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":{"token_type":"Bearer"}}`), 0o600))

	tok, err := Load(path)
	assert.Nil(t, tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty credentials")
}

func TestSave_CreatesDirectoryWithOwnerOnlyPerms(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "sub", "dir", "session.json")

	require.NoError(t, Save(nested, &oauth2.Token{AccessToken: "a"}))

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_NilToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	require.Error(t, Save(path, nil))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "a"}))
	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "b"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.json", entries[0].Name())
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "a"}))

	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path), "second remove is a no-op")

	tok, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestSave_RecordsSaveTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	before := time.Now().UTC().Add(-time.Second)

	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var f File
	require.NoError(t, json.Unmarshal(data, &f))
	assert.True(t, f.SavedAt.After(before))
	assert.Equal(t, "r", f.Token.RefreshToken)
}
