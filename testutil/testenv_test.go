package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nCINEVAULT_T_A=one\nexport CINEVAULT_T_B=\"two\"\nCINEVAULT_T_C='three'\nnot a pair\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CINEVAULT_T_A", "")
	t.Setenv("CINEVAULT_T_B", "")
	t.Setenv("CINEVAULT_T_C", "preset")

	LoadDotEnv(path)

	assert.Equal(t, "one", os.Getenv("CINEVAULT_T_A"))
	assert.Equal(t, "two", os.Getenv("CINEVAULT_T_B"))
	assert.Equal(t, "preset", os.Getenv("CINEVAULT_T_C"), "env wins over .env")
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	LoadDotEnv(filepath.Join(t.TempDir(), "absent"))
}

func TestLiveServerFromEnv(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		t.Setenv(EnvE2EServer, "")

		_, ok, err := LiveServerFromEnv()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("allowed", func(t *testing.T) {
		t.Setenv(EnvE2EServer, "https://staging.example.com/api/")
		t.Setenv(EnvE2EUsername, "e2e")
		t.Setenv(EnvE2EPassword, "pw")
		t.Setenv(EnvE2EAllowedServers, "http://localhost:8000/api, https://staging.example.com/api")

		srv, ok, err := LiveServerFromEnv()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://staging.example.com/api", srv.URL)
	})

	t.Run("not allowlisted", func(t *testing.T) {
		t.Setenv(EnvE2EServer, "https://prod.example.com/api")
		t.Setenv(EnvE2EUsername, "e2e")
		t.Setenv(EnvE2EPassword, "pw")
		t.Setenv(EnvE2EAllowedServers, "http://localhost:8000/api")

		_, _, err := LiveServerFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not in")
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv(EnvE2EServer, "http://localhost:8000/api")
		t.Setenv(EnvE2EUsername, "")
		t.Setenv(EnvE2EPassword, "")

		_, _, err := LiveServerFromEnv()
		require.Error(t, err)
	})
}

func TestFindModuleRoot(t *testing.T) {
	root := FindModuleRoot("fallback")
	assert.FileExists(t, filepath.Join(root, "go.mod"))
}
