package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientFromEnv(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "env-key", r.Header.Get("x-goog-api-key"))
		_, _ = io.WriteString(w, finalReply)
	}))
	defer server.Close()

	t.Chdir(t.TempDir())
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvBaseURL, server.URL)

	client, err := NewClientFromEnv()
	require.NoError(t, err)

	resp, err := client.NewRequest().AddMessage(RoleUser, "Hi").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "It is sunny in Rome.", resp.Text())
}

func TestNewClientFromEnv_MissingKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvAPIKey, "")

	_, err := NewClientFromEnv()
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), EnvAPIKey)
}

func TestNewClientFromEnv_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvAPIKey+"=file-key\n"), 0o600))
	t.Chdir(dir)
	t.Setenv(EnvAPIKey, "")
	require.NoError(t, os.Unsetenv(EnvAPIKey))

	_, err := NewClientFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "file-key", os.Getenv(EnvAPIKey))
	require.NoError(t, os.Unsetenv(EnvAPIKey))
}
