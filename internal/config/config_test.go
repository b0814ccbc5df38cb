package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into a fresh directory so no stray taskboard.yaml or .env is read.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	t.Setenv("TASKBOARD_ADDR", "")
	t.Setenv("TASKBOARD_DB_PATH", "")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "data/taskboard.db", cfg.Server.DBPath)
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
	assert.False(t, cfg.Board.GateReopen)
	assert.Empty(t, cfg.Server.CORSOrigins)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdir(t)
	file := filepath.Join(dir, "board.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  addr: ":9000"
  jwt_secret: "from-file-secret-123"
  cors_origins: ["http://a.test"]
client:
  timeout: 3s
board:
  gate_reopen: true
`), 0o600))
	t.Setenv("TASKBOARD_SERVER_ADDR", ":9100")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "from-file-secret-123", cfg.Server.JWTSecret)
	assert.Equal(t, []string{"http://a.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.Client.Timeout)
	assert.True(t, cfg.Board.GateReopen)
	require.NoError(t, cfg.Server.Validate())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TASKBOARD_CLIENT_TOKEN=abc\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TASKBOARD_CLIENT_TOKEN") })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Client.Token)
	assert.NoError(t, cfg.Client.Validate())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdir(t)
	_, err := Load(viper.New(), "nope.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, ServerConfig{Addr: ":1", DBPath: "x", JWTSecret: "short"}.Validate())
	assert.Error(t, ClientConfig{BaseURL: "http://x"}.Validate())
	assert.Equal(t, []string{"a", "b"}, splitList([]string{"a, b", " "}))
}
