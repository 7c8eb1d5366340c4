package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, 5*time.Second, cfg.Notify.Timeout)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
log:
  level: debug
storage:
  type: postgres
  postgres:
    dsn: postgres://dotareg@localhost/dotareg
auth:
  session_duration: 2h
  admins:
    - username: admin
      password: hunter22
notify:
  webhook_url: https://discord.com/api/webhooks/1/abc
  timeout: 3s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset values keep defaults")
	assert.Equal(t, StoragePostgres, cfg.Storage.Type)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionDuration)
	require.Len(t, cfg.Auth.Admins, 1)
	assert.Equal(t, 3*time.Second, cfg.Notify.Timeout)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Auth.Admins = []AdminConfig{{Username: "Admin", Password: "old", Role: "admin"}}

	err := applyEnv(&cfg, envMap(map[string]string{
		"DOTAREG_STORAGE":          "redis",
		"REDIS_URL":                "redis://localhost:6379/0",
		"DISCORD_WEBHOOK_URL":      "https://discord.com/api/webhooks/2/def",
		"DOTAREG_SESSION_DURATION": "30m",
		"DOTAREG_ADMIN_USERNAME":   "admin",
		"DOTAREG_ADMIN_PASSWORD":   "new",
		"DOTAREG_RATE_LIMIT_RPS":   "2.5",
		"DISCORD_PUBLIC_KEY":       "abcd",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.Redis.URL)
	assert.Equal(t, "https://discord.com/api/webhooks/2/def", cfg.Notify.WebhookURL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SessionDuration)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "abcd", cfg.Discord.PublicKey)
	require.Len(t, cfg.Auth.Admins, 1)
	assert.Equal(t, "new", cfg.Auth.Admins[0].Password)
	assert.Equal(t, "admin", cfg.Auth.Admins[0].Role)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, envMap(map[string]string{
		"DOTAREG_SESSION_DURATION": "forever",
		"DOTAREG_RATE_LIMIT_RPS":   "fast",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOTAREG_SESSION_DURATION")
	assert.Contains(t, err.Error(), "DOTAREG_RATE_LIMIT_RPS")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Type = StorageRedis
	cfg.Log.Level = "loud"
	cfg.Auth.Admins = []AdminConfig{{Username: "admin"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
	assert.Contains(t, err.Error(), "auth.admins[0]")
	assert.Contains(t, err.Error(), "loud")

	cfg = Default()
	cfg.Storage.Type = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "sqlite")
}
