package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("AUTH_SECRET", "dev-secret")
	t.Setenv("RECOMMEND_RESULT_COUNT", "6")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://animuse.app, http://localhost:5173")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, 6, cfg.Recommend.ResultCount)
	require.Equal(t, 12*time.Hour, cfg.Recommend.RefreshInterval)
	require.Equal(t, 500*time.Millisecond, cfg.Recommend.DebounceDelay)
	require.Equal(t, []string{"https://animuse.app", "http://localhost:5173"}, cfg.HTTP.AllowedOrigins)
	require.Equal(t, StorageMemory, cfg.Storage.Driver)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
http:
  address: ":9090"
recommend:
  debounceDelay: 250ms
  refreshInterval: 6h
storage:
  driver: file
  file:
    dir: /tmp/animuse
auth:
  secret: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_ADDRESS", ":7070")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTP.Address)
	require.Equal(t, 250*time.Millisecond, cfg.Recommend.DebounceDelay)
	require.Equal(t, 6*time.Hour, cfg.Recommend.RefreshInterval)
	require.Equal(t, 5*time.Minute, cfg.Recommend.RecentWindow)
	require.Equal(t, StorageFile, cfg.Storage.Driver)
	require.Equal(t, "/tmp/animuse", cfg.Storage.File.Dir)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing auth", mutate: func(c *Config) { c.Auth.Secret = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }},
		{name: "valkey without addr", mutate: func(c *Config) { c.Storage.Driver = StorageValkey }},
		{name: "r2 without bucket", mutate: func(c *Config) { c.Storage.Driver = StorageR2 }},
		{name: "recent window too long", mutate: func(c *Config) { c.Recommend.RecentWindow = 13 * time.Hour }},
		{name: "zero result count", mutate: func(c *Config) { c.Recommend.ResultCount = 0 }},
	}
	for _, tc := range cases {
		cfg := defaultConfig()
		cfg.Auth.Secret = "s"
		tc.mutate(cfg)
		require.Error(t, cfg.Validate(), tc.name)
	}

	cfg := defaultConfig()
	cfg.Auth.Secret = "s"
	require.NoError(t, cfg.Validate())
}
