package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BACKOFFICE_PORT", "9090")
	t.Setenv("BACKOFFICE_TENANT_ID", "6f1c1a52-6a1f-4d6c-9d47-3b1f3c1e9a01")
	t.Setenv("BACKOFFICE_DATABASE_DRIVER", "pgx")
	t.Setenv("BACKOFFICE_DATABASE_DSN", "postgres://localhost/backoffice")
	t.Setenv("BACKOFFICE_CACHE_TTL", "30s")
	t.Setenv("BACKOFFICE_STORE_TIMEOUT", "2s")
	t.Setenv("BACKOFFICE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/backoffice", cfg.Database.DSN)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)

	id, err := cfg.Tenant()
	require.NoError(t, err)
	assert.Equal(t, "6f1c1a52-6a1f-4d6c-9d47-3b1f3c1e9a01", id.String())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backoffice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 7070
cache:
  ttl: 1m
log:
  json_file: /var/log/backoffice.json
`), 0o600))
	t.Setenv("BACKOFFICE_PORT", "7171")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7171, cfg.Port, "environment wins over the file")
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "/var/log/backoffice.json", cfg.Log.JSONFile)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 0 }},
		{"tenant", func(c *Config) { c.TenantID = "tenant-a" }},
		{"nil tenant", func(c *Config) { c.TenantID = "00000000-0000-0000-0000-000000000000" }},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"dsn", func(c *Config) { c.Database.DSN = "" }},
		{"ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"timeout", func(c *Config) { c.Store.Timeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
