package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfigValidate(t *testing.T) {
	cfg := DatabaseConfig{DSN: "postgres://localhost/registry", MinConnections: 10, MaxConnections: 50}
	assert.NoError(t, cfg.Validate())

	cfg.DSN = ""
	assert.Error(t, cfg.Validate(), "DSN is required once validation runs")

	cfg.DSN = "postgres://localhost/registry"
	cfg.MinConnections = 60
	assert.Error(t, cfg.Validate(), "min_connections above max_connections")
}

func TestDatabaseConfigPoolDurations(t *testing.T) {
	cfg := DatabaseConfig{MaxIdleTime: "30m", MaxLifetime: "12h"}
	assert.Equal(t, 30*time.Minute, cfg.MaxIdleDuration())
	assert.Equal(t, 12*time.Hour, cfg.MaxLifetimeDuration())

	bad := DatabaseConfig{MaxIdleTime: "soon", MaxLifetime: "later"}
	assert.Equal(t, time.Hour, bad.MaxIdleDuration(), "unparsable idle time falls back")
	assert.Equal(t, 24*time.Hour, bad.MaxLifetimeDuration(), "unparsable lifetime falls back")
}

func TestLoadRegistryConfigRejectsInvalidDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yml")
	yml := []byte("database:\n  dsn: postgres://localhost/registry\n  min_connections: 60\n  max_connections: 50\n")
	require.NoError(t, os.WriteFile(path, yml, 0o644))

	_, err := LoadRegistryConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database configuration")
}

func TestLoadRegistryConfigAllowsMemoryFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yml")
	require.NoError(t, os.WriteFile(path, []byte("http_listen_addr: :9090\n"), 0o644))

	cfg, err := LoadRegistryConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HttpListenAddr)
	assert.Empty(t, cfg.Database.DSN, "no DSN means the in-memory store")
}
