package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddr())
	assert.Equal(t, "none", cfg.Storage.Backend)
	assert.Equal(t, 8, cfg.Snapshot.Concurrent)
	assert.Equal(t, 5*time.Minute, cfg.Snapshot.TaskTimeout)
	assert.Equal(t, 22, cfg.SSH.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Same(t, cfg, Get())
}

func TestLoadOverridesAndEnv(t *testing.T) {
	t.Setenv("NETSNAPSHOT_TEST_SECRET", "s3cr3t")
	cfg, err := Load(writeConfig(t, `
storage:
  backend: " MinIO "
  minio:
    host: minio.local
    secret_key: ${NETSNAPSHOT_TEST_SECRET}
snapshot:
  concurrent: 0
  task_timeout: 90s
`))
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, "minio.local", cfg.Storage.Minio.Host)
	assert.Equal(t, "s3cr3t", cfg.Storage.Minio.SecretKey)
	assert.Equal(t, 1, cfg.Snapshot.Concurrent)
	assert.Equal(t, 90*time.Second, cfg.Snapshot.TaskTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
