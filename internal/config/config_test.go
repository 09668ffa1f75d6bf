package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.MaxTotalConnections)
	assert.Equal(t, 16, cfg.MaxConnectionsPerHost)
	assert.Equal(t, "pool", cfg.Backend)
	assert.Equal(t, 5, cfg.RetryAttempts)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: loop
max_total_connections: 10
retry_base_delay: 1s
download_dir: /data/downloads
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "loop", cfg.Backend)
	assert.Equal(t, 10, cfg.MaxTotalConnections)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay.Std())
	assert.Equal(t, "/data/downloads", cfg.DownloadDir)
	// Untouched values keep defaults.
	assert.Equal(t, 16, cfg.MaxSegmentsPerJob)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []string{
		"backend: warp",
		"max_total_connections: 0",
		"min_segments_per_job: 8\nmax_segments_per_job: 2",
		"retry_attempts: 0",
	}
	for _, body := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		_, err := Load(path)
		assert.Error(t, err, body)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/var/lib/hiruko"
	assert.Equal(t, "/var/lib/hiruko/jobs.db", cfg.DatabasePath())
	assert.Equal(t, "/var/lib/hiruko/control.sock", cfg.SocketPath())
}
