package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.json")

	data := `{
		"server": {"port": 8080},
		"upload": {"max_declared_size_bytes": 1073741824},
		"database": {"dsn": "postgres://localhost:5432/converthub"},
		"redis": {"nodes": [{"host": "127.0.0.1", "port": 6379}]},
		"s3": {"endpoint": "http://127.0.0.1:9000", "region": "us-east-1", "bucket_name": "converthub"},
		"queue": {"stream_prefix": "converthub:queue", "max_len": 10000},
		"log_level": "info"
	}`
	require.NoError(t, os.WriteFile(file, []byte(data), 0o600))

	cfg := NewConfig()
	require.NoError(t, cfg.Read(file))

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1<<30), cfg.Upload.MaxSize())
	assert.Equal(t, "postgres://localhost:5432/converthub", cfg.Database.DSN)
	require.Len(t, cfg.Redis.Nodes, 1)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Nodes[0].Addr())
	assert.Equal(t, "converthub", cfg.S3.BucketName)
	assert.Equal(t, "converthub:queue", cfg.Queue.StreamPrefix)
	assert.Equal(t, int64(10000), cfg.Queue.MaxLen)
}

func TestReadConfigMissingFile(t *testing.T) {
	cfg := NewConfig()
	assert.Error(t, cfg.Read(filepath.Join(t.TempDir(), "nope.json")))
}

func TestUploadMaxSizeDefault(t *testing.T) {
	var u UploadConfig
	assert.Equal(t, DefaultMaxDeclaredSizeBytes, u.MaxSize())
}
