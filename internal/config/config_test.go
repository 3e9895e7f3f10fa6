package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Address())
	assert.Equal(t, StorageDisk, cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.Root)
	assert.Equal(t, MetadataMongo, cfg.Metadata.Backend)
	assert.Equal(t, DefaultAllowedTypes, cfg.Storage.AllowedTypes)
	assert.Equal(t, DefaultViewableTypes, cfg.Storage.ViewableTypes)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Tracing.Enabled())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("FILEDROP_API_PORT", "8081")
	t.Setenv("UPLOAD_DIR", "/var/lib/filedrop")
	t.Setenv("FILEDROP_METADATA_BACKEND", "Postgres")
	t.Setenv("FILEDROP_ALLOWED_TYPES", "text/plain, image/png ,")
	t.Setenv("FILEDROP_CACHE_TTL", "30s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "/var/lib/filedrop", cfg.Storage.Root)
	assert.Equal(t, MetadataPostgres, cfg.Metadata.Backend)
	assert.Equal(t, []string{"text/plain", "image/png"}, cfg.Storage.AllowedTypes)
	assert.Equal(t, 30*time.Second, cfg.Metadata.CacheTTL)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("FILEDROP_STORAGE_BACKEND", "tape")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("FILEDROP_STORAGE_BACKEND", "disk")
	t.Setenv("FILEDROP_METADATA_BACKEND", "cassandra")
	_, err = Load()
	require.Error(t, err)
}

func TestMongoURI(t *testing.T) {
	m := MongoConfig{Host: "db", Port: 27017, User: "app", Password: "p@ss", Database: "files", AuthSource: "admin"}
	assert.Equal(t, "mongodb://app:p%40ss@db:27017/files?authSource=admin", m.URI())

	m.User = ""
	assert.Equal(t, "mongodb://db:27017/files", m.URI())
}
