package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleConfig = `
database:
  host: db.internal
  port: 5432
  user: pdv
  password: secret
  database: pdv

rabbitmq:
  host: mq.internal
  port: 5672
  user: guest
  password: guest

redis:
  addr: cache.internal:6379
  db: 1
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "mq.internal", cfg.RabbitMQ.Host)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "other.internal")
	t.Setenv("REDIS_ADDR", "localhost:6380")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "other.internal", cfg.Database.Host)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, "pdv", cfg.Database.User, "values without overrides keep the file value")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "database: [not a map"))
	assert.Error(t, err)
}
