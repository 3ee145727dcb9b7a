package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dental-captcha", cfg.App.Name)
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 20, cfg.Stats.LeaderboardSize)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
port = 9090

[database]
driver = "sqlite"

[sqlite]
path = "/tmp/captcha.db"

[redis]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "7070")
	t.Setenv("RABBITMQ_ENABLED", "off")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.App.Port, "env should win over file")
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/captcha.db", cfg.SQLite.Path)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestValidate(t *testing.T) {
	t.Run("UnknownDriver", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Database.Driver = "postgres"
		assert.Error(t, cfg.Validate())
	})

	t.Run("EmptySecret", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Auth.JWTSecret = " "
		assert.Error(t, cfg.Validate())
	})

	t.Run("IdlePoolLargerThanOpen", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.MySQL.MaxIdleConns = cfg.MySQL.MaxOpenConns + 1
		assert.Error(t, cfg.Validate())

		cfg.Database.Driver = DriverSQLite
		assert.NoError(t, cfg.Validate())
	})

	t.Run("ZeroRedisTimeout", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Redis.DialTimeoutMS = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("EmptyQueueWhenEnabled", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.RabbitMQ.GradeResultQueue = ""
		assert.Error(t, cfg.Validate())

		cfg.RabbitMQ.Enabled = false
		assert.NoError(t, cfg.Validate())
	})
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.Password = "secret"
	assert.Equal(t,
		"root:secret@tcp(127.0.0.1:3306)/dental_captcha?parseTime=true&loc=Local&charset=utf8mb4",
		cfg.MySQLDSN(),
	)
}

func TestConnectionSettings(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("MYSQL_MAX_OPEN_CONNS", "8")
	t.Setenv("MYSQL_MAX_IDLE_CONNS", "4")
	t.Setenv("REDIS_DIAL_TIMEOUT_MS", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.MySQL.MaxOpenConns)
	assert.Equal(t, 4, cfg.MySQL.MaxIdleConns)
	assert.Equal(t, time.Hour, cfg.MySQL.ConnMaxLifetime())
	assert.Equal(t, 200*time.Millisecond, cfg.MySQL.SlowQueryThreshold())
	assert.Equal(t, 500*time.Millisecond, cfg.Redis.DialTimeout())
	assert.Equal(t, 2*time.Second, cfg.Redis.ReadWriteTimeout())
}
