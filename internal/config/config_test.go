package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  host: 0.0.0.0
  port: 8080
database:
  host: localhost
  user: equiprent
  database: equiprent
jwt:
  secret: 0123456789abcdef0123456789abcdef
smtp:
  host: smtp.example.com
  port: 587
  from: no-reply@example.com
notify:
  admin_email: ops@example.com
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, baseYAML))
		require.NoError(t, err)

		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, "smtp", cfg.Notify.Transport)
		assert.Equal(t, 3, cfg.Notify.MaxRetries)
		assert.Equal(t, "0 0 6 * * *", cfg.Scheduler.LifecycleSweep)
		assert.Equal(t, 4, cfg.Sweeper.Workers)
		assert.Equal(t, 10*time.Second, cfg.Sweeper.CallTimeout())
		assert.Equal(t, 15*time.Minute, cfg.Sweeper.LockTTL())
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "text", cfg.Log.Format)
		assert.Equal(t, "postgres://equiprent:@localhost:5432/equiprent?sslmode=disable", cfg.GetDatabaseConnectionString())
		assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "memory")
		t.Setenv("NOTIFY_TRANSPORT", "kafka")
		t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
		t.Setenv("LIFECYCLE_SWEEP_CRON", "0 */15 * * * *")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load(writeConfig(t, baseYAML))
		require.NoError(t, err)

		assert.Equal(t, "memory", cfg.Database.Driver)
		assert.Equal(t, "kafka", cfg.Notify.Transport)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "lifecycle-notifications", cfg.Kafka.Topic)
		assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.LifecycleSweep)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "memory"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Notify:   NotifyConfig{Transport: "log", AdminEmail: "ops@example.com"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unknown database driver"},
		{"postgres needs host", func(c *Config) { c.Database.Driver = "postgres" }, "database host is required"},
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }, "at least 32 characters"},
		{"no admin email", func(c *Config) { c.Notify.AdminEmail = "" }, "admin email is required"},
		{"sendgrid key", func(c *Config) { c.Notify.Transport = "sendgrid" }, "SendGrid API key is required"},
		{"kafka brokers", func(c *Config) { c.Notify.Transport = "kafka" }, "kafka brokers are required"},
		{"unknown transport", func(c *Config) { c.Notify.Transport = "pigeon" }, "unknown notify transport"},
		{"redis for lock", func(c *Config) { c.Sweeper.DistributedLock = true }, "redis address is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("GET", "/healthz"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("POST", "/api/v1/{kind:bookings|sales}/{id}/status"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("POST", "/api/v1/admin/sweep"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("DELETE", "/api/v1/unknown"))
}
