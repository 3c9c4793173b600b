package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("GRANT_TTL", "90s")
	t.Setenv("PUBLIC_BASE_URL", "https://kawach.example.com/")
	t.Setenv("STORAGE_TYPE", "LOCAL")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 90*time.Second, cfg.Grant.TTL)
	assert.Equal(t, time.Second, cfg.Grant.TickInterval)
	assert.Equal(t, "https://kawach.example.com", cfg.Grant.PublicBaseURL)
	assert.Equal(t, "local", cfg.Storage.Type)
}

func TestLoad_GrantDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 40*time.Second, cfg.Grant.TTL)
	assert.Equal(t, 256, cfg.Grant.QRSize)
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			Storage: StorageConfig{Type: "minio"},
			Auth:    AuthConfig{JWTSecret: "jwt"},
			Grant: GrantConfig{
				SigningSecret: "sig",
				TTL:           40 * time.Second,
				TickInterval:  time.Second,
				QRSize:        256,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *AppConfig) {}},
		{name: "missing jwt secret", mutate: func(c *AppConfig) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "missing signing secret", mutate: func(c *AppConfig) { c.Grant.SigningSecret = "" }, wantErr: "GRANT_SIGNING_SECRET"},
		{name: "zero ttl", mutate: func(c *AppConfig) { c.Grant.TTL = 0 }, wantErr: "GRANT_TTL"},
		{name: "negative tick", mutate: func(c *AppConfig) { c.Grant.TickInterval = -time.Second }, wantErr: "GRANT_TICK_INTERVAL"},
		{name: "unknown storage", mutate: func(c *AppConfig) { c.Storage.Type = "ftp" }, wantErr: "STORAGE_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Asia/Jakarta"}
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"

	t.Setenv(key, "1m30s")
	assert.Equal(t, 90*time.Second, getEnvDuration(key, 0))

	t.Setenv(key, "15")
	assert.Equal(t, 15*time.Second, getEnvDuration(key, 0))

	t.Setenv(key, "soon")
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))
}
