package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		MainDomain:  "webpods.example",
		DatabaseURL: "sqlite:///tmp/webpods.db",
	}
	cfg.Auth.JWTSecret = "secret"
	ApplyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int64(10*1024*1024), cfg.Limits.MaxPayloadBytes)
	assert.Equal(t, int64(1024*1024), cfg.Limits.ExternalThresholdBytes)
	assert.Equal(t, 1000, cfg.Limits.MaxRecordLimit)
	assert.Equal(t, "sql", cfg.RateLimits.Adapter)
	assert.Equal(t, 10000, cfg.RateLimits.Read)
	assert.Equal(t, 1000, cfg.RateLimits.Write)
	assert.Equal(t, 10, cfg.RateLimits.PodCreate)
	assert.Equal(t, 100, cfg.RateLimits.StreamCreate)
	assert.Equal(t, "memory", cfg.Cache.Adapter)
	assert.Equal(t, 300, cfg.Cache.Pools.PodsTTLSeconds)
	assert.Equal(t, 3600, cfg.Blob.CacheMaxAgeSeconds)
}

func TestValidate(t *testing.T) {
	result := Validate(validConfig())
	assert.Empty(t, result.Errors)

	t.Run("missing essentials", func(t *testing.T) {
		cfg := &Config{}
		ApplyDefaults(cfg)
		result := Validate(cfg)
		assert.Contains(t, result.Errors, "main_domain is required")
		assert.Contains(t, result.Errors, "database_url is required")
		assert.Contains(t, result.Errors, "auth.jwt_secret or auth.issuer_url is required")
	})

	t.Run("cdn without blob root", func(t *testing.T) {
		cfg := validConfig()
		cfg.Blob.CDNBase = "https://cdn.webpods.example"
		result := Validate(cfg)
		assert.Contains(t, result.Errors, "blob.cdn_base requires blob.root")
	})

	t.Run("bad adapters", func(t *testing.T) {
		cfg := validConfig()
		cfg.RateLimits.Adapter = "dynamo"
		cfg.Cache.Adapter = "memcached"
		result := Validate(cfg)
		assert.Len(t, result.Errors, 2)
	})

	t.Run("redis requires url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache.Adapter = "redis"
		result := Validate(cfg)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "redis_url")
	})

	t.Run("warnings do not fail", func(t *testing.T) {
		cfg := validConfig()
		cfg.Limits.ExternalThresholdBytes = cfg.Limits.MaxPayloadBytes + 1
		result := Validate(cfg)
		assert.Empty(t, result.Errors)
		assert.NotEmpty(t, result.Warnings)
	})
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
main_domain: webpods.example
database_url: sqlite:///tmp/webpods.db
auth:
  jwt_secret: secret
server:
  address: ":9090"
rate_limits:
  write: 50
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "webpods.example", cfg.MainDomain)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 50, cfg.RateLimits.Write)
	// untouched fields keep their defaults
	assert.Equal(t, 10000, cfg.RateLimits.Read)
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_url: sqlite:///x.db\n"), 0o600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main_domain")
}
