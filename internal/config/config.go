package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MainDomain  string           `yaml:"main_domain"`
	RootPod     string           `yaml:"root_pod"`
	Server      ServerConfig     `yaml:"server"`
	Auth        AuthConfig       `yaml:"auth"`
	DatabaseURL string           `yaml:"database_url"`
	Blob        BlobConfig       `yaml:"blob"`
	Limits      LimitsConfig     `yaml:"limits"`
	RateLimits  RateLimitsConfig `yaml:"rate_limits"`
	Cache       CacheConfig      `yaml:"cache"`
}

type ServerConfig struct {
	Address             string `yaml:"address"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
	AuditLogs           bool   `yaml:"audit_logs"`
}

type AuthConfig struct {
	// JWTSecret signs and verifies HS256 service tokens.
	JWTSecret string `yaml:"jwt_secret"`
	// IssuerURL enables JWKS-based verification of RS256 tokens minted by
	// an external authorization server. Optional.
	IssuerURL string `yaml:"issuer_url"`
	JWKSURL   string `yaml:"jwks_url"`
	Audience  string `yaml:"audience"`
}

type BlobConfig struct {
	Root    string `yaml:"root"`
	CDNBase string `yaml:"cdn_base"`
	// CacheMaxAgeSeconds is emitted on 302 redirects to external content.
	CacheMaxAgeSeconds int `yaml:"cache_max_age_seconds"`
}

type LimitsConfig struct {
	MaxPayloadBytes        int64 `yaml:"max_payload_bytes"`
	ExternalThresholdBytes int64 `yaml:"external_threshold_bytes"`
	MaxRecordLimit         int   `yaml:"max_record_limit"`
}

type RateLimitsConfig struct {
	Adapter      string `yaml:"adapter"` // sql, memory, none
	Read         int    `yaml:"read"`
	Write        int    `yaml:"write"`
	PodCreate    int    `yaml:"pod_create"`
	StreamCreate int    `yaml:"stream_create"`
}

type CacheConfig struct {
	Adapter  string           `yaml:"adapter"` // memory, redis, none
	RedisURL string           `yaml:"redis_url"`
	Pools    CachePoolsConfig `yaml:"pools"`
}

type CachePoolsConfig struct {
	PodsTTLSeconds          int `yaml:"pods_ttl_seconds"`
	StreamsTTLSeconds       int `yaml:"streams_ttl_seconds"`
	SingleRecordsTTLSeconds int `yaml:"single_records_ttl_seconds"`
	RecordListsTTLSeconds   int `yaml:"record_lists_ttl_seconds"`
}

func Load() (*Config, string, error) {
	path := os.Getenv("WEBPODS_CONFIG")
	if path == "" {
		path = os.Getenv("WEBPODS_CONFIG_PATH")
	}

	candidates := []string{}
	if path != "" {
		candidates = append(candidates, path)
	}
	candidates = append(candidates,
		"/etc/webpods/config.yaml",
		"./config.yaml",
	)

	var selected string
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			selected = candidate
			break
		}
	}
	if selected == "" {
		return nil, "", errors.New("config file not found")
	}

	cfg, err := LoadFromPath(selected)
	if err != nil {
		return nil, "", err
	}
	return cfg, selected, nil
}

func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyDefaults(cfg)
	result := Validate(cfg)
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("invalid config: %s", result.Errors[0])
	}

	return cfg, nil
}

func ApplyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 10
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Server.IdleTimeoutSeconds == 0 {
		cfg.Server.IdleTimeoutSeconds = 60
	}

	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits.MaxPayloadBytes = 10 * 1024 * 1024
	}
	if cfg.Limits.ExternalThresholdBytes == 0 {
		cfg.Limits.ExternalThresholdBytes = 1024 * 1024
	}
	if cfg.Limits.MaxRecordLimit == 0 {
		cfg.Limits.MaxRecordLimit = 1000
	}

	if cfg.RateLimits.Adapter == "" {
		cfg.RateLimits.Adapter = "sql"
	}
	if cfg.RateLimits.Read == 0 {
		cfg.RateLimits.Read = 10000
	}
	if cfg.RateLimits.Write == 0 {
		cfg.RateLimits.Write = 1000
	}
	if cfg.RateLimits.PodCreate == 0 {
		cfg.RateLimits.PodCreate = 10
	}
	if cfg.RateLimits.StreamCreate == 0 {
		cfg.RateLimits.StreamCreate = 100
	}

	if cfg.Cache.Adapter == "" {
		cfg.Cache.Adapter = "memory"
	}
	if cfg.Cache.Pools.PodsTTLSeconds == 0 {
		cfg.Cache.Pools.PodsTTLSeconds = 300
	}
	if cfg.Cache.Pools.StreamsTTLSeconds == 0 {
		cfg.Cache.Pools.StreamsTTLSeconds = 300
	}
	if cfg.Cache.Pools.SingleRecordsTTLSeconds == 0 {
		cfg.Cache.Pools.SingleRecordsTTLSeconds = 60
	}
	if cfg.Cache.Pools.RecordListsTTLSeconds == 0 {
		cfg.Cache.Pools.RecordListsTTLSeconds = 30
	}

	if cfg.Blob.CacheMaxAgeSeconds == 0 {
		cfg.Blob.CacheMaxAgeSeconds = 3600
	}
}
